package platform

import (
	"github.com/aretw0/studywise/pkg/study"
)

// New opens (and initializes) the vault at uri and returns the study service.
//
//	svc, err := platform.New("./notes", platform.WithVersioning(false))
func New(uri string, opts ...Option) (*study.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	svcOpts := []study.Option{study.WithLogger(o.logger)}
	if size := o.getInt("event_buffer"); size > 0 {
		svcOpts = append(svcOpts, study.WithEventBuffer(size))
	}
	return study.New(repo, svcOpts...), nil
}
