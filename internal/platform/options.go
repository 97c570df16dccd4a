package platform

import (
	"log/slog"

	"github.com/aretw0/studywise/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterRedis  = "redis"
	AdapterSQLite = "sqlite"
)

// options holds the internal configuration for opening a vault.
type options struct {
	repository  core.Repository
	logger      *slog.Logger
	adapter     string
	config      map[string]interface{}
	serializers map[string]any
}

// Option defines a functional option for configuring StudyWise.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:     AdapterFS,
		config:      make(map[string]interface{}),
		serializers: make(map[string]any),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSerializer registers a custom serializer for a file extension.
// s must implement fs.Serializer; this is checked by Init.
func WithSerializer(ext string, s any) Option {
	return func(o *options) {
		o.serializers[ext] = s
	}
}

// WithAutoInit enables automatic initialization of the vault (creates directory and git init).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables git versioning of the fs adapter.
// When unset, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["gitless"] = !enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger handed to the store and the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a ready store (mock, custom backend).
// Adapter selection and initialization are skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the store by name: "fs" (default), "redis" or "sqlite".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithRedis sets the Redis server for the redis adapter.
func WithRedis(addr, password string, db int) Option {
	return func(o *options) {
		o.config["redis_addr"] = addr
		o.config["redis_password"] = password
		o.config["redis_db"] = db
	}
}

// WithNamespace sets the Redis key namespace. Defaults to the vault directory name.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.config["namespace"] = ns
	}
}

// WithSystemDir sets the hidden directory name of the fs adapter.
// Defaults to ".studywise".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithEventBuffer sets the size of the service's watch buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithStrict keeps numbers in JSON/YAML/Markdown as json.Number so large
// integers keep their precision.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.config["strict"] = strict
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// fs watch loop (e.g. permission denied), which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Writes and Sync return core.ErrReadOnly.
// 2. Initialization (mkdir, git init) is skipped.
// 3. The dev sandbox is bypassed, since nothing can be written.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) file-based vaults are redirected to a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

func (o *options) getBool(key string) bool {
	v, _ := o.config[key].(bool)
	return v
}

func (o *options) getString(key string) string {
	v, _ := o.config[key].(string)
	return v
}

func (o *options) getInt(key string) int {
	v, _ := o.config[key].(int)
	return v
}
