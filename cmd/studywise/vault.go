package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aretw0/studywise"
	"github.com/aretw0/studywise/internal/config"
	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/review"
)

// vault is an opened StudyWise vault.
type vault struct {
	root string
	cfg  *config.Config
	svc  *studywise.Service
}

// Close releases the store.
func (v *vault) Close() {
	if err := studywise.Close(v.svc.Repository()); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

// renderer builds a markdown renderer from review config, narrowed by inset
// columns. plain forces plain output on top of review.plain.
func (v *vault) renderer(inset int, plain bool) *review.Renderer {
	return review.NewRenderer(v.cfg.Review.Width-inset, plain || v.cfg.Review.Plain,
		review.WithStyle(v.cfg.Review.Style))
}

// resolveRoot picks --vault or the nearest vault above the working directory.
func resolveRoot() (string, error) {
	if vaultPath != "" {
		return filepath.Abs(vaultPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := studywise.FindVaultRoot(wd)
	if err != nil {
		return wd, nil
	}
	return root, nil
}

// loadConfig reads studywise.yaml at root and applies the global flags.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadDir(root)
	if err != nil {
		return nil, err
	}
	if adapter != "" {
		cfg.Storage.Adapter = adapter
	}
	if nover {
		off := false
		cfg.Storage.Versioning = &off
	}
	return cfg, cfg.Validate()
}

// storeOptions maps the configuration to library options and returns the
// uri the adapter opens.
func storeOptions(root string, cfg *config.Config) (string, []studywise.Option) {
	opts := []studywise.Option{
		studywise.WithLogger(slog.Default()),
		studywise.WithAdapter(cfg.Storage.Adapter),
		studywise.WithStrict(cfg.Storage.Strict),
	}
	uri := root
	switch cfg.Storage.Adapter {
	case config.AdapterFS:
		opts = append(opts, studywise.WithVersioning(cfg.VersioningEnabled()))
		if cfg.Storage.SystemDir != "" {
			opts = append(opts, studywise.WithSystemDir(cfg.Storage.SystemDir))
		}
	case config.AdapterSQLite:
		uri = cfg.SQLitePath(root)
	case config.AdapterRedis:
		r := cfg.Storage.Redis
		opts = append(opts, studywise.WithRedis(r.Addr, r.Password, r.DB))
		if r.Namespace != "" {
			opts = append(opts, studywise.WithNamespace(r.Namespace))
		}
	}
	return uri, opts
}

// openVault opens the existing vault for a command.
func openVault() (*vault, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, fail("Failed to locate vault", err)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, fail("Invalid configuration", err, fmt.Sprintf("Check %s", filepath.Join(root, config.FileName)))
	}

	uri, opts := storeOptions(root, cfg)
	opts = append(opts, studywise.WithMustExist(true))
	svc, err := studywise.New(uri, opts...)
	if err != nil {
		return nil, fail("Failed to open vault", err,
			"Run 'studywise init' to create a vault here",
			"Pass --vault to point at an existing vault")
	}
	return &vault{root: root, cfg: cfg, svc: svc}, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// recordError reports a failed operation on one record, with a hint when
// the record does not exist.
func recordError(title, kind, id string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fail(fmt.Sprintf("%s %q not found", kind, id), nil,
			fmt.Sprintf("Run 'studywise %s list' to see the available ids", kind))
	}
	return fail(title, err)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
