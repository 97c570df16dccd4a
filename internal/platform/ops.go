package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/studywise/pkg/adapters/fs"
	"github.com/aretw0/studywise/pkg/adapters/redis"
	"github.com/aretw0/studywise/pkg/adapters/sqlite"
	"github.com/aretw0/studywise/pkg/core"
)

// DefaultDatabase is the SQLite file created inside a vault directory.
const DefaultDatabase = "studywise.db"

// DefaultRedisAddr is used by the redis adapter when no server is configured.
const DefaultRedisAddr = "localhost:6379"

// Init opens the vault at uri with the selected adapter and initializes it.
// The uri is adapter-specific: a directory for fs, a directory or .db file
// for sqlite, a directory (namespace) or redis:// URL for redis.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := buildOptions(opts)

	if o.repository != nil {
		return o.repository, nil
	}

	repo, err := open(uri, o)
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(context.Background()); err != nil {
		_ = Close(repo)
		return nil, err
	}
	return repo, nil
}

func open(uri string, o *options) (core.Repository, error) {
	switch o.adapter {
	case AdapterFS, "":
		return initFS(uri, o)
	case AdapterSQLite:
		return initSQLite(uri, o)
	case AdapterRedis:
		return initRedis(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// sandbox applies the dev-run safety rules to a file-based path.
func sandbox(path string, o *options) (string, bool) {
	readOnly := o.getBool("read_only")
	devSafety := true
	if v, ok := o.config["dev_safety"].(bool); ok {
		devSafety = v
	}
	bypass := readOnly || !devSafety
	useTemp := o.getBool("temp_dir") || (IsDevRun() && !bypass)
	resolved := ResolveVaultPath(path, useTemp)

	if IsDevRun() && o.logger != nil {
		switch {
		case bypass && readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		case bypass:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		default:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		}
	}
	if useTemp && o.logger != nil && resolved != path {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolved)
	}
	return resolved, useTemp
}

// initFS builds the markdown vault adapter.
func initFS(path string, o *options) (core.Repository, error) {
	autoInit := o.getBool("auto_init")
	systemDir := o.getString("system_dir")
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	resolved, useTemp := sandbox(path, o)

	// Without an explicit choice, versioning follows the vault: an existing
	// .git means git, a fresh auto-initialized vault gets git, an existing
	// gitless vault (system dir but no .git) or a plain folder stays gitless.
	gitless, explicit := o.config["gitless"].(bool)
	if !explicit {
		switch {
		case hasFile(resolved, ".git"):
			gitless = false
		case autoInit:
			gitless = hasFile(resolved, systemDir)
		default:
			gitless = true
		}
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}

	repo := fs.NewRepository(fs.Config{
		Path:         resolved,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    o.getBool("must_exist") || (!autoInit && !useTemp),
		ReadOnly:     o.getBool("read_only"),
		Strict:       o.getBool("strict"),
		Logger:       o.logger,
		SystemDir:    systemDir,
		ErrorHandler: errorHandler,
	})

	for ext, s := range o.serializers {
		serializer, ok := s.(fs.Serializer)
		if !ok {
			return nil, fmt.Errorf("serializer for %s must implement fs.Serializer", ext)
		}
		repo.RegisterSerializer(ext, serializer)
	}
	return repo, nil
}

// initSQLite opens the database file for uri.
func initSQLite(uri string, o *options) (core.Repository, error) {
	dir, file := uri, DefaultDatabase
	if strings.HasSuffix(uri, ".db") {
		dir, file = filepath.Dir(uri), filepath.Base(uri)
	}
	resolvedDir, _ := sandbox(dir, o)
	resolved := filepath.Join(resolvedDir, file)

	readOnly := o.getBool("read_only")
	if o.getBool("must_exist") || readOnly {
		if _, err := os.Stat(resolved); err != nil {
			return nil, fmt.Errorf("database %s: %w", resolved, err)
		}
	}
	return sqlite.NewRepository(sqlite.Config{Path: resolved, ReadOnly: readOnly, Logger: o.logger})
}

// initRedis connects to the configured server. A redis:// uri carries the
// connection itself; any other uri only names the namespace.
func initRedis(uri string, o *options) (core.Repository, error) {
	namespace := o.getString("namespace")
	cfg := redis.Config{
		ReadOnly: o.getBool("read_only"),
		Logger:   o.logger,
	}

	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		ro, err := goredis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if namespace == "" {
			namespace = "default"
		}
		cfg.Addr, cfg.Password, cfg.DB, cfg.Namespace = ro.Addr, ro.Password, ro.DB, namespace
		return redis.NewRepositoryWithClient(goredis.NewClient(ro), cfg)
	}

	if namespace == "" {
		namespace = namespaceFor(uri)
	}
	cfg.Addr = o.getString("redis_addr")
	if cfg.Addr == "" {
		cfg.Addr = DefaultRedisAddr
	}
	cfg.Password = o.getString("redis_password")
	cfg.DB = o.getInt("redis_db")
	cfg.Namespace = namespace
	return redis.NewRepository(cfg)
}

// namespaceFor derives a Redis namespace from a vault path.
func namespaceFor(uri string) string {
	if uri == "" || uri == "." {
		if wd, err := os.Getwd(); err == nil {
			uri = wd
		}
	}
	ns := filepath.Base(filepath.Clean(uri))
	if ns == "." || ns == string(os.PathSeparator) || ns == "" {
		return "default"
	}
	return ns
}

// Sync synchronizes the vault at uri with its remote.
func Sync(uri string, opts ...Option) error {
	o := buildOptions(opts)

	repo := o.repository
	if repo == nil {
		// Sync never creates a vault.
		o.config["must_exist"] = true
		var err error
		if repo, err = open(uri, o); err != nil {
			return err
		}
		defer Close(repo)
	}

	syncable, ok := repo.(core.Syncable)
	if !ok {
		return fmt.Errorf("sync: %w", core.ErrUnsupported)
	}
	return syncable.Sync(context.Background())
}

// Close releases stores that hold connections (redis, sqlite).
func Close(repo core.Repository) error {
	if c, ok := repo.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
