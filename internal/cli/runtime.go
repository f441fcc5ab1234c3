package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/manas360/stepwise"
	"github.com/manas360/stepwise/internal/config"
	"github.com/manas360/stepwise/internal/logging"
	"github.com/manas360/stepwise/pkg/adapters/file"
	"github.com/manas360/stepwise/pkg/adapters/memory"
	redisAdapter "github.com/manas360/stepwise/pkg/adapters/redis"
	"github.com/manas360/stepwise/pkg/adapters/sqlite"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/observability"
	"github.com/manas360/stepwise/pkg/persistence/middleware"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/manas360/stepwise/pkg/recorder"
)

// logWriter receives application logs; stdout is kept for session output.
var logWriter io.Writer = os.Stderr

// Runtime is a fully wired engine plus the resources it owns.
type Runtime struct {
	Engine  *stepwise.Engine
	Metrics *observability.Metrics
	Logger  *slog.Logger

	closers []func() error
}

// NewLogger builds the application logger from the log settings.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format := logging.FormatText
	if strings.EqualFold(cfg.Format, string(logging.FormatJSON)) {
		format = logging.FormatJSON
	}
	return logging.NewWithWriter(logWriter, level, format), nil
}

// NewRuntime opens the configured record store, stacks the persistence
// middleware on it and builds the engine.
func NewRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	rt := &Runtime{
		Metrics: observability.NewMetrics(),
		Logger:  logger,
	}

	store, locker, err := rt.openStore(cfg)
	if err != nil {
		return nil, err
	}
	store, err = wrapStore(store, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	recOpts := []recorder.Option{
		recorder.WithLogger(logger),
		recorder.WithRecordedHook(rt.Metrics.RecordStored),
	}
	if locker != nil {
		recOpts = append(recOpts, recorder.WithLocker(locker))
	}

	engOpts := []stepwise.Option{
		stepwise.WithLogger(logger),
		stepwise.WithRecorder(recorder.New(store, recOpts...)),
		stepwise.WithLifecycleHooks(domain.ChainHooks(
			observability.LoggingHooks(logger),
			rt.Metrics.Hooks(),
		)),
	}
	if cfg.ProtocolsDir != "" {
		engOpts = append(engOpts, stepwise.WithProtocolsDir(cfg.ProtocolsDir))
	}

	eng, err := stepwise.New(engOpts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = eng
	return rt, nil
}

func (rt *Runtime) openStore(cfg config.Config) (ports.RecordStore, ports.DistributedLocker, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverMemory, "":
		return memory.NewStore(), nil, nil
	case config.DriverFile:
		return file.New(cfg.Store.Path), nil, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil, nil
	case config.DriverRedis:
		opts := []redisAdapter.Option{redisAdapter.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redisAdapter.WithTTL(cfg.Redis.TTL))
		}
		store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		rt.closers = append(rt.closers, store.Close)
		return store, redisAdapter.NewLocker(store.Client(), cfg.Redis.Prefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// wrapStore masks PII before encrypting, so masked keys never reach the cipher.
func wrapStore(store ports.RecordStore, cfg config.Config) (ports.RecordStore, error) {
	var mws []middleware.Middleware
	if len(cfg.PII.Patterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PII.Patterns))
	}
	active, fallbacks, err := cfg.Encryption.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}
	return middleware.Chain(store, mws...), nil
}

// Close releases store connections.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
