package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/gcp"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/redis"
)

var _ curriculum.CourseLocker = (*redis.CourseLocker)(nil)

type App struct {
	Log        *logger.Logger
	Cfg        Config
	Store      graph.Store
	Locker     curriculum.CourseLocker
	Materials  *gcp.MaterialBucket
	Curriculum *curriculum.Usecases

	closers []func(context.Context) error
}

// New builds the application from environment configuration.
func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("app: logger required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Log: log, Cfg: cfg}

	store, err := resolveGraphStore(ctx, log, cfg)
	if err != nil {
		return nil, fmt.Errorf("init graph store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if cfg.RedisAddr != "" {
		rcfg := redis.ConfigFromEnv()
		rcfg.Addr = cfg.RedisAddr
		locker, err := redis.NewCourseLocker(ctx, rcfg, log)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("init redis course lock: %w", err)
		}
		a.Locker = locker
		a.closers = append(a.closers, func(context.Context) error { return locker.Close() })
	} else {
		a.Locker = curriculum.NewKeyedMutex()
	}

	bucket, err := resolveMaterialBucket(ctx, log, cfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if bucket != nil {
		a.Materials = bucket
		a.closers = append(a.closers, func(context.Context) error { return bucket.Close() })
	}

	uc, err := curriculum.NewUsecases(curriculum.UsecasesDeps{
		Log:         log,
		Store:       store,
		Locker:      a.Locker,
		Concurrency: cfg.IngestConcurrency,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Curriculum = uc
	return a, nil
}

// MaterialSource returns the configured bucket, or nil when none is set.
func (a *App) MaterialSource() curriculum.MaterialSource {
	if a == nil || a.Materials == nil {
		return nil
	}
	return a.Materials
}

// Close releases resources in reverse acquisition order.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
