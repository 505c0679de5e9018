package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/envutil"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// ErrLockTimeout is returned when a course lock could not be acquired before
// the context or the wait budget ran out.
var ErrLockTimeout = errors.New("course lock: timed out waiting for lock")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL bounds how long a crashed holder can block a course.
	TTL time.Duration
	// Retry is the poll interval while waiting for a held lock.
	Retry time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Prefix:   envutil.String("COURSE_LOCK_PREFIX", "curriculum:lock:"),
		TTL:      envutil.Duration("COURSE_LOCK_TTL", 10*time.Minute),
		Retry:    envutil.Duration("COURSE_LOCK_RETRY", 250*time.Millisecond),
	}
}

// CourseLocker serializes ingestion of the same course across processes.
type CourseLocker struct {
	log *logger.Logger
	rdb *goredis.Client
	cfg Config
}

func NewCourseLocker(ctx context.Context, cfg Config, log *logger.Logger) (*CourseLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "curriculum:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 250 * time.Millisecond
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &CourseLocker{
		log: log.With("service", "RedisCourseLocker"),
		rdb: rdb,
		cfg: cfg,
	}, nil
}

// Lock blocks until the course lock is held or ctx is done. The returned
// unlock releases the lock only if this caller still owns it.
func (l *CourseLocker) Lock(ctx context.Context, course string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("redis course locker not initialized")
	}
	key := l.cfg.Prefix + normalization.CourseKey(course)
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("course lock %q: %w", course, err)
		}
		if ok {
			l.log.Debug("course lock acquired", "course", course, "key", key)
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %q: %v", ErrLockTimeout, course, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("course lock release failed", "course", course, "error", err)
		}
	}, nil
}

func (l *CourseLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
