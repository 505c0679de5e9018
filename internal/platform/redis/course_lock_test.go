package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

func TestCourseLockerRequiresAddr(t *testing.T) {
	_, err := NewCourseLocker(context.Background(), Config{}, logger.Nop())
	require.Error(t, err)
}

func TestCourseLockerSerializesSameCourse(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	l, err := NewCourseLocker(ctx, Config{Addr: addr, Prefix: "curriculum:test:lock:", TTL: time.Minute, Retry: 10 * time.Millisecond}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	unlock, err := l.Lock(ctx, "Linear Algebra")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "linear algebra")
	assert.ErrorIs(t, err, ErrLockTimeout)

	other, err := l.Lock(ctx, "Calculus")
	require.NoError(t, err)
	other()

	unlock()
	again, err := l.Lock(ctx, "Linear Algebra")
	require.NoError(t, err)
	again()
}
