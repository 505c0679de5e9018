package curriculum

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
)

// CourseLocker serializes ingestion of one course. Different courses never
// block each other.
type CourseLocker interface {
	Lock(ctx context.Context, course string) (func(), error)
}

var _ CourseLocker = (*KeyedMutex)(nil)

// KeyedMutex is the in-process CourseLocker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*keyedLock{}}
}

func (m *KeyedMutex) Lock(ctx context.Context, course string) (func(), error) {
	key := normalization.CourseKey(course)

	m.mu.Lock()
	l := m.locks[key]
	if l == nil {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(key, l)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, l *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}
