package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"idscore/pkg/platform/sentinel"
)

// InMemoryLocker is a process-local Locker for tests and single-node runs.
type InMemoryLocker struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewInMemory() *InMemoryLocker {
	return &InMemoryLocker{now: time.Now}
}

// WithClock overrides time.Now for expiry checks.
func (l *InMemoryLocker) WithClock(now func() time.Time) *InMemoryLocker {
	l.now = now
	return l
}

func (l *InMemoryLocker) Acquire(_ context.Context, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.token != "" && now.Before(l.expiresAt) {
		return "", sentinel.ErrLockHeld
	}
	l.token = uuid.NewString()
	l.expiresAt = now.Add(ttl)
	return l.token, nil
}

func (l *InMemoryLocker) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != "" && token == l.token {
		l.token = ""
		l.expiresAt = time.Time{}
	}
	return nil
}

func (l *InMemoryLocker) Holder(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == "" || !l.now().Before(l.expiresAt) {
		return "", nil
	}
	return l.token, nil
}
