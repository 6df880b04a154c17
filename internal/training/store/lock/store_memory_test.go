package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idscore/pkg/platform/sentinel"
)

type InMemoryLockerSuite struct {
	suite.Suite
	locker *InMemoryLocker
	now    time.Time
	ctx    context.Context
}

func TestInMemoryLockerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLockerSuite))
}

func (s *InMemoryLockerSuite) SetupTest() {
	s.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.locker = NewInMemory().WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *InMemoryLockerSuite) TestAcquireRelease() {
	s.Run("second acquire is refused", func() {
		token, err := s.locker.Acquire(s.ctx, time.Minute)
		s.Require().NoError(err)
		s.NotEmpty(token)

		_, err = s.locker.Acquire(s.ctx, time.Minute)
		s.ErrorIs(err, sentinel.ErrLockHeld)

		s.Require().NoError(s.locker.Release(s.ctx, token))
		_, err = s.locker.Acquire(s.ctx, time.Minute)
		s.NoError(err)
	})
}

func (s *InMemoryLockerSuite) TestReleaseIsIdempotent() {
	token, err := s.locker.Acquire(s.ctx, time.Minute)
	s.Require().NoError(err)
	s.NoError(s.locker.Release(s.ctx, token))
	s.NoError(s.locker.Release(s.ctx, token))
	s.NoError(s.locker.Release(s.ctx, ""))
}

func (s *InMemoryLockerSuite) TestExpiredLeaseCannotReleaseNewHolder() {
	stale, err := s.locker.Acquire(s.ctx, time.Minute)
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Minute)
	fresh, err := s.locker.Acquire(s.ctx, time.Minute)
	s.Require().NoError(err, "expired lock is reclaimable")

	s.Require().NoError(s.locker.Release(s.ctx, stale))
	holder, err := s.locker.Holder(s.ctx)
	s.Require().NoError(err)
	s.Equal(fresh, holder)
}

func (s *InMemoryLockerSuite) TestRejectsNonPositiveTTL() {
	_, err := s.locker.Acquire(s.ctx, 0)
	s.Error(err)
}

func (s *InMemoryLockerSuite) TestExactlyOneConcurrentHolder() {
	var wg sync.WaitGroup
	var acquired atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.locker.Acquire(s.ctx, time.Minute); err == nil {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), acquired.Load())
}
