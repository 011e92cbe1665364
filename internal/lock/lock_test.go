package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewave/showtime-booking/internal/apperr"
)

func newTestLocker(t *testing.T) (*SeatLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSeatLocker(rdb, DefaultTTL), mr
}

func TestKeyIsScopedPerShowtimeAndSeat(t *testing.T) {
	assert.Equal(t, "seat_lock:42:7", Key(42, 7))
	assert.NotEqual(t, Key(1, 23), Key(12, 3))
}

func TestAcquireIsExclusivePerSeat(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, 1, 1, 100)
	require.NoError(t, err)
	require.True(t, ok)

	// A second holder is refused without error while the first owns
	// the lock.
	ok, err = l.Acquire(ctx, 1, 1, 200)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different seat is uncontended.
	ok, err = l.Acquire(ctx, 1, 2, 200)
	require.NoError(t, err)
	assert.True(t, ok)

	l.Release(ctx, 1, 1)
	ok, err = l.Acquire(ctx, 1, 1, 200)
	require.NoError(t, err)
	assert.True(t, ok, "released lock must be acquirable again")
}

func TestConcurrentAcquireYieldsOneWinner(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	const attempts = 32
	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			ok, err := l.Acquire(ctx, 7, 7, holder)
			if err == nil && ok {
				wins.Add(1)
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins.Load(), "exactly one concurrent holder may win")
}

func TestAbandonedLockExpires(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, 3, 9, 100)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed holder never releases; the TTL is the backstop.
	mr.FastForward(DefaultTTL + time.Second)

	ok, err = l.Acquire(ctx, 3, 9, 200)
	require.NoError(t, err)
	assert.True(t, ok, "lock must expire after the TTL")
}

func TestAcquireWithoutLockStoreFails(t *testing.T) {
	l := NewSeatLocker(nil, DefaultTTL)

	ok, err := l.Acquire(context.Background(), 1, 1, 100)
	assert.False(t, ok, "a missing lock store must never grant")
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))

	ok, err = l.Acquire(context.Background(), 1, 1, 200)
	assert.False(t, ok)
	require.Error(t, err)
}
