// Package lock implements the distributed per-seat lock used to
// serialize competing hold attempts.  The lock is a transient Redis
// key with a short TTL; it is not the seat's reservation state, only
// the mutual exclusion around the hold decision.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinewave/showtime-booking/internal/apperr"
)

// DefaultTTL bounds how long an abandoned critical section can keep a
// seat locked.  Callers release explicitly on every exit path; the TTL
// is the backstop for crashed holders.
const DefaultTTL = 30 * time.Second

// SeatLocker acquires and releases per-(showtime, seat) locks backed
// by Redis SET NX PX.  The lock store is a hard dependency: without it
// competing hold attempts cannot be serialized, so a missing client is
// an Upstream failure, never a silent grant.
type SeatLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeatLocker returns a SeatLocker with the given TTL.  A
// non-positive TTL falls back to DefaultTTL.
func NewSeatLocker(rdb *redis.Client, ttl time.Duration) *SeatLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeatLocker{rdb: rdb, ttl: ttl}
}

// Key builds the lock key for a showtime/seat pair.  Locks are scoped
// per seat so unrelated seats never contend.
func Key(showtimeID, seatID uint64) string {
	return fmt.Sprintf("seat_lock:%d:%d", showtimeID, seatID)
}

// Acquire attempts to take the lock for holder.  It returns false when
// another holder currently owns the lock; that is a normal outcome the
// caller reports as "seat busy", not an error.  The set-if-not-exists
// with TTL is a single atomic Redis command, so concurrent callers
// cannot both succeed.
func (l *SeatLocker) Acquire(ctx context.Context, showtimeID, seatID, holder uint64) (bool, error) {
	if l.rdb == nil {
		return false, apperr.New(apperr.Upstream, "seat lock store is not available")
	}
	ok, err := l.rdb.SetNX(ctx, Key(showtimeID, seatID), fmt.Sprintf("%d", holder), l.ttl).Result()
	if err != nil {
		return false, apperr.Wrap(apperr.Upstream, "seat lock store is not available", err)
	}
	return ok, nil
}

// Release unconditionally clears the lock.  It must run on every exit
// path of the hold critical section so a failed validation does not
// leave the seat locked for the full TTL.
func (l *SeatLocker) Release(ctx context.Context, showtimeID, seatID uint64) {
	if l.rdb == nil {
		return
	}
	_ = l.rdb.Del(ctx, Key(showtimeID, seatID)).Err()
}
