package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewave/showtime-booking/internal/apperr"
	"github.com/cinewave/showtime-booking/internal/model"
)

func heldAt(userID uint64, expiresAt time.Time) *model.SeatReservation {
	return &model.SeatReservation{
		ID:            1,
		ShowtimeID:    10,
		SeatID:        20,
		UserID:        userID,
		Status:        model.ReservationHeld,
		HoldExpiresAt: &expiresAt,
	}
}

func TestActiveTreatsExpiredHoldAsAbsent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Active(heldAt(5, now.Add(time.Minute)), now))
	assert.False(t, Active(heldAt(5, now.Add(-time.Second)), now))
	// Expiring exactly now counts as expired.
	assert.False(t, Active(heldAt(5, now), now))
	assert.False(t, Active(nil, now))

	booked := &model.SeatReservation{Status: model.ReservationBooked}
	assert.True(t, Active(booked, now), "booked rows never expire")
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, StatusAvailable, DisplayStatus(nil, now))
	assert.Equal(t, StatusBlocked, DisplayStatus(heldAt(5, now.Add(time.Minute)), now))
	assert.Equal(t, StatusAvailable, DisplayStatus(heldAt(5, now.Add(-time.Minute)), now))
	assert.Equal(t, StatusOccupied, DisplayStatus(&model.SeatReservation{Status: model.ReservationBooked}, now))
	assert.Equal(t, StatusBlocked, DisplayStatus(&model.SeatReservation{Status: model.ReservationBlocked}, now))
}

func TestCanHold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, CanHold(nil, now), "free seat can be held")
	assert.True(t, CanHold(heldAt(5, now.Add(-time.Minute)), now), "expired hold can be claimed by anyone")
	assert.False(t, CanHold(heldAt(5, now.Add(time.Minute)), now))
	assert.False(t, CanHold(&model.SeatReservation{Status: model.ReservationBooked}, now))
}

func TestCanReleaseRequiresOwnership(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := heldAt(5, now.Add(time.Minute))

	assert.True(t, CanRelease(r, 5, now))
	assert.False(t, CanRelease(r, 6, now), "another user cannot release the hold")
	assert.False(t, CanRelease(heldAt(5, now.Add(-time.Minute)), 5, now), "expired holds are not releasable")
	assert.False(t, CanRelease(&model.SeatReservation{Status: model.ReservationBooked, UserID: 5}, 5, now))
	assert.False(t, CanRelease(nil, 5, now))
}

func TestCanExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, CanExpire(heldAt(5, now.Add(-time.Minute)), now))
	// The deadline itself counts as expired, mirroring Active.
	assert.True(t, CanExpire(heldAt(5, now), now))
	assert.False(t, CanExpire(heldAt(5, now.Add(time.Minute)), now), "live holds must survive a sweep")
	assert.False(t, CanExpire(&model.SeatReservation{Status: model.ReservationBooked}, now), "a booked row can never be reaped")
	assert.False(t, CanExpire(&model.SeatReservation{Status: model.ReservationBlocked}, now))
	assert.False(t, CanExpire(nil, now))
	assert.False(t, CanExpire(&model.SeatReservation{Status: model.ReservationHeld}, now), "a held row without a deadline is malformed, not expirable")
}

func TestNewHoldDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hold := NewHold(10, 20, 5, now)

	assert.Equal(t, model.ReservationHeld, hold.Status)
	require.NotNil(t, hold.HoldExpiresAt)
	assert.Equal(t, now.Add(HoldTTL), *hold.HoldExpiresAt)
	assert.Equal(t, uint64(10), hold.ShowtimeID)
	assert.Equal(t, uint64(20), hold.SeatID)
	assert.Equal(t, uint64(5), hold.UserID)
}

func TestValidateBookableAllOrNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(5 * time.Minute)

	held := []model.SeatReservation{
		*heldAt(5, fresh),
		{ID: 2, ShowtimeID: 10, SeatID: 21, UserID: 5, Status: model.ReservationHeld, HoldExpiresAt: &fresh},
	}

	require.NoError(t, ValidateBookable(held, []uint64{20, 21}, 5, now))

	// One requested seat without a live hold fails the whole set.
	err := ValidateBookable(held, []uint64{20, 21, 22}, 5, now)
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	// A hold that expired between selection and finalization fails too.
	expired := now.Add(-time.Second)
	held[1].HoldExpiresAt = &expired
	err = ValidateBookable(held, []uint64{20, 21}, 5, now)
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestCanCancelBookingCutoff(t *testing.T) {
	startsAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	// 21 minutes before the show is still allowed.
	require.NoError(t, CanCancelBooking(model.BookingConfirmed, startsAt, startsAt.Add(-21*time.Minute)))

	// 19 minutes before is inside the cutoff window.
	err := CanCancelBooking(model.BookingConfirmed, startsAt, startsAt.Add(-19*time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	// Exactly at the cutoff boundary the window is closed.
	err = CanCancelBooking(model.BookingConfirmed, startsAt, startsAt.Add(-CancelCutoff))
	require.Error(t, err)

	// Only confirmed bookings are cancellable.
	err = CanCancelBooking(model.BookingPending, startsAt, startsAt.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	err = CanCancelBooking(model.BookingCancelled, startsAt, startsAt.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
