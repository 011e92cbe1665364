// Package reservation holds the seat reservation state machine as
// pure functions over SeatReservation values.  Nothing here touches
// storage: repositories and handlers consult these guards and then
// commit the transition with a conditional write.  Keeping the guards
// pure makes the transition rules testable without a database.
package reservation

import (
	"fmt"
	"time"

	"github.com/cinewave/showtime-booking/internal/apperr"
	"github.com/cinewave/showtime-booking/internal/model"
)

// HoldTTL is how long a hold keeps a seat before it silently expires.
const HoldTTL = 10 * time.Minute

// CancelCutoff is the minimum gap before showtime start during which a
// confirmed booking may still be cancelled.
const CancelCutoff = 20 * time.Minute

// Seat statuses as presented in the seat layout.
const (
	StatusAvailable = "available"
	StatusBlocked   = "blocked"
	StatusOccupied  = "occupied"
)

// Active reports whether a reservation row still binds its seat at the
// given instant.  A HELD row past its expiry is logically absent: the
// expiry check is value-based, so readers never depend on the reaper
// having run.
func Active(r *model.SeatReservation, now time.Time) bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case model.ReservationBooked, model.ReservationBlocked:
		return true
	case model.ReservationHeld:
		return r.HoldExpiresAt != nil && r.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// DisplayStatus maps a reservation row (possibly nil) to the status
// shown in the public seat layout.
func DisplayStatus(r *model.SeatReservation, now time.Time) string {
	if !Active(r, now) {
		return StatusAvailable
	}
	if r.Status == model.ReservationBooked {
		return StatusOccupied
	}
	return StatusBlocked
}

// CanHold reports whether a hold transition is legal for the seat's
// current row.  Holds are legal only from available; a stale expired
// hold counts as available and is overwritten by the new hold.
// Concurrent competing holds are serialized by the lock manager before
// this guard is ever consulted.
func CanHold(r *model.SeatReservation, now time.Time) bool {
	return !Active(r, now)
}

// CanRelease reports whether user may release the hold represented by
// r.  Only the holder of an active HELD row may release it; anything
// else is reported as not-found upstream, never as someone else's
// release.
func CanRelease(r *model.SeatReservation, userID uint64, now time.Time) bool {
	return Active(r, now) && r.Status == model.ReservationHeld && r.UserID == userID
}

// CanExpire reports whether the reaper may revert r to available.  The
// guard only matches HELD rows whose deadline has passed, so a sweep
// can never race a booking that just flipped the row to BOOKED.
func CanExpire(r *model.SeatReservation, now time.Time) bool {
	return r != nil && r.Status == model.ReservationHeld &&
		r.HoldExpiresAt != nil && !r.HoldExpiresAt.After(now)
}

// NewHold builds the HELD row produced by a successful hold
// transition.
func NewHold(showtimeID, seatID, userID uint64, now time.Time) model.SeatReservation {
	exp := now.Add(HoldTTL)
	return model.SeatReservation{
		ShowtimeID:    showtimeID,
		SeatID:        seatID,
		UserID:        userID,
		Status:        model.ReservationHeld,
		HoldExpiresAt: &exp,
	}
}

// ValidateBookable checks the book guard: every requested seat must
// have an active HELD row owned by userID.  On failure it returns a
// Conflict error naming the first offending seat; the caller must
// abort the whole booking with no partial commit.
func ValidateBookable(held []model.SeatReservation, seatIDs []uint64, userID uint64, now time.Time) error {
	bySeat := make(map[uint64]*model.SeatReservation, len(held))
	for i := range held {
		bySeat[held[i].SeatID] = &held[i]
	}
	for _, sid := range seatIDs {
		r, ok := bySeat[sid]
		if !ok || !Active(r, now) || r.Status != model.ReservationHeld || r.UserID != userID {
			return apperr.New(apperr.Conflict, fmt.Sprintf("seat %d is not held by you or the hold expired", sid))
		}
	}
	return nil
}

// CanCancelBooking checks the cancellation guard: the booking must be
// CONFIRMED and the current time must be more than CancelCutoff before
// the showtime starts.
func CanCancelBooking(status string, startsAt, now time.Time) error {
	if status != model.BookingConfirmed {
		return apperr.New(apperr.Validation, "only confirmed bookings can be cancelled")
	}
	if !now.Before(startsAt.Add(-CancelCutoff)) {
		return apperr.New(apperr.Conflict, "cancellation not allowed this close to showtime")
	}
	return nil
}
