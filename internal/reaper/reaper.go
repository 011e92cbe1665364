// Package reaper physically removes expired seat holds.  Expiry is
// enforced at read time by every consumer of seat_reservations, so the
// sweep only reclaims storage and pushes the freed-seat notifications;
// a slow or stopped reaper never extends a hold.
package reaper

import (
	"context"
	"log"
	"time"

	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/repository"
	"github.com/cinewave/showtime-booking/internal/reservation"
)

// batchLimit caps how many expired holds one sweep processes.
const batchLimit = 500

// Reaper periodically deletes expired HELD rows and announces the
// freed seats.
type Reaper struct {
	Reservations *repository.SeatReservationRepo
	Publisher    *event.Publisher
	Hub          *realtime.Hub
	Interval     time.Duration
}

// Run sweeps on each tick until ctx is cancelled.  Blocking; run it
// in its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 45 * time.Second
	}
	log.Printf("[REAPER] sweeping expired holds every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[REAPER] stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep deletes one batch of expired holds.  Each delete re-checks the
// expiry guard, so a hold that was booked or re-held between the scan
// and the delete is left alone and no event is emitted for it.
func (r *Reaper) sweep(ctx context.Context) {
	expired, err := r.Reservations.ExpiredHolds(ctx, batchLimit)
	if err != nil {
		log.Printf("[REAPER] scan: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	freed := 0
	for _, hold := range expired {
		removed, err := r.Reservations.ExpireHold(ctx, hold.ID)
		if err != nil {
			log.Printf("[REAPER] expire hold %d: %v", hold.ID, err)
			continue
		}
		if !removed {
			continue
		}
		freed++
		ev := event.SeatUpdate{
			ShowtimeID: hold.ShowtimeID,
			SeatID:     hold.SeatID,
			Status:     reservation.StatusAvailable,
			Timestamp:  time.Now().UTC(),
		}
		r.Publisher.SeatUpdated(ctx, ev)
		r.Hub.Broadcast(ctx, hold.ShowtimeID, ev)
	}
	if freed > 0 {
		log.Printf("[REAPER] freed %d expired holds", freed)
	}
}
