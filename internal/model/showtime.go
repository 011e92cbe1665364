package model

import "time"

// Showtime statuses.
const (
	ShowtimeScheduled = "SCHEDULED"
	ShowtimeCancelled = "CANCELLED"
	ShowtimeFinished  = "FINISHED"
)

// Showtime represents a scheduled screening of a movie on a specific
// screen of a theater.  It owns the per-showtime seat inventory: seats
// with no active SeatReservation row are implicitly available.  The
// AvailableSeats counter tracks seats that are not booked; holds do
// not decrement it, only finalized bookings do.
//
// Fields:
//  ID             – primary key identifier.
//  MovieID        – movie being screened.
//  TheaterID      – theater hosting the screening.
//  ScreenID       – screen inside the theater.
//  StartsAt       – when the screening begins (UTC).
//  Language       – audio language of this screening.
//  Format         – presentation format (2D, 3D, IMAX...).
//  TotalSeats     – seats on the screen when the showtime was created.
//  AvailableSeats – seats not yet booked.
//  Status         – SCHEDULED, CANCELLED or FINISHED.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Showtime struct {
	ID             uint64    // showtimes.id
	MovieID        uint64    // showtimes.movie_id
	TheaterID      uint64    // showtimes.theater_id
	ScreenID       uint64    // showtimes.screen_id
	StartsAt       time.Time // showtimes.starts_at
	Language       string    // showtimes.language
	Format         string    // showtimes.format
	TotalSeats     uint32    // showtimes.total_seats
	AvailableSeats uint32    // showtimes.available_seats
	Status         string    // showtimes.status
	CreatedAt      time.Time // showtimes.created_at
	UpdatedAt      time.Time // showtimes.updated_at
}

// SeatReservation states.  A HELD row whose HoldExpiresAt is in the
// past is logically absent: every reader must treat it as available
// even before the reaper physically deletes it.
const (
	ReservationHeld    = "HELD"
	ReservationBooked  = "BOOKED"
	ReservationBlocked = "BLOCKED"
)

// SeatReservation is the per-(showtime, seat) reservation record.  At
// most one active row exists for a given showtime and seat; seats
// without a row are available.  Created on hold, flipped to BOOKED by
// the booking finalizer, deleted on release, expiry or cancellation.
//
// Fields:
//  ID            – primary key identifier.
//  ShowtimeID    – showtime this reservation belongs to.
//  SeatID        – seat being reserved.
//  UserID        – user holding or owning the seat.
//  Status        – HELD, BOOKED or BLOCKED.
//  HoldExpiresAt – hold deadline; meaningful only while HELD.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type SeatReservation struct {
	ID            uint64     // seat_reservations.id
	ShowtimeID    uint64     // seat_reservations.showtime_id
	SeatID        uint64     // seat_reservations.seat_id
	UserID        uint64     // seat_reservations.user_id
	Status        string     // seat_reservations.status
	HoldExpiresAt *time.Time // seat_reservations.hold_expires_at (nullable)
	CreatedAt     time.Time  // seat_reservations.created_at
	UpdatedAt     time.Time  // seat_reservations.updated_at
}
