// Package repository provides data access to the MySQL store.  This
// file defines sentinel errors reused across repositories so handlers
// can distinguish failure scenarios with errors.Is and map them onto
// the apperr taxonomy.
package repository

import "errors"

// ErrShowtimeNotFound is returned when a showtime id does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrBookingNotFound is returned when a booking does not exist or is
// owned by a different user; ownership is enforced in the repository
// so callers cannot leak other users' bookings.
var ErrBookingNotFound = errors.New("booking not found")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as confirming a booking that is not
// pending.
var ErrConflict = errors.New("conflict")
