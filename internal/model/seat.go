package model

import "strconv"

// SeatType classifies a seat for pricing purposes.  Each showtime
// carries its own price per seat type, so the type is the only
// pricing input that lives on the seat itself.
type SeatType string

const (
	SeatStandard SeatType = "STANDARD" // regular seat
	SeatPremium  SeatType = "PREMIUM"  // premium row
	SeatRecliner SeatType = "RECLINER" // recliner
)

// Seat is a physical seat inside a screen.  The seat layout is
// immutable reference data: once a screen is defined its seats never
// change.  Seats carry no reservation state; availability for a
// specific showtime is derived from seat_reservations.
//
// Fields:
//  ID         – primary key identifier.
//  ScreenID   – screen this seat belongs to.
//  RowLabel   – row letter (A, B, ...).
//  SeatNumber – position within the row.
//  Type       – seat type used for pricing.
type Seat struct {
	ID         uint64   // seats.id
	ScreenID   uint64   // seats.screen_id
	RowLabel   string   // seats.row_label
	SeatNumber uint32   // seats.seat_number
	Type       SeatType // seats.seat_type
}

// Label returns the human facing seat name, e.g. "C7".
func (s Seat) Label() string {
	return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}
