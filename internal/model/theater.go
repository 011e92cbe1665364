package model

// Theater hosts one or more screens.  Like movies, theaters are
// read-only reference data for this service; layout generation and
// theater administration live elsewhere.
type Theater struct {
	ID       uint64 // theaters.id
	Name     string // theaters.name
	City     string // theaters.city
	Location string // theaters.location
}

// Screen is an auditorium inside a theater.  Its seat layout is fixed
// at creation time and shared by every showtime scheduled on it.
type Screen struct {
	ID        uint64 // screens.id
	TheaterID uint64 // screens.theater_id
	Name      string // screens.name
	SeatCount uint32 // screens.seat_count
}
