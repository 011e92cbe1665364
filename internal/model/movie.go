package model

import "time"

// Movie is display reference data used when populating showtime and
// booking responses.  The service never mutates movies.
type Movie struct {
	ID            uint64    // movies.id
	Title         string    // movies.title
	Description   string    // movies.description
	DurationMin   uint32    // movies.duration_min
	Certification string    // movies.certification
	Rating        float32   // movies.rating
	Poster        string    // movies.poster
	Status        string    // movies.status (NOW_SHOWING, COMING_SOON)
	ReleaseDate   time.Time // movies.release_date
}
