package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinewave/showtime-booking/internal/model"
)

// ShowtimeRepo provides data access to showtimes and their pricing
// tables.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a repo bound to the provided database.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *ShowtimeRepo) DB() *sql.DB { return r.db }

const showtimeCols = `id, movie_id, theater_id, screen_id, starts_at, language, format,
	total_seats, available_seats, status, created_at, updated_at`

func scanShowtime(sc interface{ Scan(...any) error }) (model.Showtime, error) {
	var s model.Showtime
	err := sc.Scan(&s.ID, &s.MovieID, &s.TheaterID, &s.ScreenID, &s.StartsAt, &s.Language,
		&s.Format, &s.TotalSeats, &s.AvailableSeats, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetByID fetches one showtime.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (model.Showtime, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+showtimeCols+` FROM showtimes WHERE id = ?`, id)
	s, err := scanShowtime(row)
	if err == sql.ErrNoRows {
		return s, ErrShowtimeNotFound
	}
	return s, err
}

// GetByIDTx fetches one showtime with a row lock, used by the booking
// finalizer and cancellation so the available-seat counter update
// cannot race.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Showtime, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+showtimeCols+` FROM showtimes WHERE id = ? FOR UPDATE`, id)
	s, err := scanShowtime(row)
	if err == sql.ErrNoRows {
		return s, ErrShowtimeNotFound
	}
	return s, err
}

// Pricing returns the showtime's price per seat type.
func (r *ShowtimeRepo) Pricing(ctx context.Context, showtimeID uint64) (map[model.SeatType]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_type, price FROM showtime_prices WHERE showtime_id = ?`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prices := make(map[model.SeatType]int64)
	for rows.Next() {
		var t model.SeatType
		var p int64
		if err := rows.Scan(&t, &p); err != nil {
			return nil, err
		}
		prices[t] = p
	}
	return prices, rows.Err()
}

// DecrementAvailableTx subtracts n booked seats from the counter.  The
// guard in the WHERE clause keeps the counter from going negative; a
// zero-row update means the inventory accounting is broken and the
// caller must abort.
func (r *ShowtimeRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE showtimes SET available_seats = available_seats - ?
		 WHERE id = ? AND available_seats >= ?`, n, id, n)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}

// IncrementAvailableTx returns n cancelled seats to the counter,
// capped at the total seat count.
func (r *ShowtimeRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE showtimes SET available_seats = LEAST(available_seats + ?, total_seats)
		 WHERE id = ?`, n, id)
	return err
}

// ShowtimeListing is a showtime row joined with the display fields
// browse responses need (movie title, theater name and location).
type ShowtimeListing struct {
	model.Showtime
	MovieTitle      string
	TheaterName     string
	TheaterLocation string
}

// ListByMovie returns scheduled showtimes for a movie, optionally
// filtered by calendar date, language and format, ordered by theater
// then start time for grouping in the handler.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64, date *time.Time, language, format string) ([]ShowtimeListing, error) {
	query := `SELECT s.id, s.movie_id, s.theater_id, s.screen_id, s.starts_at, s.language, s.format,
	                 s.total_seats, s.available_seats, s.status, s.created_at, s.updated_at,
	                 m.title, t.name, t.location
	          FROM showtimes s
	          JOIN movies m ON m.id = s.movie_id
	          JOIN theaters t ON t.id = s.theater_id
	          WHERE s.movie_id = ? AND s.status = ?`
	args := []any{movieID, model.ShowtimeScheduled}
	if date != nil {
		day := date.UTC().Truncate(24 * time.Hour)
		query += ` AND s.starts_at >= ? AND s.starts_at < ?`
		args = append(args, day, day.Add(24*time.Hour))
	}
	if language != "" {
		query += ` AND s.language = ?`
		args = append(args, language)
	}
	if format != "" {
		query += ` AND s.format = ?`
		args = append(args, format)
	}
	query += ` ORDER BY t.name, s.starts_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShowtimeListing
	for rows.Next() {
		var l ShowtimeListing
		if err := rows.Scan(&l.ID, &l.MovieID, &l.TheaterID, &l.ScreenID, &l.StartsAt, &l.Language,
			&l.Format, &l.TotalSeats, &l.AvailableSeats, &l.Status, &l.CreatedAt, &l.UpdatedAt,
			&l.MovieTitle, &l.TheaterName, &l.TheaterLocation); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
