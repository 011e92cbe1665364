package repository

import (
	"context"
	"database/sql"

	"github.com/cinewave/showtime-booking/internal/model"
)

// TheaterRepo provides read access to theaters, screens and their
// fixed seat layouts.  This service never mutates any of them.
type TheaterRepo struct {
	db *sql.DB
}

// NewTheaterRepo returns a repo bound to the provided database.
func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{db: db} }

// List returns theaters ordered by name, optionally filtered by city.
func (r *TheaterRepo) List(ctx context.Context, city string) ([]model.Theater, error) {
	query := `SELECT id, name, city, location FROM theaters`
	args := []any{}
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var theaters []model.Theater
	for rows.Next() {
		var t model.Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.City, &t.Location); err != nil {
			return nil, err
		}
		theaters = append(theaters, t)
	}
	return theaters, rows.Err()
}

// GetByID fetches one theater.
func (r *TheaterRepo) GetByID(ctx context.Context, id uint64) (model.Theater, error) {
	var t model.Theater
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, city, location FROM theaters WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.City, &t.Location)
	return t, err
}

// ScreenSeats returns the full, ordered seat layout of a screen.
func (r *TheaterRepo) ScreenSeats(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, screen_id, row_label, seat_number, seat_type
		 FROM seats WHERE screen_id = ? ORDER BY row_label, seat_number`, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreenID, &s.RowLabel, &s.SeatNumber, &s.Type); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeatsByIDs returns the subset of a screen's seats with the given
// ids.  Seats from other screens never match, so a caller passing a
// foreign seat id simply gets a shorter slice back.
func (r *TheaterRepo) SeatsByIDs(ctx context.Context, screenID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, screen_id, row_label, seat_number, seat_type
	          FROM seats WHERE screen_id = ? AND id IN (`
	args := []any{screenID}
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, sid)
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreenID, &s.RowLabel, &s.SeatNumber, &s.Type); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
