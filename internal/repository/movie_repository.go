package repository

import (
	"context"
	"database/sql"

	"github.com/cinewave/showtime-booking/internal/model"
)

// MovieRepo provides read access to the movie catalogue for browse
// responses and populated booking data.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a repo bound to the provided database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieCols = `id, title, description, duration_min, certification, rating, poster, status, release_date`

// GetByID fetches one movie.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT `+movieCols+` FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.DurationMin, &m.Certification,
			&m.Rating, &m.Poster, &m.Status, &m.ReleaseDate)
	if err == sql.ErrNoRows {
		return m, ErrMovieNotFound
	}
	return m, err
}

// ListByStatus returns movies with the given catalogue status
// (NOW_SHOWING, COMING_SOON), newest release first.
func (r *MovieRepo) ListByStatus(ctx context.Context, status string) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieCols+` FROM movies WHERE status = ? ORDER BY release_date DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMin, &m.Certification,
			&m.Rating, &m.Poster, &m.Status, &m.ReleaseDate); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
