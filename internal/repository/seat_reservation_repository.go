package repository

import (
	"context"
	"database/sql"

	"github.com/cinewave/showtime-booking/internal/model"
)

// SeatReservationRepo provides data access to the seat_reservations
// table, the per-showtime seat inventory.  All timestamps are UTC.
// The conditional UPDATE/DELETE statements here are the atomic
// compare-and-set primitives the state machine commits through:
// callers check RowsAffected to learn whether the guarded transition
// actually happened.
type SeatReservationRepo struct {
	db *sql.DB
}

// NewSeatReservationRepo returns a repo bound to the provided database.
func NewSeatReservationRepo(db *sql.DB) *SeatReservationRepo {
	return &SeatReservationRepo{db: db}
}

const reservationCols = `id, showtime_id, seat_id, user_id, status, hold_expires_at, created_at, updated_at`

func scanReservation(sc interface{ Scan(...any) error }) (model.SeatReservation, error) {
	var r model.SeatReservation
	var exp sql.NullTime
	err := sc.Scan(&r.ID, &r.ShowtimeID, &r.SeatID, &r.UserID, &r.Status, &exp, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if exp.Valid {
		t := exp.Time
		r.HoldExpiresAt = &t
	}
	return r, nil
}

// ListForShowtime returns every reservation row for a showtime,
// including HELD rows that are already past expiry.  Readers apply the
// value-based expiry check themselves, so a stale row can never be
// observed as unavailable.
func (r *SeatReservationRepo) ListForShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatReservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM seat_reservations WHERE showtime_id = ?`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatReservation
	for rows.Next() {
		rec, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSeatTx loads the reservation row for one seat with a row lock,
// or nil when the seat has no row.  Used inside the hold critical
// section after the distributed lock is acquired.
func (r *SeatReservationRepo) GetSeatTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (*model.SeatReservation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM seat_reservations
		 WHERE showtime_id = ? AND seat_id = ? FOR UPDATE`, showtimeID, seatID)
	rec, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReplaceHoldTx commits a hold transition: any prior row for the seat
// is removed (a row that reached this point is stale by the state
// machine's guard) and the new HELD row inserted.  Competing concurrent
// holds never reach this method because the lock manager serializes
// them.
func (r *SeatReservationRepo) ReplaceHoldTx(ctx context.Context, tx *sql.Tx, hold model.SeatReservation) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seat_reservations WHERE showtime_id = ? AND seat_id = ?`,
		hold.ShowtimeID, hold.SeatID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO seat_reservations (showtime_id, seat_id, user_id, status, hold_expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		hold.ShowtimeID, hold.SeatID, hold.UserID, hold.Status,
		hold.HoldExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	return err
}

// ReleaseHold deletes the caller's active hold on a seat.  The WHERE
// clause carries the full release guard (owner, HELD, unexpired) so
// another user's hold can never be released, and returns whether a row
// was actually removed.
func (r *SeatReservationRepo) ReleaseHold(ctx context.Context, showtimeID, seatID, userID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_reservations
		 WHERE showtime_id = ? AND seat_id = ? AND user_id = ? AND status = ?
		   AND hold_expires_at > UTC_TIMESTAMP()`,
		showtimeID, seatID, userID, model.ReservationHeld)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ActiveHeldByUserTx retrieves the user's unexpired holds for a
// showtime with row locks, for the booking finalizer's all-or-nothing
// check.
func (r *SeatReservationRepo) ActiveHeldByUserTx(ctx context.Context, tx *sql.Tx, showtimeID, userID uint64) ([]model.SeatReservation, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM seat_reservations
		 WHERE showtime_id = ? AND user_id = ? AND status = ?
		   AND hold_expires_at > UTC_TIMESTAMP() FOR UPDATE`,
		showtimeID, userID, model.ReservationHeld)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatReservation
	for rows.Next() {
		rec, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkBookedTx flips the user's valid holds on the given seats to
// BOOKED in one conditional statement.  It returns the number of rows
// flipped; the caller must verify it equals len(seatIDs) and roll the
// transaction back otherwise; a partial flip is never committed.
func (r *SeatReservationRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, showtimeID, userID uint64, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seat_reservations SET status = ?, hold_expires_at = NULL
	          WHERE showtime_id = ? AND user_id = ? AND status = ?
	            AND hold_expires_at > UTC_TIMESTAMP() AND seat_id IN (`
	args := []any{model.ReservationBooked, showtimeID, userID, model.ReservationHeld}
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, sid)
	}
	query += ")"
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteBookedTx removes BOOKED rows for the given seats, used when a
// booking is cancelled and its seats return to the pool.
func (r *SeatReservationRepo) DeleteBookedTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `DELETE FROM seat_reservations
	          WHERE showtime_id = ? AND status = ? AND seat_id IN (`
	args := []any{showtimeID, model.ReservationBooked}
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, sid)
	}
	query += ")"
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ExpiredHolds scans for HELD rows past their deadline, up to limit.
// Used by the background reaper; the lazy value-based check on reads
// makes this purely an optimization that frees seats promptly.
func (r *SeatReservationRepo) ExpiredHolds(ctx context.Context, limit int) ([]model.SeatReservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM seat_reservations
		 WHERE status = ? AND hold_expires_at <= UTC_TIMESTAMP()
		 ORDER BY hold_expires_at LIMIT ?`,
		model.ReservationHeld, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatReservation
	for rows.Next() {
		rec, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ExpireHold deletes a single expired hold by id.  The WHERE clause
// repeats the expire guard so the sweep can never race a booking that
// just flipped the row to BOOKED: if the row changed since the scan,
// zero rows match and the sweep moves on.
func (r *SeatReservationRepo) ExpireHold(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_reservations
		 WHERE id = ? AND status = ? AND hold_expires_at <= UTC_TIMESTAMP()`,
		id, model.ReservationHeld)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
