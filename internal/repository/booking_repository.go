package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinewave/showtime-booking/internal/model"
)

// BookingRepo provides data access to bookings and their seat
// snapshots.  Ownership is enforced here: every read takes the user id
// and queries for it, so a handler can never return another user's
// booking by mistake.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a repo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `id, booking_ref, user_id, showtime_id, subtotal, convenience_fee, taxes,
	final_amount, status, contact_email, contact_phone,
	payment_order_id, payment_id, payment_status, paid_at,
	cancelled_at, cancel_reason, refund_amount, refund_status,
	created_at, updated_at`

func scanBooking(sc interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	var paidAt, cancelledAt sql.NullTime
	var cancelReason, refundStatus sql.NullString
	var refundAmount sql.NullInt64
	err := sc.Scan(&b.ID, &b.Ref, &b.UserID, &b.ShowtimeID, &b.Subtotal, &b.ConvenienceFee,
		&b.Taxes, &b.FinalAmount, &b.Status, &b.ContactEmail, &b.ContactPhone,
		&b.Payment.OrderID, &b.Payment.PaymentID, &b.Payment.Status, &paidAt,
		&cancelledAt, &cancelReason, &refundAmount, &refundStatus,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		b.Payment.PaidAt = &t
	}
	if cancelledAt.Valid {
		b.Cancellation = &model.Cancellation{
			CancelledAt:  cancelledAt.Time,
			Reason:       cancelReason.String,
			RefundAmount: refundAmount.Int64,
			RefundStatus: refundStatus.String,
		}
	}
	return b, nil
}

// CreateTx inserts a PENDING booking and populates its ID.  The
// caller commits or rolls back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_ref, user_id, showtime_id, subtotal, convenience_fee,
		   taxes, final_amount, status, contact_email, contact_phone, payment_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Ref, b.UserID, b.ShowtimeID, b.Subtotal, b.ConvenienceFee, b.Taxes,
		b.FinalAmount, b.Status, b.ContactEmail, b.ContactPhone, model.PaymentPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateSeatsBulkTx inserts the booking's seat snapshots in one
// statement.  Passing an empty slice has no effect.
func (r *BookingRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id, row_label, seat_number, seat_type, price) VALUES `
	args := make([]any, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, s.BookingID, s.SeatID, s.RowLabel, s.SeatNumber, s.Type, s.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByIDForUser fetches one booking together with its seat snapshots.
// Returns ErrBookingNotFound when the booking does not exist or is
// owned by someone else.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.Booking, []model.BookingSeat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return b, nil, ErrBookingNotFound
	}
	if err != nil {
		return b, nil, err
	}
	seats, err := r.Seats(ctx, id)
	if err != nil {
		return b, nil, err
	}
	return b, seats, nil
}

// GetByIDForUserTx is GetByIDForUser with a row lock and without seat
// snapshots, for payment verification and cancellation flows that are
// about to mutate the booking.
func (r *BookingRepo) GetByIDForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = ? AND user_id = ? FOR UPDATE`, id, userID)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return b, ErrBookingNotFound
	}
	return b, err
}

// Seats returns the seat snapshots of a booking.
func (r *BookingRepo) Seats(ctx context.Context, bookingID uint64) ([]model.BookingSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, seat_id, row_label, seat_number, seat_type, price
		 FROM booking_seats WHERE booking_id = ? ORDER BY row_label, seat_number`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingSeat
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatID, &s.RowLabel, &s.SeatNumber, &s.Type, &s.Price); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeatsTx is Seats inside a caller transaction.
func (r *BookingRepo) SeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.BookingSeat, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, booking_id, seat_id, row_label, seat_number, seat_type, price
		 FROM booking_seats WHERE booking_id = ? ORDER BY row_label, seat_number`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingSeat
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatID, &s.RowLabel, &s.SeatNumber, &s.Type, &s.Price); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BookingSummary is a booking joined with the display fields the list
// endpoint needs.
type BookingSummary struct {
	model.Booking
	MovieTitle  string
	TheaterName string
	StartsAt    time.Time
	Language    string
	Format      string
}

// ListByUser returns the user's bookings newest first, populated with
// movie and theater display data.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.booking_ref, b.user_id, b.showtime_id, b.subtotal, b.convenience_fee,
		        b.taxes, b.final_amount, b.status, b.contact_email, b.contact_phone,
		        b.payment_order_id, b.payment_id, b.payment_status, b.paid_at,
		        b.cancelled_at, b.cancel_reason, b.refund_amount, b.refund_status,
		        b.created_at, b.updated_at,
		        m.title, t.name, s.starts_at, s.language, s.format
		 FROM bookings b
		 JOIN showtimes s ON s.id = b.showtime_id
		 JOIN movies m ON m.id = s.movie_id
		 JOIN theaters t ON t.id = s.theater_id
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingSummary
	for rows.Next() {
		var sum BookingSummary
		var paidAt, cancelledAt sql.NullTime
		var cancelReason, refundStatus sql.NullString
		var refundAmount sql.NullInt64
		if err := rows.Scan(&sum.ID, &sum.Ref, &sum.UserID, &sum.ShowtimeID, &sum.Subtotal,
			&sum.ConvenienceFee, &sum.Taxes, &sum.FinalAmount, &sum.Status,
			&sum.ContactEmail, &sum.ContactPhone,
			&sum.Payment.OrderID, &sum.Payment.PaymentID, &sum.Payment.Status, &paidAt,
			&cancelledAt, &cancelReason, &refundAmount, &refundStatus,
			&sum.CreatedAt, &sum.UpdatedAt,
			&sum.MovieTitle, &sum.TheaterName, &sum.StartsAt, &sum.Language, &sum.Format); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			sum.Payment.PaidAt = &t
		}
		if cancelledAt.Valid {
			sum.Cancellation = &model.Cancellation{
				CancelledAt:  cancelledAt.Time,
				Reason:       cancelReason.String,
				RefundAmount: refundAmount.Int64,
				RefundStatus: refundStatus.String,
			}
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SetPaymentOrder records the provider order id on a pending booking.
func (r *BookingRepo) SetPaymentOrder(ctx context.Context, id uint64, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_order_id = ? WHERE id = ? AND status = ?`,
		orderID, id, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ConfirmTx flips a PENDING booking to CONFIRMED with its payment
// details.  The status guard in the WHERE clause makes verification
// idempotent: re-verifying an already-confirmed booking affects zero
// rows and the caller reports success without double-charging.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, paymentID, orderID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_id = ?, payment_order_id = ?,
		   payment_status = ?, paid_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ?`,
		model.BookingConfirmed, paymentID, orderID, model.PaymentCompleted,
		id, model.BookingPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPaymentFailedTx records a failed payment and cancels the
// pending booking.
func (r *BookingRepo) MarkPaymentFailedTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ?
		 WHERE id = ? AND status = ?`,
		model.BookingCancelled, model.PaymentFailed, id, model.BookingPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelTx cancels a CONFIRMED booking, recording the reason and a
// pending refund of the full amount.  The status guard means a
// concurrent double-cancel affects zero rows.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, reason string, refundAmount int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = UTC_TIMESTAMP(), cancel_reason = ?,
		   refund_amount = ?, refund_status = ?
		 WHERE id = ? AND status = ?`,
		model.BookingCancelled, reason, refundAmount, model.RefundPending,
		id, model.BookingConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
