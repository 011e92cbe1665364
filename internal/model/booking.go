package model

import "time"

// Booking statuses.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Payment statuses stored on the booking's payment sub-record.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Refund statuses for cancelled bookings.
const (
	RefundPending   = "PENDING"
	RefundProcessed = "PROCESSED"
)

// Booking is a finalized, priced reservation of one or more seats for
// a showtime.  Seat data is snapshotted into BookingSeat rows at
// creation time so later seat-map changes never alter a booking.  All
// monetary amounts are in whole currency units and are immutable once
// computed.
//
// Lifecycle: PENDING on creation, CONFIRMED on payment verification,
// CANCELLED on user cancellation before the pre-show cutoff or on
// payment failure.
//
// Fields:
//  ID             – primary key identifier.
//  Ref            – external booking reference shown to the user.
//  UserID         – owning user.
//  ShowtimeID     – showtime being booked.
//  Subtotal       – sum of snapshotted seat prices.
//  ConvenienceFee – round(subtotal × 0.15).
//  Taxes          – round((subtotal + fee) × 0.18).
//  FinalAmount    – subtotal + fee + taxes.
//  Status         – PENDING, CONFIRMED or CANCELLED.
//  ContactEmail   – email for notifications.
//  ContactPhone   – phone for notifications.
//  Payment        – payment sub-record.
//  Cancellation   – cancellation sub-record, nil unless cancelled.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Booking struct {
	ID             uint64        // bookings.id
	Ref            string        // bookings.booking_ref
	UserID         uint64        // bookings.user_id
	ShowtimeID     uint64        // bookings.showtime_id
	Subtotal       int64         // bookings.subtotal
	ConvenienceFee int64         // bookings.convenience_fee
	Taxes          int64         // bookings.taxes
	FinalAmount    int64         // bookings.final_amount
	Status         string        // bookings.status
	ContactEmail   string        // bookings.contact_email
	ContactPhone   string        // bookings.contact_phone
	Payment        Payment       // bookings.payment_* columns
	Cancellation   *Cancellation // bookings.cancel_* columns (nullable)
	CreatedAt      time.Time     // bookings.created_at
	UpdatedAt      time.Time     // bookings.updated_at
}

// BookingSeat is the price-locked snapshot of one seat inside a
// booking.  RowLabel, SeatNumber, Type and Price are copied from the
// seat map at booking time.
type BookingSeat struct {
	ID        uint64   // booking_seats.id
	BookingID uint64   // booking_seats.booking_id
	SeatID    uint64   // booking_seats.seat_id
	RowLabel  string   // booking_seats.row_label
	SeatNumber uint32  // booking_seats.seat_number
	Type      SeatType // booking_seats.seat_type
	Price     int64    // booking_seats.price
}

// Payment is the payment sub-record embedded in a booking.  OrderID is
// assigned when a provider order is created; PaymentID and PaidAt are
// set on successful verification.
type Payment struct {
	OrderID   string     // bookings.payment_order_id
	PaymentID string     // bookings.payment_id
	Status    string     // bookings.payment_status
	PaidAt    *time.Time // bookings.paid_at (nullable)
}

// Cancellation records why and when a booking was cancelled and the
// refund owed to the user.
type Cancellation struct {
	CancelledAt  time.Time // bookings.cancelled_at
	Reason       string    // bookings.cancel_reason
	RefundAmount int64     // bookings.refund_amount
	RefundStatus string    // bookings.refund_status
}
