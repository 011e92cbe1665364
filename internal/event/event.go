// Package event defines the domain events emitted on every committed
// reservation transition and the topics they are partitioned into.
package event

import "time"

// Topic names.  Each topic maps to a durable queue on the broker so
// downstream consumers get at-least-once delivery.
const (
	TopicSeatUpdates    = "seat-updates"
	TopicBookingUpdates = "booking-updates"
	TopicPaymentUpdates = "payment-updates"
)

// SeatUpdate describes one seat's committed status transition.  It is
// published to the durable log and broadcast to the showtime's live
// room after every hold, release, booking, expiry and cancellation.
type SeatUpdate struct {
	ShowtimeID uint64    `json:"showtime_id"`
	SeatID     uint64    `json:"seat_id"`
	Status     string    `json:"status"` // available, blocked, occupied
	UserID     uint64    `json:"user_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingUpdate is published when a booking is created or cancelled.
type BookingUpdate struct {
	BookingID  uint64    `json:"booking_id"`
	BookingRef string    `json:"booking_ref"`
	UserID     uint64    `json:"user_id"`
	ShowtimeID uint64    `json:"showtime_id"`
	SeatIDs    []uint64  `json:"seat_ids,omitempty"`
	Status     string    `json:"status"` // created, cancelled
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentUpdate is published when a payment completes or fails.
type PaymentUpdate struct {
	BookingID uint64    `json:"booking_id"`
	UserID    uint64    `json:"user_id"`
	PaymentID string    `json:"payment_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Status    string    `json:"status"` // completed, failed
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
