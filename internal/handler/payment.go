package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/model"
	"github.com/cinewave/showtime-booking/internal/notify"
	"github.com/cinewave/showtime-booking/internal/payment"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/repository"
	"github.com/cinewave/showtime-booking/internal/reservation"
)

// PaymentHandler drives a PENDING booking through the payment
// provider: order creation, signature verification and failure
// recording.
type PaymentHandler struct {
	Bookings     *repository.BookingRepo
	Showtimes    *repository.ShowtimeRepo
	Reservations *repository.SeatReservationRepo
	Movies       *repository.MovieRepo
	Theaters     *repository.TheaterRepo
	Users        *repository.UserRepo
	Provider     *payment.Client
	Publisher    *event.Publisher
	Hub          *realtime.Hub
	Mailer       *notify.Mailer
}

type createOrderRequest struct {
	BookingID uint64 `json:"booking_id"`
}

// CreateOrder opens a provider order for a pending booking.  The
// provider works in the currency's smallest unit, so the amount is
// converted before the call.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req createOrderRequest
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}
	if !h.Provider.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment provider is not configured"})
	}
	ctx := c.Request().Context()

	booking, _, err := h.Bookings.GetByIDForUser(ctx, req.BookingID, userID)
	if err == repository.ErrBookingNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	} else if err != nil {
		log.Printf("[PAYMENT] load booking %d: %v", req.BookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	if booking.Status != model.BookingPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking is not awaiting payment"})
	}

	order, err := h.Provider.CreateOrder(ctx, booking.FinalAmount*100, "INR", booking.Ref, map[string]string{
		"booking_id": booking.Ref,
	})
	if err != nil {
		log.Printf("[PAYMENT] create order for booking %d: %v", booking.ID, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider rejected the order"})
	}
	if err := h.Bookings.SetPaymentOrder(ctx, booking.ID, order.ID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is no longer awaiting payment"})
		}
		log.Printf("[PAYMENT] store order %s: %v", order.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store payment order"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":   order.ID,
		"amount":     order.Amount,
		"currency":   order.Currency,
		"booking_id": booking.ID,
	})
}

type verifyPaymentRequest struct {
	BookingID uint64 `json:"booking_id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// VerifyPayment confirms a booking after checking the provider's
// HMAC signature.  Verification is idempotent: repeating it for an
// already confirmed booking succeeds without side effects.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil || req.BookingID == 0 || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id, order_id, payment_id and signature are required"})
	}
	if !h.Provider.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment signature"})
	}
	ctx := c.Request().Context()

	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback()

	booking, err := h.Bookings.GetByIDForUserTx(ctx, tx, req.BookingID, userID)
	if err == repository.ErrBookingNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	} else if err != nil {
		log.Printf("[PAYMENT] load booking %d: %v", req.BookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	switch booking.Status {
	case model.BookingConfirmed:
		return c.JSON(http.StatusOK, echo.Map{
			"message": "payment already verified",
			"booking": echo.Map{"id": booking.ID, "ref": booking.Ref, "status": booking.Status},
		})
	case model.BookingCancelled:
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking has been cancelled"})
	}
	if booking.Payment.OrderID != "" && booking.Payment.OrderID != req.OrderID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order does not belong to this booking"})
	}

	confirmed, err := h.Bookings.ConfirmTx(ctx, tx, booking.ID, req.PaymentID, req.OrderID)
	if err != nil {
		log.Printf("[PAYMENT] confirm booking %d: %v", booking.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm booking"})
	}
	if !confirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not awaiting payment"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm booking"})
	}

	now := time.Now().UTC()
	h.Publisher.PaymentUpdated(ctx, event.PaymentUpdate{
		BookingID: booking.ID,
		UserID:    userID,
		PaymentID: req.PaymentID,
		Amount:    booking.FinalAmount,
		Status:    "completed",
		Timestamp: now,
	})
	h.Publisher.BookingUpdated(ctx, event.BookingUpdate{
		BookingID:  booking.ID,
		BookingRef: booking.Ref,
		UserID:     userID,
		ShowtimeID: booking.ShowtimeID,
		Status:     "confirmed",
		Timestamp:  now,
	})
	h.notifyConfirmed(ctx, booking)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "payment verified",
		"booking": echo.Map{"id": booking.ID, "ref": booking.Ref, "status": model.BookingConfirmed},
	})
}

type paymentFailureRequest struct {
	BookingID uint64 `json:"booking_id"`
	Error     string `json:"error"`
}

// PaymentFailure cancels a pending booking after the provider reports
// a failed payment and frees its seats so others can book them.
func (h *PaymentHandler) PaymentFailure(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req paymentFailureRequest
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}
	ctx := c.Request().Context()

	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback()

	booking, err := h.Bookings.GetByIDForUserTx(ctx, tx, req.BookingID, userID)
	if err == repository.ErrBookingNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	} else if err != nil {
		log.Printf("[PAYMENT] load booking %d: %v", req.BookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	failed, err := h.Bookings.MarkPaymentFailedTx(ctx, tx, booking.ID)
	if err != nil {
		log.Printf("[PAYMENT] mark failed %d: %v", booking.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment failure"})
	}
	if !failed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not awaiting payment"})
	}

	seats, err := h.Bookings.SeatsTx(ctx, tx, booking.ID)
	if err != nil {
		log.Printf("[PAYMENT] load seats for %d: %v", booking.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment failure"})
	}
	seatIDs := make([]uint64, 0, len(seats))
	for _, s := range seats {
		seatIDs = append(seatIDs, s.SeatID)
	}
	if err := h.Reservations.DeleteBookedTx(ctx, tx, booking.ShowtimeID, seatIDs); err != nil {
		log.Printf("[PAYMENT] free seats for %d: %v", booking.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment failure"})
	}
	if err := h.Showtimes.IncrementAvailableTx(ctx, tx, booking.ShowtimeID, uint32(len(seatIDs))); err != nil {
		log.Printf("[PAYMENT] restore available seats for %d: %v", booking.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment failure"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment failure"})
	}

	now := time.Now().UTC()
	h.Publisher.PaymentUpdated(ctx, event.PaymentUpdate{
		BookingID: booking.ID,
		UserID:    userID,
		Amount:    booking.FinalAmount,
		Status:    "failed",
		Error:     req.Error,
		Timestamp: now,
	})
	for _, seatID := range seatIDs {
		ev := event.SeatUpdate{
			ShowtimeID: booking.ShowtimeID,
			SeatID:     seatID,
			Status:     reservation.StatusAvailable,
			Timestamp:  now,
		}
		h.Publisher.SeatUpdated(ctx, ev)
		h.Hub.Broadcast(ctx, booking.ShowtimeID, ev)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "payment failure recorded", "booking_id": booking.ID})
}

// notifyConfirmed emails the ticket confirmation.  All lookups are
// best effort.
func (h *PaymentHandler) notifyConfirmed(ctx context.Context, b model.Booking) {
	if h.Mailer == nil {
		return
	}
	seats, err := h.Bookings.Seats(ctx, b.ID)
	if err != nil {
		return
	}
	userName, movieTitle, theaterName, startsAt := "", "", "", ""
	if u, err := h.Users.GetByID(ctx, b.UserID); err == nil {
		userName = u.Name
	}
	if st, err := h.Showtimes.GetByID(ctx, b.ShowtimeID); err == nil {
		startsAt = st.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST")
		if mv, err := h.Movies.GetByID(ctx, st.MovieID); err == nil {
			movieTitle = mv.Title
		}
		if th, err := h.Theaters.GetByID(ctx, st.TheaterID); err == nil {
			theaterName = th.Name
		}
	}
	h.Mailer.BookingConfirmed(b, seats, userName, movieTitle, theaterName, startsAt)
}
