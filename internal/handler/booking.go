package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cinewave/showtime-booking/internal/apperr"
	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/model"
	"github.com/cinewave/showtime-booking/internal/notify"
	"github.com/cinewave/showtime-booking/internal/pricing"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/repository"
	"github.com/cinewave/showtime-booking/internal/reservation"
)

// BookingHandler finalizes held seats into priced bookings and handles
// listing, lookup and cancellation.
type BookingHandler struct {
	Bookings     *repository.BookingRepo
	Showtimes    *repository.ShowtimeRepo
	Theaters     *repository.TheaterRepo
	Reservations *repository.SeatReservationRepo
	Movies       *repository.MovieRepo
	Users        *repository.UserRepo
	Publisher    *event.Publisher
	Hub          *realtime.Hub
	Mailer       *notify.Mailer
}

type createBookingRequest struct {
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
	Contact    struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
}

// newBookingRef builds the external reference shown to users and used
// as the payment order receipt.
func newBookingRef() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func validDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreateBooking converts the caller's active holds into a PENDING
// booking.  Every requested seat must be held by the caller and
// unexpired at finalization time; one bad seat fails the whole
// request and no state changes.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ShowtimeID == 0 || len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and seat_ids are required"})
	}
	seen := make(map[uint64]struct{}, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
		}
		if _, dup := seen[id]; dup {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate seat id"})
		}
		seen[id] = struct{}{}
	}
	if !strings.Contains(req.Contact.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a valid contact email is required"})
	}
	if !validDigits(req.Contact.Phone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact phone must be 10 digits"})
	}
	ctx := c.Request().Context()

	st, err := h.Showtimes.GetByID(ctx, req.ShowtimeID)
	if err == repository.ErrShowtimeNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	} else if err != nil {
		log.Printf("[BOOKING] load showtime %d: %v", req.ShowtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtime"})
	}
	if st.Status != model.ShowtimeScheduled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime is not open for booking"})
	}

	seats, err := h.Theaters.SeatsByIDs(ctx, st.ScreenID, req.SeatIDs)
	if err != nil {
		log.Printf("[BOOKING] load seats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	if len(seats) != len(req.SeatIDs) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "one or more seats do not exist for this showtime"})
	}
	prices, err := h.Showtimes.Pricing(ctx, req.ShowtimeID)
	if err != nil {
		log.Printf("[BOOKING] load pricing: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load pricing"})
	}

	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	held, err := h.Reservations.ActiveHeldByUserTx(ctx, tx, req.ShowtimeID, userID)
	if err != nil {
		log.Printf("[BOOKING] load holds: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load holds"})
	}
	if err := reservation.ValidateBookable(held, req.SeatIDs, userID, now); err != nil {
		return statusFromErr(c, err)
	}

	var subtotal int64
	bookingSeats := make([]model.BookingSeat, 0, len(seats))
	for _, s := range seats {
		price, ok := prices[s.Type]
		if !ok {
			log.Printf("[BOOKING] no price for seat type %s on showtime %d", s.Type, req.ShowtimeID)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pricing is not configured for this showtime"})
		}
		subtotal += price
		bookingSeats = append(bookingSeats, model.BookingSeat{
			SeatID:     s.ID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			Type:       s.Type,
			Price:      price,
		})
	}
	quote := pricing.Compute(subtotal)

	booking := model.Booking{
		Ref:            newBookingRef(),
		UserID:         userID,
		ShowtimeID:     req.ShowtimeID,
		Subtotal:       quote.Subtotal,
		ConvenienceFee: quote.ConvenienceFee,
		Taxes:          quote.Taxes,
		FinalAmount:    quote.FinalAmount,
		Status:         model.BookingPending,
		ContactEmail:   req.Contact.Email,
		ContactPhone:   req.Contact.Phone,
	}
	if err := h.Bookings.CreateTx(ctx, tx, &booking); err != nil {
		log.Printf("[BOOKING] insert booking: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}
	for i := range bookingSeats {
		bookingSeats[i].BookingID = booking.ID
	}
	if err := h.Bookings.CreateSeatsBulkTx(ctx, tx, bookingSeats); err != nil {
		log.Printf("[BOOKING] insert booking seats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}

	affected, err := h.Reservations.MarkBookedTx(ctx, tx, req.ShowtimeID, userID, req.SeatIDs)
	if err != nil {
		log.Printf("[BOOKING] mark booked: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to finalize seats"})
	}
	if affected != int64(len(req.SeatIDs)) {
		// The holds were validated under the same row locks, so a
		// mismatch means the guards and the update disagree.
		log.Printf("[BOOKING] INVARIANT: booked %d of %d seats for showtime %d user %d, rolling back",
			affected, len(req.SeatIDs), req.ShowtimeID, userID)
		return statusFromErr(c, apperr.New(apperr.Invariant, "seat state diverged during booking finalization"))
	}
	decremented, err := h.Showtimes.DecrementAvailableTx(ctx, tx, req.ShowtimeID, uint32(len(req.SeatIDs)))
	if err != nil || !decremented {
		log.Printf("[BOOKING] decrement available seats: affected=%v err=%v", decremented, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to finalize seats"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}

	h.Publisher.BookingUpdated(ctx, event.BookingUpdate{
		BookingID:  booking.ID,
		BookingRef: booking.Ref,
		UserID:     userID,
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    req.SeatIDs,
		Status:     "created",
		Timestamp:  now,
	})
	for _, seatID := range req.SeatIDs {
		ev := event.SeatUpdate{
			ShowtimeID: req.ShowtimeID,
			SeatID:     seatID,
			Status:     reservation.StatusOccupied,
			UserID:     userID,
			Timestamp:  now,
		}
		h.Publisher.SeatUpdated(ctx, ev)
		h.Hub.Broadcast(ctx, req.ShowtimeID, ev)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"booking": echo.Map{
			"id":              booking.ID,
			"ref":             booking.Ref,
			"status":          booking.Status,
			"subtotal":        quote.Subtotal,
			"convenience_fee": quote.ConvenienceFee,
			"taxes":           quote.Taxes,
			"final_amount":    quote.FinalAmount,
		},
	})
}

// ListBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	summaries, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		log.Printf("[BOOKING] list for user %d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	views := make([]echo.Map, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, echo.Map{
			"id":           s.ID,
			"ref":          s.Ref,
			"movie":        s.MovieTitle,
			"theater":      s.TheaterName,
			"starts_at":    s.StartsAt,
			"language":     s.Language,
			"format":       s.Format,
			"final_amount": s.FinalAmount,
			"status":       s.Status,
			"created_at":   s.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": views, "count": len(views)})
}

// GetBooking returns one booking with its seat snapshots.  Bookings
// belonging to other users are reported as not found.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, seats, err := h.Bookings.GetByIDForUser(c.Request().Context(), id, userID)
	if err == repository.ErrBookingNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	} else if err != nil {
		log.Printf("[BOOKING] load %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": bookingJSON(booking, seats)})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking cancels a confirmed booking, frees its seats and
// queues a full refund.  Cancellation closes twenty minutes before
// the showtime starts.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req cancelBookingRequest
	_ = c.Bind(&req)
	ctx := c.Request().Context()

	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback()

	booking, err := h.Bookings.GetByIDForUserTx(ctx, tx, id, userID)
	if err == repository.ErrBookingNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	} else if err != nil {
		log.Printf("[BOOKING] load %d for cancel: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	st, err := h.Showtimes.GetByIDTx(ctx, tx, booking.ShowtimeID)
	if err != nil {
		log.Printf("[BOOKING] load showtime %d for cancel: %v", booking.ShowtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtime"})
	}
	now := time.Now().UTC()
	if err := reservation.CanCancelBooking(booking.Status, st.StartsAt, now); err != nil {
		return statusFromErr(c, err)
	}

	cancelled, err := h.Bookings.CancelTx(ctx, tx, id, req.Reason, booking.FinalAmount)
	if err != nil {
		log.Printf("[BOOKING] cancel %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	if !cancelled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a cancellable state"})
	}

	seats, err := h.Bookings.SeatsTx(ctx, tx, id)
	if err != nil {
		log.Printf("[BOOKING] load seats for cancel %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	seatIDs := make([]uint64, 0, len(seats))
	for _, s := range seats {
		seatIDs = append(seatIDs, s.SeatID)
	}
	if err := h.Reservations.DeleteBookedTx(ctx, tx, booking.ShowtimeID, seatIDs); err != nil {
		log.Printf("[BOOKING] free seats for cancel %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	if err := h.Showtimes.IncrementAvailableTx(ctx, tx, booking.ShowtimeID, uint32(len(seatIDs))); err != nil {
		log.Printf("[BOOKING] restore available seats for cancel %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}

	h.Publisher.BookingUpdated(ctx, event.BookingUpdate{
		BookingID:  booking.ID,
		BookingRef: booking.Ref,
		UserID:     userID,
		ShowtimeID: booking.ShowtimeID,
		SeatIDs:    seatIDs,
		Status:     "cancelled",
		Timestamp:  now,
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
	h.notifyCancelled(ctx, booking)

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "booking cancelled",
		"booking_id":    booking.ID,
		"refund_amount": booking.FinalAmount,
		"refund_status": model.RefundPending,
	})
}

// notifyCancelled emails the cancellation receipt.  Lookup failures
// only degrade the email contents, never the response.
func (h *BookingHandler) notifyCancelled(ctx context.Context, b model.Booking) {
	if h.Mailer == nil {
		return
	}
	userName := ""
	if u, err := h.Users.GetByID(ctx, b.UserID); err == nil {
		userName = u.Name
	}
	movieTitle := ""
	if st, err := h.Showtimes.GetByID(ctx, b.ShowtimeID); err == nil {
		if mv, err := h.Movies.GetByID(ctx, st.MovieID); err == nil {
			movieTitle = mv.Title
		}
	}
	h.Mailer.BookingCancelled(b, userName, movieTitle)
}

// bookingJSON shapes a booking plus its seat snapshots for responses.
func bookingJSON(b model.Booking, seats []model.BookingSeat) echo.Map {
	seatViews := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		seatViews = append(seatViews, echo.Map{
			"seat_id": s.SeatID,
			"label":   s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10),
			"number":  s.SeatNumber,
			"type":    s.Type,
			"price":   s.Price,
		})
	}
	m := echo.Map{
		"id":              b.ID,
		"ref":             b.Ref,
		"showtime_id":     b.ShowtimeID,
		"seats":           seatViews,
		"subtotal":        b.Subtotal,
		"convenience_fee": b.ConvenienceFee,
		"taxes":           b.Taxes,
		"final_amount":    b.FinalAmount,
		"status":          b.Status,
		"contact": echo.Map{
			"email": b.ContactEmail,
			"phone": b.ContactPhone,
		},
		"payment": echo.Map{
			"order_id":   b.Payment.OrderID,
			"payment_id": b.Payment.PaymentID,
			"status":     b.Payment.Status,
			"paid_at":    b.Payment.PaidAt,
		},
		"created_at": b.CreatedAt,
	}
	if b.Cancellation != nil {
		m["cancellation"] = echo.Map{
			"cancelled_at":  b.Cancellation.CancelledAt,
			"reason":        b.Cancellation.Reason,
			"refund_amount": b.Cancellation.RefundAmount,
			"refund_status": b.Cancellation.RefundStatus,
		}
	}
	return m
}
