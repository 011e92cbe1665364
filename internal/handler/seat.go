package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinewave/showtime-booking/internal/apperr"
	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/lock"
	"github.com/cinewave/showtime-booking/internal/model"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/repository"
	"github.com/cinewave/showtime-booking/internal/reservation"
)

// SeatHandler serves the live seat layout for a showtime and the
// hold / release operations that move individual seats through the
// reservation state machine.
type SeatHandler struct {
	Showtimes    *repository.ShowtimeRepo
	Theaters     *repository.TheaterRepo
	Reservations *repository.SeatReservationRepo
	Movies       *repository.MovieRepo
	Locker       *lock.SeatLocker
	Publisher    *event.Publisher
	Hub          *realtime.Hub
}

// seatView is one seat in the layout response.
type seatView struct {
	ID     uint64 `json:"id"`
	Label  string `json:"label"`
	Number uint32 `json:"number"`
	Type   string `json:"type"`
	Price  int64  `json:"price"`
	Status string `json:"status"` // available, blocked, occupied
}

// GetSeatLayout returns every seat of the showtime's screen grouped by
// row, with each seat's effective status at request time.  Holds whose
// deadline has passed are reported as available even if the reaper has
// not deleted them yet.
func (h *SeatHandler) GetSeatLayout(c echo.Context) error {
	showtimeID, ok := pathID(c, "showtimeID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()

	st, err := h.Showtimes.GetByID(ctx, showtimeID)
	if err == repository.ErrShowtimeNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	} else if err != nil {
		log.Printf("[SEAT] load showtime %d: %v", showtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtime"})
	}

	seats, err := h.Theaters.ScreenSeats(ctx, st.ScreenID)
	if err != nil {
		log.Printf("[SEAT] load seats for screen %d: %v", st.ScreenID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	prices, err := h.Showtimes.Pricing(ctx, showtimeID)
	if err != nil {
		log.Printf("[SEAT] load pricing for showtime %d: %v", showtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load pricing"})
	}
	reservations, err := h.Reservations.ListForShowtime(ctx, showtimeID)
	if err != nil {
		log.Printf("[SEAT] load reservations for showtime %d: %v", showtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}

	bySeat := make(map[uint64]*model.SeatReservation, len(reservations))
	for i := range reservations {
		bySeat[reservations[i].SeatID] = &reservations[i]
	}

	now := time.Now().UTC()
	layout := make(map[string][]seatView)
	available := 0
	for _, s := range seats {
		status := reservation.DisplayStatus(bySeat[s.ID], now)
		if status == reservation.StatusAvailable {
			available++
		}
		layout[s.RowLabel] = append(layout[s.RowLabel], seatView{
			ID:     s.ID,
			Label:  s.Label(),
			Number: s.SeatNumber,
			Type:   string(s.Type),
			Price:  prices[s.Type],
			Status: status,
		})
	}

	resp := echo.Map{
		"showtime": echo.Map{
			"id":        st.ID,
			"starts_at": st.StartsAt,
			"language":  st.Language,
			"format":    st.Format,
			"status":    st.Status,
		},
		"layout":          layout,
		"total_seats":     len(seats),
		"available_seats": available,
	}
	if mv, err := h.Movies.GetByID(ctx, st.MovieID); err == nil {
		resp["movie"] = echo.Map{"id": mv.ID, "title": mv.Title, "poster": mv.Poster}
	}
	if th, err := h.Theaters.GetByID(ctx, st.TheaterID); err == nil {
		resp["theater"] = echo.Map{"id": th.ID, "name": th.Name, "location": th.Location}
	}
	return c.JSON(http.StatusOK, resp)
}

type holdSeatRequest struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
}

// HoldSeat places a short-lived hold on a single seat.  The Redis seat
// lock serializes concurrent attempts on the same seat; the database
// transaction is the source of truth, so a lost or expired lock can
// never grant the seat twice.
func (h *SeatHandler) HoldSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req holdSeatRequest
	if err := c.Bind(&req); err != nil || req.ShowtimeID == 0 || req.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and seat_id are required"})
	}
	ctx := c.Request().Context()

	st, err := h.Showtimes.GetByID(ctx, req.ShowtimeID)
	if err == repository.ErrShowtimeNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	} else if err != nil {
		log.Printf("[SEAT] load showtime %d: %v", req.ShowtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtime"})
	}
	if st.Status != model.ShowtimeScheduled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime is not open for booking"})
	}
	if seats, err := h.Theaters.SeatsByIDs(ctx, st.ScreenID, []uint64{req.SeatID}); err != nil || len(seats) != 1 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found for this showtime"})
	}

	acquired, err := h.Locker.Acquire(ctx, req.ShowtimeID, req.SeatID, userID)
	if err != nil {
		log.Printf("[SEAT] lock %s: %v", lock.Key(req.ShowtimeID, req.SeatID), err)
		return statusFromErr(c, err)
	}
	if !acquired {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is being processed by another user"})
	}
	defer h.Locker.Release(ctx, req.ShowtimeID, req.SeatID)

	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	existing, err := h.Reservations.GetSeatTx(ctx, tx, req.ShowtimeID, req.SeatID)
	if err != nil {
		log.Printf("[SEAT] read reservation %d/%d: %v", req.ShowtimeID, req.SeatID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read seat state"})
	}
	if !reservation.CanHold(existing, now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
	}

	hold := reservation.NewHold(req.ShowtimeID, req.SeatID, userID, now)
	if err := h.Reservations.ReplaceHoldTx(ctx, tx, hold); err != nil {
		log.Printf("[SEAT] write hold %d/%d: %v", req.ShowtimeID, req.SeatID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hold seat"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hold seat"})
	}

	ev := event.SeatUpdate{
		ShowtimeID: req.ShowtimeID,
		SeatID:     req.SeatID,
		Status:     reservation.StatusBlocked,
		UserID:     userID,
		Timestamp:  now,
	}
	h.Publisher.SeatUpdated(ctx, ev)
	h.Hub.Broadcast(ctx, req.ShowtimeID, ev)

	return c.JSON(http.StatusOK, echo.Map{
		"message":         "seat held",
		"seat_id":         req.SeatID,
		"hold_expires_at": hold.HoldExpiresAt,
	})
}

type releaseSeatRequest struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
}

// ReleaseSeat voluntarily frees a seat the caller holds.  Releasing a
// seat held by someone else, a booked seat or a nonexistent hold all
// report not found; the conditional delete makes the check and the
// removal a single atomic step.
func (h *SeatHandler) ReleaseSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req releaseSeatRequest
	if err := c.Bind(&req); err != nil || req.ShowtimeID == 0 || req.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and seat_id are required"})
	}
	ctx := c.Request().Context()

	released, err := h.Reservations.ReleaseHold(ctx, req.ShowtimeID, req.SeatID, userID)
	if err != nil {
		log.Printf("[SEAT] release %d/%d: %v", req.ShowtimeID, req.SeatID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release seat"})
	}
	if !released {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active hold on this seat for this user"})
	}
	// The seat lock is not touched here: if one exists it belongs to a
	// hold attempt currently inside its critical section, and only that
	// handler may release it.  The conditional delete above is the
	// atomic step for this path.

	ev := event.SeatUpdate{
		ShowtimeID: req.ShowtimeID,
		SeatID:     req.SeatID,
		Status:     reservation.StatusAvailable,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}
	h.Publisher.SeatUpdated(ctx, ev)
	h.Hub.Broadcast(ctx, req.ShowtimeID, ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "seat released", "seat_id": req.SeatID})
}

// StreamSeatUpdates streams the showtime's live room over server-sent
// events.  Each broadcast seat transition arrives as one data frame;
// the stream ends when the client disconnects.
func (h *SeatHandler) StreamSeatUpdates(c echo.Context) error {
	showtimeID, ok := pathID(c, "showtimeID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	if _, err := h.Showtimes.GetByID(c.Request().Context(), showtimeID); err != nil {
		if err == repository.ErrShowtimeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtime"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	msgs, leave := h.Hub.Subscribe(showtimeID)
	defer leave()

	if _, err := w.Write([]byte(": connected\n\n")); err != nil {
		return nil
	}
	w.Flush()

	ctx := c.Request().Context()
	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return nil
			}
			w.Flush()
		case payload, open := <-msgs:
			if !open {
				return nil
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return nil
			}
			if _, err := w.Write(payload); err != nil {
				return nil
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// statusFromErr maps guard errors onto HTTP responses.  Used by the
// booking handlers that lean on the reservation package's guards.
func statusFromErr(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": err.Error()})
}
