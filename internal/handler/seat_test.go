package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/lock"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/repository"
)

func releaseContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/seats/release", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(5))
	return c, rec
}

// Releasing a hold while another user's hold attempt owns the seat
// lock must leave that lock alone; the release path's atomic step is
// the conditional delete, not the lock.
func TestReleaseSeatLeavesForeignLockAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	locker := lock.NewSeatLocker(rdb, lock.DefaultTTL)

	// User 77 is mid-hold on the same seat and owns the lock.
	owned, err := locker.Acquire(context.Background(), 10, 20, 77)
	require.NoError(t, err)
	require.True(t, owned)

	mock.ExpectExec("DELETE FROM seat_reservations").
		WithArgs(10, 20, 5, "HELD").
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &SeatHandler{
		Reservations: repository.NewSeatReservationRepo(db),
		Locker:       locker,
		Publisher:    event.NewPublisher(""),
		Hub:          realtime.NewHub(nil),
	}
	c, rec := releaseContext(t, `{"showtime_id":10,"seat_id":20}`)
	require.NoError(t, h.ReleaseSeat(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists(lock.Key(10, 20)), "another holder's lock must survive the release")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatWithoutMatchingHoldIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM seat_reservations").
		WithArgs(10, 20, 5, "HELD").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := &SeatHandler{
		Reservations: repository.NewSeatReservationRepo(db),
		Locker:       lock.NewSeatLocker(rdb, lock.DefaultTTL),
		Publisher:    event.NewPublisher(""),
		Hub:          realtime.NewHub(nil),
	}
	c, rec := releaseContext(t, `{"showtime_id":10,"seat_id":20}`)
	require.NoError(t, h.ReleaseSeat(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
