package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewave/showtime-booking/internal/repository"
)

func updateMeContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/me", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(5))
	return c, rec
}

func userRow() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "password_hash", "role", "is_active", "created_at", "updated_at",
	}).AddRow(5, "Old Name", "user@example.com", "1112223333", "x", "CUSTOMER", true, now, now)
}

func TestUpdateMeRejectsBadInput(t *testing.T) {
	h := &AuthHandler{}

	c, rec := updateMeContext(t, `{}`)
	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty update must be rejected before any lookup")

	c, rec = updateMeContext(t, `{"phone":"12345"}`)
	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMeKeepsOmittedFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(5).
		WillReturnRows(userRow())
	mock.ExpectExec("UPDATE users SET name=.+, phone=.+ WHERE id=").
		WithArgs("New Name", "1112223333", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &AuthHandler{Users: repository.NewUserRepo(db)}
	c, rec := updateMeContext(t, `{"name":"New Name"}`)
	require.NoError(t, h.UpdateMe(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New Name")
	assert.Contains(t, rec.Body.String(), "1112223333", "omitted phone must keep its stored value")
	require.NoError(t, mock.ExpectationsWereMet())
}
