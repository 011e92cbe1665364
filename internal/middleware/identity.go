package middleware

// identity.go provides a user identifier for rate-limit keys.  The
// JWTAuth middleware stores the sub claim under "user_id"; anything
// missing or untyped falls back to "guest".

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts a printable user identifier from the request
// context, or "guest" when the request is unauthenticated.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64:
		return fmt.Sprintf("%d", t)
	}
	return "guest"
}
