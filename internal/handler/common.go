package handler // handler contains the HTTP endpoints of the booking API

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roomdesk/room-booking-api/internal/middleware"
	"github.com/roomdesk/room-booking-api/internal/model"
)

// dbTimeout bounds every repository call made from a handler.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// principal returns the authenticated user's id and role as stored by
// the JWT middleware.  Routes behind JWTAuth always have both.
func principal(c echo.Context) (uint64, string) {
	uid, _ := c.Get(middleware.ContextUserID).(uint64)
	role, _ := c.Get(middleware.ContextRole).(string)
	return uid, role
}

func isAdmin(role string) bool { return role == model.RoleAdmin }

// pathID parses the :id path parameter.  Zero and non-numeric values
// are both malformed; the zero return signals the caller to reject.
func pathID(c echo.Context) uint64 {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// queryUint parses an optional unsigned query parameter, returning nil
// when absent and ok=false when present but malformed.
func queryUint(c echo.Context, name string) (*uint64, bool) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return nil, false
	}
	return &v, true
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(c echo.Context, name string) (*time.Time, bool) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	u := t.UTC()
	return &u, true
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}
