// Package handler defines the HTTP handlers of the hostel booking API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/middleware"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/service"
)

// getUserID extracts the user_id set by BearerAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case int:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// caller builds the service-level identity of the authenticated user.
func caller(c echo.Context) (service.Caller, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Caller{}, err
	}
	role, _ := c.Get("role").(string)
	return service.Caller{UserID: id, Role: role}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID reads a positive integer query parameter.
func queryID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return id, err == nil && id > 0
}

// page reads limit/offset query parameters, clamping limit to [1,100].
func page(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// fail maps a domain error to a status code and a client-safe message.
// Unknown errors are logged and reported as 500 without detail.
func fail(c echo.Context, err error) error {
	var (
		status int
		msg    string
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrEmailExists):
		status, msg = http.StatusConflict, "email or phone already registered"
	case errors.Is(err, repository.ErrRoomUnavailable):
		status, msg = http.StatusConflict, "room is not available for these dates"
	case errors.Is(err, service.ErrBookingNotPayable):
		status, msg = http.StatusConflict, "booking cannot be paid in its current status"
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrInvalidAmount):
		status, msg = http.StatusBadRequest, "amount must be positive"
	default:
		middleware.Logger(c).Error("handler failed", zap.Error(err))
		status, msg = http.StatusInternalServerError, "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}
