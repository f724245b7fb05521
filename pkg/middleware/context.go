package middleware

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"hr-backoffice/pkg/utils"
)

const (
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID is set by the auth gateway in front of this service.
	HeaderUserID = "X-User-ID"
)

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, requestID)
			c.SetRequest(c.Request().WithContext(utils.WithRequestID(c.Request().Context(), requestID)))
			return next(c)
		}
	}
}

// Actor stores the acting user id from X-User-ID in the request context. A missing header
// means a system action; a malformed one is rejected.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(HeaderUserID)
			if raw == "" {
				return next(c)
			}
			userID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || userID == 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+HeaderUserID+" header")
			}
			c.SetRequest(c.Request().WithContext(utils.WithUserID(c.Request().Context(), userID)))
			return next(c)
		}
	}
}
