package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"hr-backoffice/pkg/utils"
)

// RequestLogger logs one line per request after the handler has run.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", utils.GetRequestIDFromCtx(req.Context())),
			}
			if actor := utils.GetUserIDFromCtx(req.Context()); actor != nil {
				fields = append(fields, zap.Uint64("actor_id", *actor))
			}

			switch status := c.Response().Status; {
			case status >= 500:
				logger.Error("request failed", append(fields, zap.Error(err))...)
			case status >= 400:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request handled", fields...)
			}
			return nil
		}
	}
}
