package middleware

import (
	"time"

	"storefront-checkout/internal/logging"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger puts a request-scoped logger in the request context and logs
// one line per request. Run it after the request id middleware.
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			l := base.With(
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			}
			if userID, ok := c.Get(UserIDKey).(string); ok {
				fields = append(fields, zap.String("user_id", userID))
			}
			if c.Response().Status >= 500 {
				l.Error("request", fields...)
			} else {
				l.Info("request", fields...)
			}
			return nil
		}
	}
}
