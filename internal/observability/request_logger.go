package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cityflow/crm/internal/auth"
)

// RequestLogger records latency per route template and logs one line per request. Probe and
// scrape endpoints are logged at debug.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		metrics.RecordRequest(route, c.Method(), status, elapsed)

		level := zapcore.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case route == "/metrics" || route == "/health/live" || route == "/health/ready":
			level = zapcore.DebugLevel
		}
		ce := logger.Check(level, "request")
		if ce == nil {
			return err
		}
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if session, ok := auth.SessionFromContext(c); ok {
			fields = append(fields, zap.String("profile_id", session.ProfileID), zap.String("role", string(session.Role)))
		}
		ce.Write(fields...)
		return err
	}
}
