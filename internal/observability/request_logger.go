package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Request locals that handlers set so log lines can be tied to a ticket.
const (
	LocalTicketID   = "ticket_id"
	LocalAnalysisID = "analysis_id"
)

// RequestFields returns the request id and any ticket or analysis id the
// handler stored on the context.
func RequestFields(c *fiber.Ctx) []zap.Field {
	var fields []zap.Field
	for _, key := range []string{"requestid", LocalTicketID, LocalAnalysisID} {
		if v, ok := c.Locals(key).(string); ok && v != "" {
			name := key
			if key == "requestid" {
				name = "request_id"
			}
			fields = append(fields, zap.String(name, v))
		}
	}
	return fields
}

// RequestLogger logs each request and records its metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		metrics.RecordRequest(route, c.Method(), status, latency)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		fields = append(fields, RequestFields(c)...)
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request completed", fields...)
		} else {
			logger.Info("request completed", fields...)
		}
		return err
	}
}
