package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/observability"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// RegisterMiddlewares installs the analysis deadline, the error envelope and
// request logging, outermost first.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(analysisDeadline(timeout))
	}
	app.Use(errorEnvelope(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

// analysisDeadline bounds the context every handler hands to the agent.
func analysisDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorEnvelope(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				fields := append(observability.RequestFields(c), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				logger.Error("panic recovered", fields...)
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			de := classify(c, err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), de.Code)
			}
			if de.HTTPStatus >= fiber.StatusInternalServerError {
				fields := append(observability.RequestFields(c), zap.String("code", de.Code), zap.Error(de))
				logger.Error("request failed", fields...)
			}
			body := fiber.Map{"code": de.Code, "message": de.Message}
			if len(de.Details) > 0 {
				body["details"] = de.Details
			}
			_ = c.Status(de.HTTPStatus).JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}

// classify maps err to its envelope. A request whose deadline expired is a
// timeout even when the failing layer did not wrap the context error.
func classify(c *fiber.Ctx, err error) *apperrors.DomainError {
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus < fiber.StatusInternalServerError || de.Code == "ANALYSIS_TIMEOUT" {
		return de
	}
	if errors.Is(c.UserContext().Err(), context.DeadlineExceeded) {
		if timeout, ok := apperrors.NewTimeout(err).(*apperrors.DomainError); ok {
			return timeout
		}
	}
	return de
}
