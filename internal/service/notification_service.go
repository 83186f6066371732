package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/events"
)

// Enqueuer hands an event to an asynchronous worker. It reports false when
// the event was dropped.
type Enqueuer func(events.Event) bool

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to analysis events. With a nil enqueue the
// webhook is called inline.
func (n *NotificationService) RegisterHandlers(enqueue Enqueuer) {
	if n.dispatcher == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		n.logger.Info(string(event.Type),
			zap.String("ticket_id", event.TicketID),
			zap.String("analysis_id", event.AnalysisID),
			zap.Any("payload", event.Payload),
		)
		if !n.WebhookEnabled() {
			return nil
		}
		if enqueue == nil {
			return n.Deliver(ctx, event)
		}
		if !enqueue(event) {
			n.logger.Warn("notification queue full; dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID))
		}
		return nil
	}
	n.dispatcher.Subscribe(events.EventAnalysisCompleted, handler)
	n.dispatcher.Subscribe(events.EventAnalysisEscalated, handler)
	n.dispatcher.Subscribe(events.EventAnalysisSafetyFlagged, handler)
	n.dispatcher.Subscribe(events.EventAnalysisFailed, handler)
}

// WebhookEnabled reports whether a webhook target is configured.
func (n *NotificationService) WebhookEnabled() bool {
	return strings.TrimSpace(n.cfg.WebhookURL) != ""
}

// Deliver posts the event as JSON to the configured webhook.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	if !n.WebhookEnabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(n.cfg.WebhookURL)
	agent.JSON(event)
	agent.Set("X-Event-Type", string(event.Type))
	if timeout := n.cfg.WebhookTimeout(); timeout > 0 {
		agent.Timeout(timeout)
	}
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery: %w", errs[0])
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("webhook delivery: unexpected status %d", code)
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("status", code))
	return nil
}
