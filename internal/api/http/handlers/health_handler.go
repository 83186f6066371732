package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Dependency is a backing service checked by the readiness probe.
type Dependency interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// HealthInfo describes the configured analysis stack.
type HealthInfo struct {
	ServiceName   string
	Version       string
	Model         string
	KBBackend     string
	SafetyEnabled bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	info         HealthInfo
	dependencies map[string]Dependency
}

// NewHealthHandler returns a new handler instance. Disabled dependencies are
// reported but never fail readiness.
func NewHealthHandler(info HealthInfo, dependencies map[string]Dependency) *HealthHandler {
	return &HealthHandler{info: info, dependencies: dependencies}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.info.ServiceName,
		"version": h.info.Version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for name, dep := range h.dependencies {
		switch {
		case dep == nil || !dep.Enabled():
			depStatus[name] = "disabled"
		default:
			if err := dep.Ping(ctx); err != nil {
				depStatus[name] = err.Error()
				ready = false
			} else {
				depStatus[name] = "ok"
			}
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":         "ready",
			"dependencies":   depStatus,
			"model":          h.info.Model,
			"kb_backend":     h.info.KBBackend,
			"safety_enabled": h.info.SafetyEnabled,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
