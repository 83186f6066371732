package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-advisor/internal/api/http/handlers"
	"github.com/spec-kit/ticket-advisor/internal/auth"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Analyses       *handlers.AnalysisHandler
	Knowledge      *handlers.KnowledgeHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	v1 := app.Group("/v1")
	v1.Post("/auth/token", cfg.Auth.Token)

	protected := v1.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/tickets/analyze", auth.RequireScope(domain.ScopeAnalyze), cfg.Analyses.Analyze)
	protected.Get("/tickets/:id/analyses", auth.RequireScope(domain.ScopeReadAnalyses), cfg.Analyses.ListByTicket)
	protected.Get("/analyses/:id", auth.RequireScope(domain.ScopeReadAnalyses), cfg.Analyses.Get)
	protected.Get("/analyses/:id/steps", auth.RequireScope(domain.ScopeReadAnalyses), cfg.Analyses.Steps)
	protected.Post("/kb/search", auth.RequireScope(domain.ScopeReadKnowledge), cfg.Knowledge.Search)
}
