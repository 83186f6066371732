package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-advisor/internal/api/dto"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/service"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

const defaultListLimit = 20

// AnalysisHandler exposes ticket analysis endpoints.
type AnalysisHandler struct {
	service *service.AnalysisService
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: analysisService}
}

// Analyze POST /v1/tickets/analyze.
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	c.Locals(observability.LocalTicketID, req.ID)
	analysis, err := h.service.Analyze(c.UserContext(), req.Ticket())
	if err != nil {
		return err
	}
	c.Locals(observability.LocalTicketID, analysis.TicketID)
	c.Locals(observability.LocalAnalysisID, analysis.ID)
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": analysisResponse(analysis)})
}

// Get GET /v1/analyses/:id.
func (h *AnalysisHandler) Get(c *fiber.Ctx) error {
	c.Locals(observability.LocalAnalysisID, c.Params("id"))
	analysis, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": analysisResponse(analysis)})
}

// Steps GET /v1/analyses/:id/steps.
func (h *AnalysisHandler) Steps(c *fiber.Ctx) error {
	c.Locals(observability.LocalAnalysisID, c.Params("id"))
	steps, err := h.service.Steps(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": steps})
}

// ListByTicket GET /v1/tickets/:id/analyses.
func (h *AnalysisHandler) ListByTicket(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), defaultListLimit)
	c.Locals(observability.LocalTicketID, c.Params("id"))
	analyses, err := h.service.ListByTicket(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.AnalysisSummary, 0, len(analyses))
	for i := range analyses {
		items = append(items, analysisSummary(&analyses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func analysisResponse(a *domain.Analysis) dto.AnalysisResponse {
	chain := a.ReasoningChain
	if chain == nil {
		chain = []domain.ReasoningStep{}
	}
	return dto.AnalysisResponse{
		AnalysisID:     a.ID,
		TicketID:       a.TicketID,
		ReasoningChain: chain,
		Recommendation: a.Recommendation,
		TotalSteps:     a.TotalSteps,
		SafetyFlagged:  a.Recommendation.SafetyFlagged,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
		DurationMillis: a.Duration().Milliseconds(),
	}
}

func analysisSummary(a *domain.Analysis) dto.AnalysisSummary {
	return dto.AnalysisSummary{
		AnalysisID:       a.ID,
		TicketID:         a.TicketID,
		Category:         a.Recommendation.Category,
		Priority:         a.Recommendation.Priority,
		EscalationNeeded: a.Recommendation.EscalationNeeded,
		SafetyFlagged:    a.Recommendation.SafetyFlagged,
		TotalSteps:       a.TotalSteps,
		CompletedAt:      a.CompletedAt,
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
