package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-advisor/internal/api/dto"
	"github.com/spec-kit/ticket-advisor/internal/service"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// KnowledgeHandler exposes direct knowledge-base search.
type KnowledgeHandler struct {
	service *service.KnowledgeService
	topK    int
}

// NewKnowledgeHandler constructs handler. topK is used when the request sets no limit.
func NewKnowledgeHandler(knowledgeService *service.KnowledgeService, topK int) *KnowledgeHandler {
	return &KnowledgeHandler{service: knowledgeService, topK: topK}
}

// Search POST /v1/kb/search.
func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	var req dto.KBSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.topK
	}
	result, err := h.service.Search(c.UserContext(), req.Query, req.Category, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
