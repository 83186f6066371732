package tools

import (
	"context"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/priority"
)

// PriorityTool exposes the deterministic scorer as a tool.
type PriorityTool struct {
	scorer *priority.Scorer
}

func NewPriorityTool(scorer *priority.Scorer) *PriorityTool {
	return &PriorityTool{scorer: scorer}
}

func (p *PriorityTool) Name() domain.ToolName {
	return domain.ToolPriority
}

func (p *PriorityTool) Description() string {
	return "Calculates ticket priority (HIGH, MEDIUM, LOW)"
}

func (p *PriorityTool) Execute(ctx context.Context, input domain.ActionInput) (domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Observation{}, err
	}
	result := p.scorer.Score(input.TicketText, input.Category)
	return domain.Observation{Priority: &result}, nil
}
