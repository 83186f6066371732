package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/llm"
)

const categorizerSystemPrompt = "You are an IT ticket categorizer. Respond only with valid JSON."

// Categorizer asks the completion service for the ticket category.
type Categorizer struct {
	completer llm.Completer
}

// NewCategorizer returns a categorizer backed by completer.
func NewCategorizer(completer llm.Completer) *Categorizer {
	return &Categorizer{completer: completer}
}

func (c *Categorizer) Name() domain.ToolName {
	return domain.ToolCategorizer
}

func (c *Categorizer) Description() string {
	return "Categorizes the ticket type (password, network, software, etc.)"
}

type categoryPayload struct {
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	KeywordsDetected []string `json:"keywords_detected"`
}

// Execute classifies input.TicketText. The category hint is ignored.
func (c *Categorizer) Execute(ctx context.Context, input domain.ActionInput) (domain.Observation, error) {
	op := string(domain.ToolCategorizer)
	raw, err := c.completer.Complete(ctx, llm.Request{
		Operation:   op,
		System:      categorizerSystemPrompt,
		User:        categorizerPrompt(input.TicketText),
		Temperature: 0,
		MaxTokens:   150,
		JSON:        true,
	})
	if err != nil {
		return domain.Observation{}, err
	}

	var payload categoryPayload
	if err := llm.DecodeJSON(op, raw, &payload); err != nil {
		return domain.Observation{}, err
	}

	result := domain.CategoryResult{
		Category:         domain.Category(strings.ToUpper(strings.TrimSpace(payload.Category))),
		Confidence:       clampPercent(payload.Confidence),
		Reasoning:        payload.Reasoning,
		KeywordsDetected: payload.KeywordsDetected,
	}
	return domain.Observation{Category: &result}, nil
}

func categorizerPrompt(ticketText string) string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf(`Categorize this IT support ticket into ONE of these categories:
%s

Ticket:
%s

Respond with JSON:
{
    "category": "CATEGORY_NAME",
    "confidence": 0-100,
    "reasoning": "brief explanation",
    "keywords_detected": ["keyword1", "keyword2"]
}`, strings.Join(names, ", "), ticketText)
}

func clampPercent(v float64) int {
	n := int(math.Round(v))
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return n
	}
}
