package dto

import (
	"time"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// AnalyzeTicketRequest payload.
type AnalyzeTicketRequest struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Submitter   string     `json:"submitter"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// Ticket converts the request into the analysis input.
func (r AnalyzeTicketRequest) Ticket() domain.Ticket {
	ticket := domain.Ticket{
		ID:          r.ID,
		Subject:     r.Subject,
		Description: r.Description,
		Submitter:   r.Submitter,
	}
	if r.SubmittedAt != nil {
		ticket.SubmittedAt = *r.SubmittedAt
	}
	return ticket
}

// AnalysisResponse is the body returned for a finished analysis.
type AnalysisResponse struct {
	AnalysisID     string                 `json:"analysis_id"`
	TicketID       string                 `json:"ticket_id"`
	ReasoningChain []domain.ReasoningStep `json:"reasoning_chain"`
	Recommendation domain.Recommendation  `json:"recommendation"`
	TotalSteps     int                    `json:"total_steps"`
	SafetyFlagged  bool                   `json:"safety_flagged"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    time.Time              `json:"completed_at"`
	DurationMillis int64                  `json:"duration_ms"`
}

// AnalysisSummary is one row of an analysis listing.
type AnalysisSummary struct {
	AnalysisID       string               `json:"analysis_id"`
	TicketID         string               `json:"ticket_id"`
	Category         domain.Category      `json:"category,omitempty"`
	Priority         domain.PriorityLevel `json:"priority,omitempty"`
	EscalationNeeded bool                 `json:"escalation_needed"`
	SafetyFlagged    bool                 `json:"safety_flagged"`
	TotalSteps       int                  `json:"total_steps"`
	CompletedAt      time.Time            `json:"completed_at"`
}

// KBSearchRequest payload.
type KBSearchRequest struct {
	Query    string          `json:"query"`
	Category domain.Category `json:"category"`
	Limit    int             `json:"limit"`
}

// TokenRequest payload for client-credential token issuance.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse returned after successful token issuance.
type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Scopes      []domain.Scope `json:"scopes"`
}
