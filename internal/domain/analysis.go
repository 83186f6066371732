package domain

import "time"

// Analysis is the result bundle of one ticket analysis.
type Analysis struct {
	ID             string          `json:"analysis_id"`
	TicketID       string          `json:"ticket_id"`
	Ticket         Ticket          `json:"ticket"`
	ReasoningChain []ReasoningStep `json:"reasoning_chain"`
	Recommendation Recommendation  `json:"recommendation"`
	TotalSteps     int             `json:"total_steps"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// Duration is the wall time of the analysis.
func (a Analysis) Duration() time.Duration {
	return a.CompletedAt.Sub(a.StartedAt)
}
