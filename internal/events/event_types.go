package events

import (
	"time"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAnalysisCompleted     EventType = "analysis_completed"
	EventAnalysisEscalated     EventType = "analysis_escalated"
	EventAnalysisSafetyFlagged EventType = "analysis_safety_flagged"
	EventAnalysisFailed        EventType = "analysis_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketID   string    `json:"ticket_id"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// AnalysisCompletedPayload payload.
type AnalysisCompletedPayload struct {
	Category         domain.Category      `json:"category,omitempty"`
	Priority         domain.PriorityLevel `json:"priority,omitempty"`
	ResponseTime     string               `json:"response_time,omitempty"`
	TotalSteps       int                  `json:"total_steps"`
	EscalationNeeded bool                 `json:"escalation_needed"`
	DurationMillis   int64                `json:"duration_ms"`
}

// AnalysisEscalatedPayload is emitted for urgent tickets or when escalation was advised.
type AnalysisEscalatedPayload struct {
	Priority     domain.PriorityLevel `json:"priority,omitempty"`
	ResponseTime string               `json:"response_time,omitempty"`
	Reason       string               `json:"reason"`
	Subject      string               `json:"subject"`
}

// AnalysisSafetyFlaggedPayload payload.
type AnalysisSafetyFlaggedPayload struct {
	Categories []string `json:"categories"`
}

// AnalysisFailedPayload payload.
type AnalysisFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
