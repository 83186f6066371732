package domain

import "time"

// ActionInput is what a tool receives.
type ActionInput struct {
	TicketText string   `json:"ticket_text"`
	Category   Category `json:"category,omitempty"`
}

// ReasoningStep is one completed thought/action/observation cycle.
type ReasoningStep struct {
	StepNumber  int          `json:"step_number"`
	Thought     string       `json:"thought"`
	Action      ToolName     `json:"action,omitempty"`
	ActionInput *ActionInput `json:"action_input,omitempty"`
	Observation *Observation `json:"observation,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
