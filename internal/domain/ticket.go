package domain

import (
	"strings"
	"time"
)

// Ticket is the immutable input of an analysis.
type Ticket struct {
	ID          string    `json:"id" yaml:"id"`
	Subject     string    `json:"subject" yaml:"subject"`
	Description string    `json:"description" yaml:"description"`
	Submitter   string    `json:"submitter" yaml:"submitter"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}

// Text is the ticket body handed to every tool.
func (t Ticket) Text() string {
	return strings.TrimSpace(t.Subject) + "\n" + strings.TrimSpace(t.Description)
}

// Category enumerates the support categories the categorizer may emit.
type Category string

const (
	CategoryPasswordAccess      Category = "PASSWORD_ACCESS"
	CategorySoftwareIssues      Category = "SOFTWARE_ISSUES"
	CategoryNetworkConnectivity Category = "NETWORK_CONNECTIVITY"
	CategoryHardwareProblems    Category = "HARDWARE_PROBLEMS"
	CategoryEmailIssues         Category = "EMAIL_ISSUES"
)

// Categories lists known categories in prompt order.
var Categories = []Category{
	CategoryPasswordAccess,
	CategorySoftwareIssues,
	CategoryNetworkConnectivity,
	CategoryHardwareProblems,
	CategoryEmailIssues,
}

// Known reports whether c is one of Categories.
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PriorityLevel enumerates SLA urgency.
type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "CRITICAL"
	PriorityHigh     PriorityLevel = "HIGH"
	PriorityMedium   PriorityLevel = "MEDIUM"
	PriorityLow      PriorityLevel = "LOW"
)

// Urgent reports whether p should page someone.
func (p PriorityLevel) Urgent() bool {
	return p == PriorityCritical || p == PriorityHigh
}
