package priority

import "github.com/spec-kit/ticket-advisor/internal/domain"

// Weights are the tunable scoring constants.
type Weights struct {
	HighKeyword   int
	MediumKeyword int
	LowKeyword    int
	Base          int
	Escalation    int
	Deescalation  int
	// LowEvidence is the evidence total below which confidence is capped.
	LowEvidence       int
	LowEvidenceCap    int
	DefaultConfidence int
}

// CategoryRule describes how a category shifts priority.
type CategoryRule struct {
	Base          domain.PriorityLevel
	EscalateIf    []string
	DeescalateIf  []string
	ResponseTimes map[domain.PriorityLevel]string
}

// Rules bundles everything the scorer reads.
type Rules struct {
	Keywords            map[domain.PriorityLevel][]string
	Categories          map[domain.Category]CategoryRule
	ResponseTimes       map[domain.PriorityLevel]string
	DefaultResponseTime string
	Weights             Weights
}

// DefaultWeights returns the heuristic weights 3/2/1/5/4/3.
func DefaultWeights() Weights {
	return Weights{
		HighKeyword:       3,
		MediumKeyword:     2,
		LowKeyword:        1,
		Base:              5,
		Escalation:        4,
		Deescalation:      3,
		LowEvidence:       5,
		LowEvidenceCap:    60,
		DefaultConfidence: 50,
	}
}

// DefaultRules returns the built-in keyword tiers and category rules.
func DefaultRules() Rules {
	return Rules{
		Keywords: map[domain.PriorityLevel][]string{
			domain.PriorityHigh: {
				"urgent", "asap", "critical", "emergency", "immediately",
				"right now", "client meeting", "presentation", "ceo", "important meeting",
				"production down", "all users affected", "company wide",
			},
			domain.PriorityMedium: {
				"soon", "today", "important", "recurring", "multiple times",
				"keeps happening", "missed", "several users", "department",
			},
			domain.PriorityLow: {
				"when possible", "no rush", "minor", "occasional", "sometimes",
				"intermittent", "not urgent", "whenever", "low priority",
			},
		},
		Categories: map[domain.Category]CategoryRule{
			domain.CategoryPasswordAccess: {
				Base:         domain.PriorityMedium,
				EscalateIf:   []string{"locked out", "multiple attempts", "urgent"},
				DeescalateIf: []string{"password change", "new user"},
			},
			domain.CategorySoftwareIssues: {
				Base:         domain.PriorityMedium,
				EscalateIf:   []string{"crash", "data loss", "cannot work"},
				DeescalateIf: []string{"minor bug", "cosmetic"},
			},
			domain.CategoryNetworkConnectivity: {
				Base:         domain.PriorityHigh,
				EscalateIf:   []string{"entire floor", "conference room", "no internet"},
				DeescalateIf: []string{"single user", "wifi slow"},
			},
			domain.CategoryHardwareProblems: {
				Base:         domain.PriorityLow,
				EscalateIf:   []string{"shared printer", "server", "multiple users"},
				DeescalateIf: []string{"personal device", "mouse", "keyboard"},
			},
			domain.CategoryEmailIssues: {
				Base:         domain.PriorityMedium,
				EscalateIf:   []string{"cannot send", "lost emails", "calendar down"},
				DeescalateIf: []string{"spam", "signature", "out of office"},
			},
		},
		ResponseTimes: map[domain.PriorityLevel]string{
			domain.PriorityCritical: "< 1 hour",
			domain.PriorityHigh:     "< 1 hour",
			domain.PriorityMedium:   "< 4 hours",
			domain.PriorityLow:      "< 24 hours",
		},
		DefaultResponseTime: "< 4 hours",
		Weights:             DefaultWeights(),
	}
}
