package domain

// Fallback advice returned when generated content is flagged as unsafe.
const (
	FallbackAction        = "Please contact IT support directly for assistance with this issue."
	FallbackTool          = "IT Support Portal"
	FallbackEstimatedTime = "Varies"
)

// Advice holds the free-form fields authored by the completion service.
type Advice struct {
	ImmediateActions   []string       `json:"immediate_actions"`
	ToolsRequired      []string       `json:"tools_required"`
	EstimatedTime      string         `json:"estimated_time"`
	PreventiveMeasures []string       `json:"preventive_measures,omitempty"`
	EscalationNeeded   bool           `json:"escalation_needed"`
	Notes              string         `json:"notes,omitempty"`
	Additional         map[string]any `json:"additional,omitempty"`
}

// FallbackAdvice is the fixed advice used by the safety gate.
func FallbackAdvice() Advice {
	return Advice{
		ImmediateActions: []string{FallbackAction},
		ToolsRequired:    []string{FallbackTool},
		EstimatedTime:    FallbackEstimatedTime,
		EscalationNeeded: true,
	}
}

// Recommendation is the final structured output of an analysis.
type Recommendation struct {
	Advice
	Category           Category      `json:"category,omitempty"`
	CategoryConfidence *int          `json:"category_confidence,omitempty"`
	Priority           PriorityLevel `json:"priority,omitempty"`
	ResponseTime       string        `json:"response_time,omitempty"`
	KBArticles         []KBArticle   `json:"kb_articles"`
	SafetyFlagged      bool          `json:"safety_flagged"`
	SafetyCategories   []string      `json:"safety_categories,omitempty"`
}

// SafetyVerdict is the classifier response.
type SafetyVerdict struct {
	IsSafe             bool     `json:"is_safe"`
	ViolatedCategories []string `json:"violated_categories"`
	RawResponse        string   `json:"raw_response"`
	Role               string   `json:"checked_role"`
}
