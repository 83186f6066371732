package domain

import "encoding/json"

// ToolName identifies an analysis tool.
type ToolName string

const (
	ToolCategorizer ToolName = "categorize_ticket"
	ToolKBSearch    ToolName = "search_knowledge_base"
	ToolPriority    ToolName = "calculate_priority"
)

// CategoryResult is the categorizer output.
type CategoryResult struct {
	Category         Category `json:"category"`
	Confidence       int      `json:"confidence"`
	Reasoning        string   `json:"reasoning,omitempty"`
	KeywordsDetected []string `json:"keywords_detected,omitempty"`
}

// PriorityResult is produced once per analysis by the priority scorer.
type PriorityResult struct {
	Priority       PriorityLevel              `json:"priority"`
	Confidence     int                        `json:"confidence"`
	ResponseTime   string                     `json:"response_time"`
	BasePriority   PriorityLevel              `json:"base_priority"`
	KeywordMatches map[PriorityLevel][]string `json:"keyword_matches"`
	Escalation     []string                   `json:"escalation"`
	Deescalation   []string                   `json:"deescalation"`
	Scores         map[PriorityLevel]int      `json:"scores"`
}

// SearchResult is the knowledge-base search output.
type SearchResult struct {
	Articles       []KBArticle `json:"articles"`
	Count          int         `json:"count"`
	TotalFound     int         `json:"total_found"`
	SearchMethod   string      `json:"search_method"`
	EmbeddingModel string      `json:"embedding_model,omitempty"`
	Reranking      bool        `json:"reranking"`
}

// Observation holds exactly one tool result or an error message.
type Observation struct {
	Category *CategoryResult `json:"category_result,omitempty"`
	Priority *PriorityResult `json:"priority_result,omitempty"`
	Search   *SearchResult   `json:"search_result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ErrorObservation wraps a tool failure.
func ErrorObservation(err error) Observation {
	return Observation{Error: err.Error()}
}

// Failed reports whether the tool returned an error.
func (o Observation) Failed() bool {
	return o.Error != ""
}

// Summary renders the observation for prompts.
func (o Observation) Summary() string {
	var payload any
	switch {
	case o.Error != "":
		payload = map[string]string{"error": o.Error}
	case o.Category != nil:
		payload = o.Category
	case o.Priority != nil:
		payload = o.Priority
	case o.Search != nil:
		payload = o.Search
	default:
		return "{}"
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
