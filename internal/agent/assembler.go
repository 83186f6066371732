package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/safety"
)

// overlayKeys are owned by the observations and never taken from generated text.
var overlayKeys = map[string]struct{}{
	"category":            {},
	"category_confidence": {},
	"priority":            {},
	"response_time":       {},
	"kb_articles":         {},
	"safety_flagged":      {},
	"safety_categories":   {},
}

// ParseAdvice reads the generated recommendation. Field types are coerced
// where the intent is unambiguous; unknown keys land in Additional.
func ParseAdvice(op, raw string) (domain.Advice, error) {
	var fields map[string]any
	if err := llm.DecodeJSON(op, raw, &fields); err != nil {
		return domain.Advice{}, err
	}

	advice := domain.Advice{}
	for key, value := range fields {
		switch key {
		case "immediate_actions":
			advice.ImmediateActions = stringList(value)
		case "tools_required":
			advice.ToolsRequired = stringList(value)
		case "estimated_time":
			advice.EstimatedTime = scalarString(value)
		case "preventive_measures":
			advice.PreventiveMeasures = stringList(value)
		case "escalation_needed":
			advice.EscalationNeeded = truthy(value)
		case "notes":
			advice.Notes = scalarString(value)
		default:
			if _, owned := overlayKeys[key]; owned {
				continue
			}
			if advice.Additional == nil {
				advice.Additional = make(map[string]any)
			}
			advice.Additional[key] = value
		}
	}
	// The list fields are never null in a recommendation.
	if advice.ImmediateActions == nil {
		advice.ImmediateActions = []string{}
	}
	if advice.ToolsRequired == nil {
		advice.ToolsRequired = []string{}
	}
	return advice, nil
}

// Assemble merges advice with the deterministic fields from the observations.
// A flagged decision replaces the advice with the fixed fallback.
func Assemble(advice domain.Advice, store *ObservationStore, decision safety.Decision, maxArticles int) domain.Recommendation {
	rec := domain.Recommendation{KBArticles: []domain.KBArticle{}}

	if decision.Flagged {
		rec.Advice = domain.FallbackAdvice()
		rec.SafetyFlagged = true
		rec.SafetyCategories = append([]string{}, decision.Categories...)
		if cat := store.Category(); cat != nil {
			rec.Category = cat.Category
		}
		if pri := store.Priority(); pri != nil {
			rec.Priority = pri.Priority
			rec.ResponseTime = pri.ResponseTime
		}
		return rec
	}

	rec.Advice = advice
	if cat := store.Category(); cat != nil {
		rec.Category = cat.Category
		confidence := cat.Confidence
		rec.CategoryConfidence = &confidence
	}
	if pri := store.Priority(); pri != nil {
		rec.Priority = pri.Priority
		rec.ResponseTime = pri.ResponseTime
	}
	if kb := store.Search(); kb != nil {
		rec.KBArticles = append(rec.KBArticles, topArticles(kb.Articles, maxArticles)...)
	}
	return rec
}

func topArticles(articles []domain.KBArticle, n int) []domain.KBArticle {
	if n > 0 && len(articles) > n {
		return articles[:n]
	}
	return articles
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	case nil:
		return nil
	default:
		return []string{scalarString(t)}
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		// Steps are sometimes returned as {"step": "..."} objects.
		for _, key := range []string{"action", "step", "description", "name"} {
			if s, ok := t[key].(string); ok {
				return s
			}
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	case float64:
		return t != 0
	default:
		return false
	}
}
