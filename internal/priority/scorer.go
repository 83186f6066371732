// Package priority computes ticket priority from keywords and category rules.
package priority

import (
	"math"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// precedence orders tiers for scanning and tie-breaking.
var precedence = []domain.PriorityLevel{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow}

// Scorer is a pure function over Rules and is safe for concurrent use.
type Scorer struct {
	rules Rules
}

// NewScorer builds a scorer. Zero-valued rules fall back to DefaultRules.
func NewScorer(rules Rules) *Scorer {
	if rules.Keywords == nil {
		rules = DefaultRules()
	}
	return &Scorer{rules: rules}
}

// Score computes the priority of text for an optional category.
func (s *Scorer) Score(text string, category domain.Category) domain.PriorityResult {
	lower := strings.ToLower(text)
	w := s.rules.Weights

	matches := make(map[domain.PriorityLevel][]string, len(precedence))
	for _, level := range precedence {
		matches[level] = matchPhrases(lower, s.rules.Keywords[level])
	}

	base := domain.PriorityMedium
	var escalation, deescalation []string
	rule, known := s.rules.Categories[category]
	if known {
		if rule.Base != "" {
			base = rule.Base
		}
		escalation = matchPhrases(lower, rule.EscalateIf)
		deescalation = matchPhrases(lower, rule.DeescalateIf)
	}

	scores := map[domain.PriorityLevel]int{
		domain.PriorityHigh:   0,
		domain.PriorityMedium: 0,
		domain.PriorityLow:    0,
	}
	scores[domain.PriorityHigh] += w.HighKeyword * len(matches[domain.PriorityHigh])
	scores[domain.PriorityMedium] += w.MediumKeyword * len(matches[domain.PriorityMedium])
	scores[domain.PriorityLow] += w.LowKeyword * len(matches[domain.PriorityLow])
	scores[base] += w.Base
	scores[domain.PriorityHigh] += w.Escalation * len(escalation)
	scores[domain.PriorityLow] += w.Deescalation * len(deescalation)

	final := precedence[0]
	for _, level := range precedence[1:] {
		if scores[level] > scores[final] {
			final = level
		}
	}

	total := 0
	for _, v := range scores {
		total += v
	}
	confidence := w.DefaultConfidence
	if total > 0 {
		confidence = int(math.Round(100 * float64(scores[final]) / float64(total)))
	}
	// The base bonus is always present, so the guard looks at the rest.
	if total-w.Base < w.LowEvidence && confidence > w.LowEvidenceCap {
		confidence = w.LowEvidenceCap
	}

	return domain.PriorityResult{
		Priority:       final,
		Confidence:     confidence,
		ResponseTime:   s.responseTime(category, final),
		BasePriority:   base,
		KeywordMatches: matches,
		Escalation:     nonNil(escalation),
		Deescalation:   nonNil(deescalation),
		Scores:         scores,
	}
}

func (s *Scorer) responseTime(category domain.Category, level domain.PriorityLevel) string {
	if rule, ok := s.rules.Categories[category]; ok {
		if label, ok := rule.ResponseTimes[level]; ok {
			return label
		}
	}
	if label, ok := s.rules.ResponseTimes[level]; ok {
		return label
	}
	return s.rules.DefaultResponseTime
}

func matchPhrases(lowerText string, phrases []string) []string {
	matched := make([]string, 0)
	for _, phrase := range phrases {
		if strings.Contains(lowerText, strings.ToLower(phrase)) {
			matched = append(matched, phrase)
		}
	}
	return matched
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
