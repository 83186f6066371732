package priority_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/priority"
)

func TestScoreWorkedExample(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	result := scorer.Score("URGENT: entire floor has no internet, production down", domain.CategoryNetworkConnectivity)

	assert.Equal(t, domain.PriorityHigh, result.Priority)
	assert.Equal(t, 19, result.Scores[domain.PriorityHigh])
	assert.Equal(t, 0, result.Scores[domain.PriorityMedium])
	assert.Equal(t, 0, result.Scores[domain.PriorityLow])
	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, "< 1 hour", result.ResponseTime)
	assert.ElementsMatch(t, []string{"urgent", "production down"}, result.KeywordMatches[domain.PriorityHigh])
	assert.ElementsMatch(t, []string{"entire floor", "no internet"}, result.Escalation)
	assert.Empty(t, result.Deescalation)
}

func TestScoreNoEvidenceUnknownCategory(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	for _, category := range []domain.Category{"", "PRINTER_JAM"} {
		result := scorer.Score("The thing on my desk does not work", category)

		assert.Equal(t, domain.PriorityMedium, result.Priority)
		assert.LessOrEqual(t, result.Confidence, 60)
		assert.Equal(t, domain.PriorityMedium, result.BasePriority)
		assert.Equal(t, "< 4 hours", result.ResponseTime)
	}
}

func TestScoreLowEvidenceCapIgnoresBaseBonus(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	// MEDIUM base 5, LOW minor 1: raw confidence 83, evidence 1.
	result := scorer.Score("A minor glitch in the report footer", "")
	assert.Equal(t, domain.PriorityMedium, result.Priority)
	assert.Equal(t, 60, result.Confidence)
	assert.Equal(t, 6, result.Scores[domain.PriorityMedium]+result.Scores[domain.PriorityLow])

	// Evidence 1 + 2 + 2 = 5 is enough: 9 of 10.
	result = scorer.Score("minor issue, need it soon, ideally today", "")
	assert.Equal(t, domain.PriorityMedium, result.Priority)
	assert.Equal(t, 90, result.Confidence)
}

func TestScoreTieBreaksTowardHigh(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	// HIGH: urgent, asap (6). MEDIUM: soon, today, important (6). LOW: base 5 + minor (6).
	result := scorer.Score("urgent asap: need it soon, today is important, minor glitch", domain.CategoryHardwareProblems)

	require.Equal(t, result.Scores[domain.PriorityHigh], result.Scores[domain.PriorityMedium])
	require.Equal(t, result.Scores[domain.PriorityMedium], result.Scores[domain.PriorityLow])
	assert.Equal(t, domain.PriorityHigh, result.Priority)
	assert.Equal(t, 33, result.Confidence)
}

func TestScoreMediumBeatsLowOnTie(t *testing.T) {
	rules := priority.DefaultRules()
	rules.Keywords = map[domain.PriorityLevel][]string{
		domain.PriorityMedium: {"today"},
		domain.PriorityLow:    {"whenever", "no rush"},
	}
	rules.Weights.Base = 0
	scorer := priority.NewScorer(rules)

	result := scorer.Score("today, or whenever, no rush", "")

	assert.Equal(t, domain.PriorityMedium, result.Priority)
}

func TestScoreDeescalation(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	result := scorer.Score("My mouse is broken, no rush", domain.CategoryHardwareProblems)

	assert.Equal(t, domain.PriorityLow, result.Priority)
	assert.Equal(t, 9, result.Scores[domain.PriorityLow])
	assert.Equal(t, []string{"mouse"}, result.Deescalation)
	assert.Equal(t, 60, result.Confidence)
	assert.Equal(t, "< 24 hours", result.ResponseTime)
}

func TestScoreCaseInsensitive(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultRules())

	lower := scorer.Score("locked out before the client meeting", domain.CategoryPasswordAccess)
	upper := scorer.Score("LOCKED OUT BEFORE THE CLIENT MEETING", domain.CategoryPasswordAccess)

	assert.Equal(t, lower, upper)
	assert.Equal(t, domain.PriorityHigh, upper.Priority)
	assert.Equal(t, 7, upper.Scores[domain.PriorityHigh])
	assert.Equal(t, 5, upper.Scores[domain.PriorityMedium])
	assert.Equal(t, 58, upper.Confidence)
}

func TestScoreCategoryResponseTimeOverride(t *testing.T) {
	rules := priority.DefaultRules()
	rule := rules.Categories[domain.CategoryNetworkConnectivity]
	rule.ResponseTimes = map[domain.PriorityLevel]string{domain.PriorityHigh: "< 30 minutes"}
	rules.Categories[domain.CategoryNetworkConnectivity] = rule
	scorer := priority.NewScorer(rules)

	network := scorer.Score("no internet", domain.CategoryNetworkConnectivity)
	unknown := scorer.Score("urgent emergency", "")

	assert.Equal(t, "< 30 minutes", network.ResponseTime)
	assert.Equal(t, "< 1 hour", unknown.ResponseTime)
}

func TestNewScorerDefaultsZeroRules(t *testing.T) {
	scorer := priority.NewScorer(priority.Rules{})

	result := scorer.Score("emergency, right now", "")

	assert.Equal(t, domain.PriorityHigh, result.Priority)
}
