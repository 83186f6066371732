package safety

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/retry"
)

// Decision is the gate outcome for one piece of generated text.
type Decision struct {
	Checked    bool
	Flagged    bool
	Categories []string
	Verdict    *domain.SafetyVerdict
}

// Gate runs the classifier over generated advice. A gate without a
// classifier passes everything through.
type Gate struct {
	classifier Classifier
	policy     retry.Policy
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewGate returns a gate. Pass a nil classifier to disable checking.
func NewGate(classifier Classifier, policy retry.Policy, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		classifier: classifier,
		policy:     policy,
		logger:     observability.Component(logger, "safety_gate"),
		metrics:    metrics,
	}
}

// Enabled reports whether text is actually classified.
func (g *Gate) Enabled() bool {
	return g != nil && g.classifier != nil
}

// Review classifies text as agent output. An error means the classifier
// could not produce a verdict within the retry budget.
func (g *Gate) Review(ctx context.Context, text string) (Decision, error) {
	if !g.Enabled() {
		return Decision{}, nil
	}

	verdict, err := retry.Do(ctx, g.policy, func(ctx context.Context) (domain.SafetyVerdict, error) {
		return g.classifier.Classify(ctx, text, RoleAgent)
	}, func(err error, wait time.Duration) {
		g.logger.Warn("safety check retry", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		g.logger.Error("safety classifier unavailable", zap.Error(err))
		g.metrics.RecordSafetyVerdict("unavailable")
		return Decision{}, err
	}

	if verdict.IsSafe {
		g.metrics.RecordSafetyVerdict("safe")
		return Decision{Checked: true, Verdict: &verdict}, nil
	}

	g.metrics.RecordSafetyVerdict("unsafe")
	g.logger.Warn("generated advice flagged",
		zap.Strings("categories", verdict.ViolatedCategories),
		zap.String("raw_response", verdict.RawResponse),
	)
	categories := verdict.ViolatedCategories
	if categories == nil {
		categories = []string{}
	}
	return Decision{Checked: true, Flagged: true, Categories: categories, Verdict: &verdict}, nil
}
