// Package agent runs the bounded reasoning loop that analyzes a ticket.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/retry"
	"github.com/spec-kit/ticket-advisor/internal/safety"
	"github.com/spec-kit/ticket-advisor/internal/tools"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

const (
	opThought  = "thought"
	opAction   = "action_selection"
	opFinalize = "final_recommendation"
	opSafety   = "safety_check"
)

// Options are fixed for the lifetime of an Agent.
type Options struct {
	MaxSteps      int
	MaxKBArticles int
	Retry         retry.Policy
}

// DefaultOptions allows 7 steps and 3 articles with the default retry policy.
func DefaultOptions() Options {
	return Options{MaxSteps: 7, MaxKBArticles: 3, Retry: retry.DefaultPolicy()}
}

// OptionsFromConfig derives agent options from configuration.
func OptionsFromConfig(cfg config.AgentConfig) Options {
	opts := DefaultOptions()
	if cfg.MaxSteps > 0 {
		opts.MaxSteps = cfg.MaxSteps
	}
	if cfg.MaxKBArticles > 0 {
		opts.MaxKBArticles = cfg.MaxKBArticles
	}
	opts.Retry = retry.FromConfig(cfg)
	return opts
}

// Dependencies bundles the collaborators of an Agent.
type Dependencies struct {
	Completer llm.Completer
	Tools     *tools.Registry
	// Gate may be nil, which disables safety checking.
	Gate    *safety.Gate
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Agent analyzes tickets. It holds no per-analysis state, so one Agent can
// serve concurrent calls.
type Agent struct {
	completer llm.Completer
	tools     *tools.Registry
	gate      *safety.Gate
	opts      Options
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// New validates deps and returns an Agent.
func New(deps Dependencies, opts Options) (*Agent, error) {
	if deps.Completer == nil {
		return nil, errors.New("agent: completer is required")
	}
	if deps.Tools == nil || deps.Tools.Len() == 0 {
		return nil, errors.New("agent: at least one tool is required")
	}
	defaults := DefaultOptions()
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaults.MaxSteps
	}
	if opts.MaxKBArticles <= 0 {
		opts.MaxKBArticles = defaults.MaxKBArticles
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = defaults.Retry
	}
	return &Agent{
		completer: deps.Completer,
		tools:     deps.Tools,
		gate:      deps.Gate,
		opts:      opts,
		logger:    observability.Component(deps.Logger, "agent"),
		metrics:   deps.Metrics,
		now:       time.Now,
	}, nil
}

// SafetyEnabled reports whether recommendations are screened.
func (a *Agent) SafetyEnabled() bool {
	return a.gate.Enabled()
}

// Analyze runs the reasoning loop for ticket and returns the finished
// analysis. Only thought, action or final-recommendation failures are
// returned as errors; tool failures become error observations.
func (a *Agent) Analyze(ctx context.Context, ticket domain.Ticket) (*domain.Analysis, error) {
	started := a.now()
	sess := newSession(ticket)
	logger := a.logger.With(zap.String("ticket_id", ticket.ID))
	logger.Info("analysis started", zap.Int("max_steps", a.opts.MaxSteps))

	analysis, err := a.run(ctx, sess, logger)
	duration := a.now().Sub(started)
	if err != nil {
		a.metrics.RecordAnalysis("failed", sess.step, duration)
		logger.Error("analysis failed", zap.Int("step", sess.step), zap.Error(err))
		return nil, err
	}

	analysis.StartedAt = started
	analysis.CompletedAt = started.Add(duration)
	outcome := "completed"
	if analysis.Recommendation.SafetyFlagged {
		outcome = "safety_flagged"
	}
	a.metrics.RecordAnalysis(outcome, analysis.TotalSteps, duration)
	logger.Info("analysis finished",
		zap.Int("total_steps", analysis.TotalSteps),
		zap.Int("tools_used", sess.observations.Len()),
		zap.Bool("safety_flagged", analysis.Recommendation.SafetyFlagged),
		zap.Duration("duration", duration),
	)
	return analysis, nil
}

func (a *Agent) run(ctx context.Context, sess *session, logger *zap.Logger) (*domain.Analysis, error) {
	registered := a.tools.Names()

	for step := 1; step <= a.opts.MaxSteps; step++ {
		sess.step = step
		available := sess.observations.Unused(registered)

		thought, err := a.think(ctx, sess, available)
		if err != nil {
			return nil, err
		}

		if hasFinishSignal(thought) || len(available) == 0 {
			logger.Debug("finishing", zap.Int("step", step), zap.String("thought", thought))
			break
		}

		action, err := a.decide(ctx, sess, thought, available, logger)
		if err != nil {
			return nil, err
		}

		input := sess.inputFor(action)
		obs := a.dispatch(ctx, action, input, logger)
		if err := sess.observations.Record(action, obs); err != nil {
			return nil, apperrors.Fatal("observe", err)
		}
		sess.chain = append(sess.chain, domain.ReasoningStep{
			StepNumber:  step,
			Thought:     thought,
			Action:      action,
			ActionInput: &input,
			Observation: &obs,
			CreatedAt:   a.now(),
		})
		logger.Debug("step completed",
			zap.Int("step", step),
			zap.String("action", string(action)),
			zap.String("thought", thought),
			zap.Bool("tool_failed", obs.Failed()),
		)
	}

	rec, err := a.finalize(ctx, sess)
	if err != nil {
		return nil, err
	}

	return &domain.Analysis{
		ID:             uuid.NewString(),
		TicketID:       sess.ticket.ID,
		Ticket:         sess.ticket,
		ReasoningChain: sess.chain,
		Recommendation: rec,
		TotalSteps:     sess.step,
	}, nil
}

func (a *Agent) think(ctx context.Context, sess *session, available []domain.ToolName) (string, error) {
	return a.complete(ctx, llm.Request{
		Operation:   opThought,
		System:      thoughtSystemPrompt,
		User:        thoughtPrompt(sess, available),
		Temperature: 0.1,
		MaxTokens:   150,
	})
}

type actionChoice struct {
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// decide asks for the next tool. Anything other than an unused registered
// tool name falls back to the first unused tool in registration order.
func (a *Agent) decide(ctx context.Context, sess *session, thought string, available []domain.ToolName, logger *zap.Logger) (domain.ToolName, error) {
	candidates := make([]tools.Tool, 0, len(available))
	for _, name := range available {
		if tool, ok := a.tools.Lookup(name); ok {
			candidates = append(candidates, tool)
		}
	}

	raw, err := a.complete(ctx, llm.Request{
		Operation:   opAction,
		System:      actionSystemPrompt,
		User:        actionPrompt(thought, sess.text, candidates),
		Temperature: 0,
		MaxTokens:   100,
		JSON:        true,
	})
	if err != nil {
		return "", err
	}

	var choice actionChoice
	if err := llm.DecodeJSON(opAction, raw, &choice); err != nil {
		logger.Warn("unparseable tool choice; using fallback", zap.String("raw", raw))
		return available[0], nil
	}
	chosen := domain.ToolName(choice.Tool)
	for _, name := range available {
		if name == chosen {
			return chosen, nil
		}
	}
	logger.Warn("invalid tool choice; using fallback",
		zap.String("chosen", choice.Tool),
		zap.String("fallback", string(available[0])),
	)
	return available[0], nil
}

func (a *Agent) dispatch(ctx context.Context, name domain.ToolName, input domain.ActionInput, logger *zap.Logger) domain.Observation {
	tool, ok := a.tools.Lookup(name)
	if !ok {
		a.metrics.RecordToolCall(string(name), "unknown")
		return domain.Observation{Error: "unknown tool: " + string(name)}
	}

	obs, err := tool.Execute(ctx, input)
	if err != nil {
		a.metrics.RecordToolCall(string(name), "error")
		logger.Warn("tool failed", zap.String("tool", string(name)), zap.Error(err))
		return domain.ErrorObservation(err)
	}
	a.metrics.RecordToolCall(string(name), "ok")
	return obs
}

func (a *Agent) finalize(ctx context.Context, sess *session) (domain.Recommendation, error) {
	raw, err := a.complete(ctx, llm.Request{
		Operation:   opFinalize,
		System:      finalSystemPrompt,
		User:        finalPrompt(sess, a.opts.MaxKBArticles),
		Temperature: 0.2,
		MaxTokens:   500,
		JSON:        true,
	})
	if err != nil {
		return domain.Recommendation{}, err
	}

	advice, err := ParseAdvice(opFinalize, raw)
	if err != nil {
		return domain.Recommendation{}, err
	}

	decision, err := a.gate.Review(ctx, raw)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindFatal {
			return domain.Recommendation{}, err
		}
		return domain.Recommendation{}, apperrors.Fatal(opSafety, err)
	}
	return Assemble(advice, sess.observations, decision, a.opts.MaxKBArticles), nil
}

// complete calls the completion service under the retry policy. An exhausted
// retry budget is reported as fatal.
func (a *Agent) complete(ctx context.Context, req llm.Request) (string, error) {
	out, err := retry.Do(ctx, a.opts.Retry, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, req)
	}, func(err error, wait time.Duration) {
		a.logger.Warn("completion retry",
			zap.String("operation", req.Operation),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err == nil {
		return out, nil
	}
	if apperrors.KindOf(err) == apperrors.KindMalformedResponse {
		return "", err
	}
	var agentErr *apperrors.AgentError
	if errors.As(err, &agentErr) && agentErr.Kind == apperrors.KindFatal {
		return "", err
	}
	return "", apperrors.Fatal(req.Operation, err)
}
