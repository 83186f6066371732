package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/events"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
	"github.com/spec-kit/ticket-advisor/internal/repository"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

const (
	maxSubjectLength     = 500
	maxDescriptionLength = 20000
)

// Analyzer runs one ticket analysis.
type Analyzer interface {
	Analyze(ctx context.Context, ticket domain.Ticket) (*domain.Analysis, error)
}

// AnalysisCache stores finished analyses by id.
type AnalysisCache interface {
	PutAnalysis(ctx context.Context, analysis *domain.Analysis, ttl time.Duration) error
	GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error)
}

// AnalysisService coordinates ticket analysis workflows.
type AnalysisService struct {
	analyzer   Analyzer
	analyses   repository.AnalysisRepository
	cache      AnalysisCache
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
	slots      chan struct{}
	now        func() time.Time
}

// AnalysisDependencies bundles collaborators for the analysis service.
// Repository, cache and dispatcher are optional.
type AnalysisDependencies struct {
	Analyzer      Analyzer
	AnalysisRepo  repository.AnalysisRepository
	Cache         AnalysisCache
	CacheTTL      time.Duration
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Timeout       time.Duration
	MaxConcurrent int
}

// NewAnalysisService builds the service.
func NewAnalysisService(deps AnalysisDependencies) *AnalysisService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var slots chan struct{}
	if deps.MaxConcurrent > 0 {
		slots = make(chan struct{}, deps.MaxConcurrent)
	}
	return &AnalysisService{
		analyzer:   deps.Analyzer,
		analyses:   deps.AnalysisRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		logger:     logger.With(zap.String("component", "analysis_service")),
		timeout:    deps.Timeout,
		slots:      slots,
		now:        time.Now,
	}
}

// Analyze validates the ticket, runs the agent, then stores and announces the result.
func (s *AnalysisService) Analyze(ctx context.Context, ticket domain.Ticket) (*domain.Analysis, error) {
	ticket, err := s.normalize(ticket)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	analysis, err := s.analyzer.Analyze(runCtx, ticket)
	if err != nil {
		de := apperrors.ToDomainError(err)
		s.publish(ctx, events.EventAnalysisFailed, ticket.ID, "", events.AnalysisFailedPayload{Code: de.Code, Message: de.Message})
		return nil, err
	}

	s.store(ctx, analysis)
	s.announce(ctx, analysis)
	return analysis, nil
}

// Get returns a stored analysis, checking the cache before the database.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("analysis id must be a UUID", map[string]any{"id": id})
	}
	if s.cache != nil {
		cached, err := s.cache.GetAnalysis(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, persistence.ErrCacheMiss) {
			s.logger.Warn("analysis cache read failed", zap.String("analysis_id", id), zap.Error(err))
		}
	}
	if s.analyses == nil {
		return nil, apperrors.NewNotFound("analysis", map[string]any{"id": id})
	}

	analysis, err := s.analyses.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("analysis", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// Steps returns the reasoning chain of a stored analysis.
func (s *AnalysisService) Steps(ctx context.Context, id string) ([]domain.ReasoningStep, error) {
	analysis, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if analysis.ReasoningChain == nil {
		return []domain.ReasoningStep{}, nil
	}
	return analysis.ReasoningChain, nil
}

// ListByTicket returns recent analyses of one ticket.
func (s *AnalysisService) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.Analysis, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket_id required", nil)
	}
	if s.analyses == nil {
		return []domain.Analysis{}, nil
	}
	return s.analyses.ListByTicket(ctx, ticketID, limit)
}

func (s *AnalysisService) normalize(ticket domain.Ticket) (domain.Ticket, error) {
	ticket.ID = strings.TrimSpace(ticket.ID)
	ticket.Subject = strings.TrimSpace(ticket.Subject)
	ticket.Description = strings.TrimSpace(ticket.Description)

	details := map[string]any{}
	if ticket.Subject == "" && ticket.Description == "" {
		details["description"] = "subject or description required"
	}
	if len(ticket.Subject) > maxSubjectLength {
		details["subject"] = fmt.Sprintf("must be at most %d characters", maxSubjectLength)
	}
	if len(ticket.Description) > maxDescriptionLength {
		details["description"] = fmt.Sprintf("must be at most %d characters", maxDescriptionLength)
	}
	if len(details) > 0 {
		return ticket, apperrors.NewValidationError("invalid ticket", details)
	}

	if ticket.ID == "" {
		ticket.ID = "TKT-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if ticket.SubmittedAt.IsZero() {
		ticket.SubmittedAt = s.now().UTC()
	}
	return ticket, nil
}

func (s *AnalysisService) acquire(ctx context.Context) (func(), error) {
	if s.slots == nil {
		return func() {}, nil
	}
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, apperrors.NewDomainError("ANALYSIS_BUSY", "too many analyses in progress", 503, nil)
	}
}

func (s *AnalysisService) store(ctx context.Context, analysis *domain.Analysis) {
	if s.analyses != nil {
		if err := s.analyses.Create(ctx, analysis); err != nil {
			s.logger.Error("persist analysis failed", zap.String("analysis_id", analysis.ID), zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.PutAnalysis(ctx, analysis, s.cacheTTL); err != nil {
			s.logger.Warn("cache analysis failed", zap.String("analysis_id", analysis.ID), zap.Error(err))
		}
	}
}

func (s *AnalysisService) announce(ctx context.Context, analysis *domain.Analysis) {
	rec := analysis.Recommendation
	s.publish(ctx, events.EventAnalysisCompleted, analysis.TicketID, analysis.ID, events.AnalysisCompletedPayload{
		Category:         rec.Category,
		Priority:         rec.Priority,
		ResponseTime:     rec.ResponseTime,
		TotalSteps:       analysis.TotalSteps,
		EscalationNeeded: rec.EscalationNeeded,
		DurationMillis:   analysis.Duration().Milliseconds(),
	})

	if reason := escalationReason(rec); reason != "" {
		s.publish(ctx, events.EventAnalysisEscalated, analysis.TicketID, analysis.ID, events.AnalysisEscalatedPayload{
			Priority:     rec.Priority,
			ResponseTime: rec.ResponseTime,
			Reason:       reason,
			Subject:      analysis.Ticket.Subject,
		})
	}
	if rec.SafetyFlagged {
		s.publish(ctx, events.EventAnalysisSafetyFlagged, analysis.TicketID, analysis.ID, events.AnalysisSafetyFlaggedPayload{
			Categories: rec.SafetyCategories,
		})
	}
}

func escalationReason(rec domain.Recommendation) string {
	switch {
	case rec.Priority.Urgent():
		return "priority " + string(rec.Priority)
	case rec.EscalationNeeded:
		return "escalation advised"
	default:
		return ""
	}
}

func (s *AnalysisService) publish(ctx context.Context, eventType events.EventType, ticketID, analysisID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticketID,
		AnalysisID: analysisID,
		Timestamp:  s.now().UTC(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
