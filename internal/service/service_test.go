package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-advisor/internal/auth"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/events"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

type fakeAnalyzer struct {
	rec   domain.Recommendation
	err   error
	seen  []domain.Ticket
	block chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, ticket domain.Ticket) (*domain.Analysis, error) {
	f.seen = append(f.seen, ticket)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	start := time.Now()
	return &domain.Analysis{
		ID:             uuid.NewString(),
		TicketID:       ticket.ID,
		Ticket:         ticket,
		Recommendation: f.rec,
		ReasoningChain: []domain.ReasoningStep{{StepNumber: 1, Action: domain.ToolCategorizer}},
		TotalSteps:     2,
		StartedAt:      start,
		CompletedAt:    start.Add(time.Second),
	}, nil
}

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Analysis
	err   error
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{items: map[string]*domain.Analysis{}} }

func (m *memoryRepo) Create(_ context.Context, a *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[a.ID] = a
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memoryRepo) ListByTicket(_ context.Context, ticketID string, _ int) ([]domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Analysis
	for _, a := range m.items {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type mapCache struct {
	items map[string]*domain.Analysis
	ttl   time.Duration
}

func (c *mapCache) PutAnalysis(_ context.Context, a *domain.Analysis, ttl time.Duration) error {
	c.items[a.ID] = a
	c.ttl = ttl
	return nil
}

func (c *mapCache) GetAnalysis(_ context.Context, id string) (*domain.Analysis, error) {
	if a, ok := c.items[id]; ok {
		return a, nil
	}
	return nil, persistence.ErrCacheMiss
}

func recordEvents(d events.Dispatcher) *[]events.Event {
	var got []events.Event
	h := func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	}
	for _, t := range []events.EventType{events.EventAnalysisCompleted, events.EventAnalysisEscalated, events.EventAnalysisSafetyFlagged, events.EventAnalysisFailed} {
		d.Subscribe(t, h)
	}
	return &got
}

func TestAnalyzePersistsCachesAndAnnounces(t *testing.T) {
	analyzer := &fakeAnalyzer{rec: domain.Recommendation{Priority: domain.PriorityHigh, ResponseTime: "< 1 hour", SafetyFlagged: true, SafetyCategories: []string{"S7"}}}
	repo := newMemoryRepo()
	cache := &mapCache{items: map[string]*domain.Analysis{}}
	dispatcher := events.NewInMemoryDispatcher()
	got := recordEvents(dispatcher)

	svc := NewAnalysisService(AnalysisDependencies{
		Analyzer: analyzer, AnalysisRepo: repo, Cache: cache, CacheTTL: time.Hour,
		Dispatcher: dispatcher, Logger: zap.NewNop(), MaxConcurrent: 2,
	})

	analysis, err := svc.Analyze(context.Background(), domain.Ticket{Subject: "  VPN down ", Description: "urgent"})
	require.NoError(t, err)

	require.Len(t, analyzer.seen, 1)
	seen := analyzer.seen[0]
	assert.True(t, strings.HasPrefix(seen.ID, "TKT-"))
	assert.Equal(t, "VPN down", seen.Subject)
	assert.False(t, seen.SubmittedAt.IsZero())

	assert.Contains(t, repo.items, analysis.ID)
	assert.Contains(t, cache.items, analysis.ID)
	assert.Equal(t, time.Hour, cache.ttl)

	require.Len(t, *got, 3)
	assert.Equal(t, events.EventAnalysisCompleted, (*got)[0].Type)
	assert.Equal(t, events.EventAnalysisEscalated, (*got)[1].Type)
	assert.Equal(t, "priority HIGH", (*got)[1].Payload.(events.AnalysisEscalatedPayload).Reason)
	assert.Equal(t, events.EventAnalysisSafetyFlagged, (*got)[2].Type)
	assert.Equal(t, analysis.ID, (*got)[0].AnalysisID)
}

func TestAnalyzeRejectsEmptyTicket(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	svc := NewAnalysisService(AnalysisDependencies{Analyzer: analyzer})
	_, err := svc.Analyze(context.Background(), domain.Ticket{ID: "TKT-1", Subject: "  "})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Empty(t, analyzer.seen)
}

func TestAnalyzeFailurePublishesEvent(t *testing.T) {
	analyzer := &fakeAnalyzer{err: apperrors.Fatal("thought", errors.New("down"))}
	dispatcher := events.NewInMemoryDispatcher()
	got := recordEvents(dispatcher)
	svc := NewAnalysisService(AnalysisDependencies{Analyzer: analyzer, Dispatcher: dispatcher})

	_, err := svc.Analyze(context.Background(), domain.Ticket{ID: "TKT-2", Subject: "x"})
	require.Error(t, err)
	require.Len(t, *got, 1)
	assert.Equal(t, events.EventAnalysisFailed, (*got)[0].Type)
	assert.Equal(t, "ANALYSIS_FAILED", (*got)[0].Payload.(events.AnalysisFailedPayload).Code)
}

func TestAnalyzePersistenceFailureIsNotFatal(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("db down")
	svc := NewAnalysisService(AnalysisDependencies{Analyzer: &fakeAnalyzer{}, AnalysisRepo: repo})
	analysis, err := svc.Analyze(context.Background(), domain.Ticket{ID: "TKT-3", Subject: "x"})
	require.NoError(t, err)
	assert.NotNil(t, analysis)
}

func TestAnalyzeBusyWhenSlotsExhausted(t *testing.T) {
	analyzer := &fakeAnalyzer{block: make(chan struct{})}
	svc := NewAnalysisService(AnalysisDependencies{Analyzer: analyzer, MaxConcurrent: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Analyze(context.Background(), domain.Ticket{ID: "TKT-4", Subject: "first"})
	}()
	require.Eventually(t, func() bool { return len(svc.slots) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := svc.Analyze(ctx, domain.Ticket{ID: "TKT-5", Subject: "second"})
	assert.Equal(t, "ANALYSIS_BUSY", apperrors.ToDomainError(err).Code)

	close(analyzer.block)
	<-done
}

func TestGetChecksCacheThenRepository(t *testing.T) {
	repo := newMemoryRepo()
	cache := &mapCache{items: map[string]*domain.Analysis{}}
	svc := NewAnalysisService(AnalysisDependencies{AnalysisRepo: repo, Cache: cache})

	cachedID, storedID := uuid.NewString(), uuid.NewString()
	cache.items[cachedID] = &domain.Analysis{ID: cachedID}
	repo.items[storedID] = &domain.Analysis{ID: storedID}

	a, err := svc.Get(context.Background(), cachedID)
	require.NoError(t, err)
	assert.Equal(t, cachedID, a.ID)

	a, err = svc.Get(context.Background(), storedID)
	require.NoError(t, err)
	assert.Equal(t, storedID, a.ID)

	steps, err := svc.Steps(context.Background(), storedID)
	require.NoError(t, err)
	assert.NotNil(t, steps)

	_, err = svc.Get(context.Background(), uuid.NewString())
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	_, err = svc.Get(context.Background(), "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)
}

func TestGetWithoutStorage(t *testing.T) {
	svc := NewAnalysisService(AnalysisDependencies{})
	_, err := svc.Get(context.Background(), uuid.NewString())
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	list, err := svc.ListByTicket(context.Background(), "TKT-1", 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

type stubSearcher struct {
	limit    int
	category domain.Category
	err      error
}

func (s *stubSearcher) Search(_ context.Context, _ string, category domain.Category, limit int) (domain.SearchResult, error) {
	s.limit, s.category = limit, category
	return domain.SearchResult{Count: 1}, s.err
}

func TestKnowledgeServiceValidates(t *testing.T) {
	searcher := &stubSearcher{}
	svc := NewKnowledgeService(searcher)

	_, err := svc.Search(context.Background(), " ", "", 3)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	_, err = svc.Search(context.Background(), "vpn", "PRINTERS", 3)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	res, err := svc.Search(context.Background(), "vpn", "network_connectivity", 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, maxSearchLimit, searcher.limit)
	assert.Equal(t, domain.CategoryNetworkConnectivity, searcher.category)

	searcher.err = errors.New("embedding down")
	_, err = svc.Search(context.Background(), "vpn", "", 3)
	assert.Equal(t, "KB_SEARCH_FAILED", apperrors.ToDomainError(err).Code)
}

func TestAuthServiceIssuesToken(t *testing.T) {
	hash, err := auth.HashSecret("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("jwt", 10)
	svc := NewAuthService(config.AuthConfig{ClientID: "advisor", ClientSecretHash: hash}, tokens)

	tok, err := svc.IssueToken(context.Background(), "advisor", "s3cret")
	require.NoError(t, err)
	claims, err := tokens.ParseToken(tok.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.HasScope(domain.ScopeAnalyze))

	_, err = svc.IssueToken(context.Background(), "advisor", "nope")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
	_, err = svc.IssueToken(context.Background(), "other", "s3cret")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
	_, err = svc.IssueToken(context.Background(), "", "")
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	unconfigured := NewAuthService(config.AuthConfig{ClientID: "advisor"}, tokens)
	_, err = unconfigured.IssueToken(context.Background(), "advisor", "s3cret")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
}
