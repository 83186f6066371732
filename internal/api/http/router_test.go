package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-advisor/internal/api/http/handlers"
	"github.com/spec-kit/ticket-advisor/internal/auth"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
	"github.com/spec-kit/ticket-advisor/internal/service"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

type cannedAnalyzer struct{}

func (cannedAnalyzer) Analyze(_ context.Context, ticket domain.Ticket) (*domain.Analysis, error) {
	now := time.Now().UTC()
	return &domain.Analysis{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		Ticket:   ticket,
		ReasoningChain: []domain.ReasoningStep{
			{StepNumber: 1, Thought: "categorize first", Action: domain.ToolCategorizer},
			{StepNumber: 2, Thought: "FINISH"},
		},
		Recommendation: domain.Recommendation{
			Advice:     domain.Advice{ImmediateActions: []string{"Reset password"}, EstimatedTime: "5 minutes"},
			Category:   domain.CategoryPasswordAccess,
			Priority:   domain.PriorityMedium,
			KBArticles: []domain.KBArticle{},
		},
		TotalSteps:  2,
		StartedAt:   now,
		CompletedAt: now.Add(time.Second),
	}, nil
}

type mapCache map[string]*domain.Analysis

func (m mapCache) PutAnalysis(_ context.Context, a *domain.Analysis, _ time.Duration) error {
	m[a.ID] = a
	return nil
}

func (m mapCache) GetAnalysis(_ context.Context, id string) (*domain.Analysis, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, persistence.ErrCacheMiss
}

type staticSearcher struct{}

func (staticSearcher) Search(_ context.Context, _ string, _ domain.Category, limit int) (domain.SearchResult, error) {
	return domain.SearchResult{
		Articles:     []domain.KBArticle{{KBID: "KB001", Title: "Password Reset"}},
		Count:        1,
		TotalFound:   limit,
		SearchMethod: "memory",
	}, nil
}

type fakeDependency struct {
	enabled bool
	err     error
}

func (f fakeDependency) Enabled() bool                { return f.enabled }
func (f fakeDependency) Ping(_ context.Context) error { return f.err }

// blockingAnalyzer runs until the request deadline. When wrapCause is false
// it returns an error that hides the context error.
type blockingAnalyzer struct {
	wrapCause bool
}

func (b blockingAnalyzer) Analyze(ctx context.Context, _ domain.Ticket) (*domain.Analysis, error) {
	<-ctx.Done()
	if b.wrapCause {
		return nil, apperrors.Fatal("thought", ctx.Err())
	}
	return nil, apperrors.Fatal("thought", errors.New("completion stream closed"))
}

type testAppConfig struct {
	authEnabled bool
	deps        map[string]handlers.Dependency
	analyzer    service.Analyzer
	timeout     time.Duration
	logger      *zap.Logger
}

func newTestApp(t *testing.T, authEnabled bool, deps map[string]handlers.Dependency) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	return buildTestApp(t, testAppConfig{authEnabled: authEnabled, deps: deps})
}

func buildTestApp(t *testing.T, cfg testAppConfig) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.analyzer == nil {
		cfg.analyzer = cannedAnalyzer{}
	}
	if cfg.timeout == 0 {
		cfg.timeout = time.Second
	}
	metrics := observability.NewMetrics()

	hash, err := auth.HashSecret("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("test-secret", 5)
	authService := service.NewAuthService(config.AuthConfig{ClientID: "advisor", ClientSecretHash: hash}, tokens)

	analyses := service.NewAnalysisService(service.AnalysisDependencies{
		Analyzer: cfg.analyzer,
		Cache:    mapCache{},
		Logger:   logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, cfg.timeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(handlers.HealthInfo{ServiceName: "ticket-advisor", Version: "test", KBBackend: "memory"}, cfg.deps),
		Analyses:       handlers.NewAnalysisHandler(analyses),
		Knowledge:      handlers.NewKnowledgeHandler(service.NewKnowledgeService(staticSearcher{}), 3),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, cfg.authEnabled),
		Metrics:        metrics,
	})
	return app, tokens
}

func doJSON(t *testing.T, app *fiber.App, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestAnalyzeAndFetch(t *testing.T) {
	app, _ := newTestApp(t, false, nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/v1/tickets/analyze",
		`{"id":"TKT-001","subject":"Cannot log in","description":"Locked out after password change"}`, "")
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "TKT-001", data["ticket_id"])
	assert.EqualValues(t, 2, data["total_steps"])
	assert.Len(t, data["reasoning_chain"], 2)
	rec := data["recommendation"].(map[string]any)
	assert.Equal(t, "PASSWORD_ACCESS", rec["category"])
	assert.Equal(t, []any{"Reset password"}, rec["immediate_actions"])

	id := data["analysis_id"].(string)
	status, body = doJSON(t, app, nethttp.MethodGet, "/v1/analyses/"+id, "", "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, id, body["data"].(map[string]any)["analysis_id"])

	status, body = doJSON(t, app, nethttp.MethodGet, "/v1/analyses/"+id+"/steps", "", "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestAnalyzeValidationEnvelope(t *testing.T) {
	app, _ := newTestApp(t, false, nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/v1/tickets/analyze", `{"id":"TKT-9"}`, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.NotEmpty(t, errBody["details"])

	status, body = doJSON(t, app, nethttp.MethodGet, "/v1/analyses/"+uuid.NewString(), "", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestAnalyzeTimeoutEnvelope(t *testing.T) {
	for name, wrapCause := range map[string]bool{"wrapped deadline": true, "opaque error": false} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			app, _ := buildTestApp(t, testAppConfig{
				analyzer: blockingAnalyzer{wrapCause: wrapCause},
				timeout:  20 * time.Millisecond,
				logger:   zap.New(core),
			})

			status, body := doJSON(t, app, nethttp.MethodPost, "/v1/tickets/analyze",
				`{"id":"TKT-42","subject":"VPN drops","description":"Tunnel resets every few minutes"}`, "")
			assert.Equal(t, nethttp.StatusGatewayTimeout, status)
			assert.Equal(t, "ANALYSIS_TIMEOUT", body["error"].(map[string]any)["code"])

			failed := logs.FilterMessage("request failed").All()
			require.Len(t, failed, 1)
			fields := failed[0].ContextMap()
			assert.Equal(t, "TKT-42", fields["ticket_id"])
			assert.Equal(t, "ANALYSIS_TIMEOUT", fields["code"])
		})
	}
}

func TestNotFoundLogCarriesNoServerError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	app, _ := buildTestApp(t, testAppConfig{logger: zap.New(core)})

	status, _ := doJSON(t, app, nethttp.MethodGet, "/v1/analyses/"+uuid.NewString(), "", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Zero(t, logs.FilterMessage("request failed").Len())
}

func TestKnowledgeSearchDefaultsLimit(t *testing.T) {
	app, _ := newTestApp(t, false, nil)

	status, body := doJSON(t, app, nethttp.MethodPost, "/v1/kb/search", `{"query":"password reset"}`, "")
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["count"])
	assert.EqualValues(t, 3, data["total_found"])
}

func TestAuthEnforcedWhenEnabled(t *testing.T) {
	app, tokens := newTestApp(t, true, nil)

	status, _ := doJSON(t, app, nethttp.MethodPost, "/v1/kb/search", `{"query":"vpn"}`, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body := doJSON(t, app, nethttp.MethodPost, "/v1/auth/token", `{"client_id":"advisor","client_secret":"s3cret"}`, "")
	require.Equal(t, nethttp.StatusOK, status)
	token := body["data"].(map[string]any)["access_token"].(string)

	status, _ = doJSON(t, app, nethttp.MethodPost, "/v1/kb/search", `{"query":"vpn"}`, token)
	assert.Equal(t, nethttp.StatusOK, status)

	limited, err := tokens.GenerateToken("advisor", []domain.Scope{domain.ScopeReadKnowledge})
	require.NoError(t, err)
	status, _ = doJSON(t, app, nethttp.MethodPost, "/v1/tickets/analyze", `{"subject":"x"}`, limited.AccessToken)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = doJSON(t, app, nethttp.MethodPost, "/v1/auth/token", `{"client_id":"advisor","client_secret":"wrong"}`, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t, false, map[string]handlers.Dependency{
		"postgres": fakeDependency{enabled: false},
		"redis":    fakeDependency{enabled: true},
	})

	status, body := doJSON(t, app, nethttp.MethodGet, "/health/ready", "", "")
	require.Equal(t, nethttp.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
	assert.Equal(t, "memory", body["kb_backend"])

	status, _ = doJSON(t, app, nethttp.MethodGet, "/health/live", "", "")
	assert.Equal(t, nethttp.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestReadyFailsOnUnreachableDependency(t *testing.T) {
	app, _ := newTestApp(t, false, map[string]handlers.Dependency{
		"postgres": fakeDependency{enabled: true, err: assert.AnError},
	})
	status, body := doJSON(t, app, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body["error"].(map[string]any)["code"])
}
