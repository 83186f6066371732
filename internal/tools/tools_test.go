package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/knowledge"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/priority"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

type stubCompleter struct {
	response string
	err      error
	requests []llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.response, s.err
}

type stubEmbedder struct{}

func (stubEmbedder) Model() string { return "stub-embedding" }

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "vpn") {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	cat := NewCategorizer(&stubCompleter{})
	pri := NewPriorityTool(priority.NewScorer(priority.DefaultRules()))

	reg, err := NewRegistry(cat, pri)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolName{domain.ToolCategorizer, domain.ToolPriority}, reg.Names())
	assert.Equal(t, 2, reg.Len())

	_, ok := reg.Lookup(domain.ToolKBSearch)
	assert.False(t, ok)
	tool, ok := reg.Lookup(domain.ToolPriority)
	require.True(t, ok)
	assert.Same(t, pri, tool)

	assert.Error(t, reg.Register(cat))
	assert.Error(t, reg.Register(nil))
}

func TestCategorizerParsesResponse(t *testing.T) {
	completer := &stubCompleter{response: "```json\n{\"category\":\"network_connectivity\",\"confidence\":92.4,\"reasoning\":\"vpn\",\"keywords_detected\":[\"vpn\"]}\n```"}
	obs, err := NewCategorizer(completer).Execute(context.Background(), domain.ActionInput{TicketText: "VPN drops"})
	require.NoError(t, err)
	require.NotNil(t, obs.Category)
	assert.Equal(t, domain.CategoryNetworkConnectivity, obs.Category.Category)
	assert.Equal(t, 92, obs.Category.Confidence)
	assert.Equal(t, []string{"vpn"}, obs.Category.KeywordsDetected)

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, 150, req.MaxTokens)
	assert.Equal(t, categorizerSystemPrompt, req.System)
	assert.Contains(t, req.User, "PASSWORD_ACCESS, SOFTWARE_ISSUES")
	assert.Contains(t, req.User, "VPN drops")
}

func TestCategorizerMalformedResponse(t *testing.T) {
	_, err := NewCategorizer(&stubCompleter{response: "not json"}).Execute(context.Background(), domain.ActionInput{TicketText: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformedResponse, apperrors.KindOf(err))
}

func TestCategorizerPropagatesCompletionError(t *testing.T) {
	boom := errors.New("down")
	_, err := NewCategorizer(&stubCompleter{err: boom}).Execute(context.Background(), domain.ActionInput{TicketText: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, clampPercent(-3))
	assert.Equal(t, 100, clampPercent(140))
	assert.Equal(t, 51, clampPercent(50.5))
}

func newSearchStore(t *testing.T) knowledge.Store {
	t.Helper()
	store := knowledge.NewMemoryStore(0.2)
	long := strings.Repeat("a", 250)
	articles := []domain.KBArticle{
		{KBID: "KB-001", Title: "VPN disconnects", Category: domain.CategoryNetworkConnectivity, Content: long, Keywords: []string{"vpn"}},
		{KBID: "KB-002", Title: "VPN client install", Category: domain.CategoryNetworkConnectivity, Content: "install"},
		{KBID: "KB-003", Title: "Reset password", Category: domain.CategoryPasswordAccess, Content: "reset"},
	}
	embeddings := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}
	require.NoError(t, store.Upsert(context.Background(), articles, embeddings))
	return store
}

func TestKBSearchReturnsSnippetsAndMetadata(t *testing.T) {
	search := NewKBSearch(stubEmbedder{}, newSearchStore(t), nil, KBSearchOptions{MinSimilarity: 0.7, TopK: 1}, zap.NewNop())

	obs, err := search.Execute(context.Background(), domain.ActionInput{TicketText: "VPN keeps dropping"})
	require.NoError(t, err)
	require.NotNil(t, obs.Search)
	res := obs.Search
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, res.TotalFound)
	assert.Equal(t, "semantic_embedding", res.SearchMethod)
	assert.Equal(t, "stub-embedding", res.EmbeddingModel)
	assert.False(t, res.Reranking)
	assert.Equal(t, "KB-001", res.Articles[0].KBID)
	assert.Len(t, []rune(res.Articles[0].Content), domain.SnippetLength+3)
	assert.True(t, strings.HasSuffix(res.Articles[0].Content, "..."))
}

func TestKBSearchRerankingFetchesMoreCandidates(t *testing.T) {
	search := NewKBSearch(stubEmbedder{}, newSearchStore(t), knowledge.NewKeywordReranker(), KBSearchOptions{MinSimilarity: 0.7, TopK: 1, Reranking: true}, zap.NewNop())

	res, err := search.Search(context.Background(), "vpn client install", domain.CategoryNetworkConnectivity, 0)
	require.NoError(t, err)
	assert.True(t, res.Reranking)
	assert.Equal(t, 2, res.TotalFound)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "KB-002", res.Articles[0].KBID)
}

func TestPriorityToolUsesCategory(t *testing.T) {
	tool := NewPriorityTool(priority.NewScorer(priority.DefaultRules()))
	obs, err := tool.Execute(context.Background(), domain.ActionInput{
		TicketText: "URGENT: entire floor has no internet, production down",
		Category:   domain.CategoryNetworkConnectivity,
	})
	require.NoError(t, err)
	require.NotNil(t, obs.Priority)
	assert.Equal(t, domain.PriorityHigh, obs.Priority.Priority)
	assert.Equal(t, 100, obs.Priority.Confidence)
}

func TestPriorityToolHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPriorityTool(priority.NewScorer(priority.DefaultRules())).Execute(ctx, domain.ActionInput{TicketText: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
