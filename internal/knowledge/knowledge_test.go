package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeEmbedder) Model() string { return "fake-embedding" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(0.2)
	articles := []domain.KBArticle{
		{KBID: "KB-1", Title: "VPN setup", Category: domain.CategoryNetworkConnectivity},
		{KBID: "KB-2", Title: "Password reset", Category: domain.CategoryPasswordAccess},
		{KBID: "KB-3", Title: "Printer queue", Category: domain.CategoryHardwareProblems},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.8, 0.6, 0},
		{0, 0, 1},
	}
	require.NoError(t, store.Upsert(context.Background(), articles, embeddings))
	return store
}

func TestMemoryStoreThresholdAndCategoryBonus(t *testing.T) {
	store := seededMemoryStore(t)

	results, err := store.Search(context.Background(), Query{Embedding: []float32{1, 0, 0}, MinSimilarity: 0.7})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "KB-1", results[0].KBID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "KB-2", results[1].KBID)

	// KB-3 is orthogonal but kept for its category; KB-2 overtakes KB-1 via the bonus.
	results, err = store.Search(context.Background(), Query{
		Embedding:     []float32{0.9, 0.1, 0},
		Category:      domain.CategoryPasswordAccess,
		MinSimilarity: 0.7,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "KB-2", results[0].KBID)

	results, err = store.Search(context.Background(), Query{
		Embedding:     []float32{1, 0, 0},
		Category:      domain.CategoryHardwareProblems,
		MinSimilarity: 0.7,
		Limit:         2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "KB-1", results[0].KBID)
	assert.Equal(t, "KB-2", results[1].KBID)
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	store := seededMemoryStore(t)

	err := store.Upsert(context.Background(), []domain.KBArticle{{KBID: "KB-1", Title: "VPN setup v2"}}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	err = store.Upsert(context.Background(), []domain.KBArticle{{KBID: "KB-9"}}, nil)
	assert.Error(t, err)
}

func TestKeywordRerankerPrefersLexicalMatches(t *testing.T) {
	articles := []domain.KBArticle{
		{KBID: "KB-A", Title: "Monitor flicker", Similarity: 0.8, Content: "Check the display cable."},
		{KBID: "KB-B", Title: "Outlook cannot send email", Similarity: 0.75, Keywords: []string{"outlook", "send"}, Content: "Clear the outbox."},
		{KBID: "KB-C", Title: "Keyboard", Similarity: 0.5},
	}

	out := NewKeywordReranker().Rerank("Outlook will not send email", articles, 2)

	require.Len(t, out, 2)
	assert.Equal(t, "KB-B", out[0].KBID)
	assert.Greater(t, out[0].RerankScore, out[1].RerankScore)
	assert.Equal(t, 0.8, articles[0].Similarity)
	assert.Empty(t, NewKeywordReranker().Rerank("anything", nil, 3))
}

func TestLoadBundledData(t *testing.T) {
	articles, err := LoadArticles()
	require.NoError(t, err)
	require.Len(t, articles, 25)
	for _, a := range articles {
		assert.NotEmpty(t, a.KBID)
		assert.True(t, a.Category.Known(), a.KBID)
		assert.NotEmpty(t, a.Content)
	}

	tickets, err := LoadSampleTickets()
	require.NoError(t, err)
	require.NotEmpty(t, tickets)
	assert.Equal(t, "TKT-001", tickets[0].ID)
	assert.Equal(t, domain.CategoryPasswordAccess, tickets[0].ExpectedCategory)
	assert.Equal(t, time.Date(2024, 1, 22, 9, 15, 0, 0, time.UTC), tickets[0].SubmittedAt.UTC())
}

func TestSeederEmbedsAndUpserts(t *testing.T) {
	store := NewMemoryStore(0.2)
	embedder := &fakeEmbedder{}
	seeder := NewSeeder(store, embedder, nil)

	n, err := seeder.Seed(context.Background(), []domain.KBArticle{{KBID: "KB-1"}, {KBID: "KB-2"}})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, embedder.calls)
	assert.Equal(t, 2, store.Len())
}

func TestSeederStopsOnEmbeddingError(t *testing.T) {
	store := NewMemoryStore(0.2)
	seeder := NewSeeder(store, &fakeEmbedder{err: errors.New("quota")}, nil)

	_, err := seeder.Seed(context.Background(), []domain.KBArticle{{KBID: "KB-1"}})

	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestCachedEmbedderFallsThroughWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	inner := &fakeEmbedder{vectors: map[string][]float32{"hello": {0.5, 0.5}}}
	cached := NewCachedEmbedder(inner, client, time.Hour, nil, nil)

	vec, err := cached.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "fake-embedding", cached.Model())
}

func TestCachedEmbedderWithoutClient(t *testing.T) {
	inner := &fakeEmbedder{}
	cached := NewCachedEmbedder(inner, nil, time.Hour, nil, nil)

	_, err := cached.Embed(context.Background(), "x")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWeaviateDecode(t *testing.T) {
	store := NewWeaviateStore(nil, "KBArticle", nil)
	resp := &models.GraphQLResponse{Data: map[string]models.JSONObject{
		"Get": map[string]interface{}{
			"KBArticle": []interface{}{
				map[string]interface{}{
					"kbId":     "KB-042",
					"title":    "Password Reset Procedure",
					"category": "PASSWORD_ACCESS",
					"content":  "Standard password reset procedure",
					"keywords": []interface{}{"password", "reset"},
					"_additional": map[string]interface{}{
						"certainty": 0.91,
					},
				},
			},
		},
	}}

	articles, err := store.decode(resp)

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "KB-042", articles[0].KBID)
	assert.Equal(t, domain.CategoryPasswordAccess, articles[0].Category)
	assert.Equal(t, []string{"password", "reset"}, articles[0].Keywords)
	assert.InDelta(t, 0.91, articles[0].Similarity, 1e-9)
}
