// Package knowledge searches and seeds the knowledge base of solution articles.
package knowledge

import (
	"context"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// Query is a vector search request.
type Query struct {
	Embedding     []float32
	Category      domain.Category
	MinSimilarity float64
	Limit         int
}

// Store is a vector-searchable article collection. Implementations return
// articles with full content, ordered best first.
type Store interface {
	Search(ctx context.Context, q Query) ([]domain.KBArticle, error)
	Upsert(ctx context.Context, articles []domain.KBArticle, embeddings [][]float32) error
	Name() string
}
