package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

type memoryEntry struct {
	article   domain.KBArticle
	embedding []float32
}

// MemoryStore keeps articles and embeddings in process.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       []memoryEntry
	index         map[string]int
	categoryBonus float64
}

// NewMemoryStore builds an empty store. Articles in the filter category get
// categoryBonus added to their ranking score.
func NewMemoryStore(categoryBonus float64) *MemoryStore {
	return &MemoryStore{index: make(map[string]int), categoryBonus: categoryBonus}
}

// Name implements Store.
func (s *MemoryStore) Name() string {
	return "semantic_embedding"
}

// Len returns the number of stored articles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, articles []domain.KBArticle, embeddings [][]float32) error {
	if len(articles) != len(embeddings) {
		return fmt.Errorf("upsert: %d articles but %d embeddings", len(articles), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, article := range articles {
		entry := memoryEntry{article: article, embedding: embeddings[i]}
		if pos, ok := s.index[article.KBID]; ok {
			s.entries[pos] = entry
			continue
		}
		s.index[article.KBID] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	return nil
}

// Search keeps an article when its similarity exceeds the threshold or it
// belongs to the requested category, then ranks by similarity plus bonus.
func (s *MemoryStore) Search(_ context.Context, q Query) ([]domain.KBArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		article domain.KBArticle
		score   float64
	}
	results := make([]scored, 0, len(s.entries))
	for _, entry := range s.entries {
		similarity := CosineSimilarity(q.Embedding, entry.embedding)
		inCategory := q.Category != "" && entry.article.Category == q.Category
		if similarity <= q.MinSimilarity && !inCategory {
			continue
		}
		score := similarity
		if inCategory {
			score += s.categoryBonus
		}
		article := entry.article
		article.Similarity = similarity
		results = append(results, scored{article: article, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	out := make([]domain.KBArticle, 0, len(results))
	for _, r := range results {
		out = append(out, r.article)
	}
	return out, nil
}
