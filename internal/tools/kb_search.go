package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/knowledge"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

// KBSearchOptions tunes the knowledge-base search.
type KBSearchOptions struct {
	// MinSimilarity is passed to the store as its relevance threshold.
	MinSimilarity float64
	TopK          int
	Reranking     bool
}

// KBSearch embeds the ticket and looks up related articles.
type KBSearch struct {
	embedder llm.Embedder
	store    knowledge.Store
	reranker knowledge.Reranker
	opts     KBSearchOptions
	logger   *zap.Logger
}

// NewKBSearch builds the search tool. A nil reranker disables reranking.
func NewKBSearch(embedder llm.Embedder, store knowledge.Store, reranker knowledge.Reranker, opts KBSearchOptions, logger *zap.Logger) *KBSearch {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if reranker == nil {
		opts.Reranking = false
	}
	return &KBSearch{
		embedder: embedder,
		store:    store,
		reranker: reranker,
		opts:     opts,
		logger:   observability.Component(logger, "kb_search"),
	}
}

func (s *KBSearch) Name() domain.ToolName {
	return domain.ToolKBSearch
}

func (s *KBSearch) Description() string {
	return "Searches for relevant KB articles using embeddings"
}

func (s *KBSearch) Execute(ctx context.Context, input domain.ActionInput) (domain.Observation, error) {
	result, err := s.Search(ctx, input.TicketText, input.Category, s.opts.TopK)
	if err != nil {
		return domain.Observation{}, err
	}
	return domain.Observation{Search: &result}, nil
}

// Search returns up to limit article snippets for text, optionally biased
// toward category.
func (s *KBSearch) Search(ctx context.Context, text string, category domain.Category, limit int) (domain.SearchResult, error) {
	if limit <= 0 {
		limit = s.opts.TopK
	}
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return domain.SearchResult{}, err
	}

	fetch := limit
	if s.opts.Reranking {
		fetch = limit * 3
	}
	candidates, err := s.store.Search(ctx, knowledge.Query{
		Embedding:     embedding,
		Category:      category,
		MinSimilarity: s.opts.MinSimilarity,
		Limit:         fetch,
	})
	if err != nil {
		return domain.SearchResult{}, err
	}
	total := len(candidates)

	ranked := candidates
	if s.opts.Reranking {
		ranked = s.reranker.Rerank(text, candidates, limit)
	} else if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	articles := make([]domain.KBArticle, 0, len(ranked))
	for _, article := range ranked {
		articles = append(articles, article.Snippet())
	}
	s.logger.Debug("knowledge base searched",
		zap.String("store", s.store.Name()),
		zap.String("category", string(category)),
		zap.Int("candidates", total),
		zap.Int("returned", len(articles)),
	)

	return domain.SearchResult{
		Articles:       articles,
		Count:          len(articles),
		TotalFound:     total,
		SearchMethod:   s.store.Name(),
		EmbeddingModel: s.embedder.Model(),
		Reranking:      s.opts.Reranking,
	}, nil
}
