package service

import (
	"context"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

const maxSearchLimit = 10

// KnowledgeSearcher looks up article snippets for free text.
type KnowledgeSearcher interface {
	Search(ctx context.Context, text string, category domain.Category, limit int) (domain.SearchResult, error)
}

// KnowledgeService serves direct knowledge-base queries.
type KnowledgeService struct {
	searcher KnowledgeSearcher
}

func NewKnowledgeService(searcher KnowledgeSearcher) *KnowledgeService {
	return &KnowledgeService{searcher: searcher}
}

// Search validates the query and runs it.
func (s *KnowledgeService) Search(ctx context.Context, query string, category domain.Category, limit int) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, apperrors.NewValidationError("query required", nil)
	}
	category = domain.Category(strings.ToUpper(strings.TrimSpace(string(category))))
	if category != "" && !category.Known() {
		return domain.SearchResult{}, apperrors.NewValidationError("unknown category", map[string]any{
			"category": category,
			"allowed":  domain.Categories,
		})
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	result, err := s.searcher.Search(ctx, query, category, limit)
	if err != nil {
		return domain.SearchResult{}, apperrors.NewUpstreamError("KB_SEARCH_FAILED", "knowledge base search failed", err)
	}
	return result, nil
}
