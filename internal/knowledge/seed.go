package knowledge

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

//go:embed seeddata/kb_articles.yaml
var kbArticlesYAML []byte

//go:embed seeddata/sample_tickets.yaml
var sampleTicketsYAML []byte

// SampleTicket is a bundled ticket with its expected classification.
type SampleTicket struct {
	domain.Ticket    `yaml:",inline"`
	ExpectedCategory domain.Category      `yaml:"expected_category" json:"expected_category"`
	ExpectedPriority domain.PriorityLevel `yaml:"expected_priority" json:"expected_priority"`
}

// LoadArticles returns the bundled knowledge-base articles.
func LoadArticles() ([]domain.KBArticle, error) {
	var doc struct {
		Articles []domain.KBArticle `yaml:"articles"`
	}
	if err := yaml.Unmarshal(kbArticlesYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode kb articles: %w", err)
	}
	return doc.Articles, nil
}

// LoadSampleTickets returns the bundled sample tickets.
func LoadSampleTickets() ([]SampleTicket, error) {
	var doc struct {
		Tickets []SampleTicket `yaml:"tickets"`
	}
	if err := yaml.Unmarshal(sampleTicketsYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode sample tickets: %w", err)
	}
	return doc.Tickets, nil
}

// Seeder embeds articles and writes them to a Store.
type Seeder struct {
	store    Store
	embedder llm.Embedder
	logger   *zap.Logger
}

// NewSeeder constructs a seeder.
func NewSeeder(store Store, embedder llm.Embedder, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, embedder: embedder, logger: observability.Component(logger, "kb_seeder")}
}

// Seed embeds every article and upserts them in one call.
func (s *Seeder) Seed(ctx context.Context, articles []domain.KBArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	embeddings := make([][]float32, 0, len(articles))
	for _, article := range articles {
		vec, err := s.embedder.Embed(ctx, article.EmbeddingText())
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", article.KBID, err)
		}
		embeddings = append(embeddings, vec)
		s.logger.Debug("embedded article", zap.String("kb_id", article.KBID), zap.Int("dims", len(vec)))
	}
	if err := s.store.Upsert(ctx, articles, embeddings); err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", s.store.Name(), err)
	}
	s.logger.Info("knowledge base seeded", zap.String("store", s.store.Name()), zap.Int("articles", len(articles)))
	return len(articles), nil
}
