// Package bootstrap assembles the analysis stack shared by the API server
// and the command-line client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/agent"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/knowledge"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
	"github.com/spec-kit/ticket-advisor/internal/priority"
	"github.com/spec-kit/ticket-advisor/internal/repository"
	"github.com/spec-kit/ticket-advisor/internal/retry"
	"github.com/spec-kit/ticket-advisor/internal/safety"
	"github.com/spec-kit/ticket-advisor/internal/tools"
)

// Knowledge-base backends accepted by KB_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendWeaviate = "weaviate"
)

// ErrPostgresRequired is returned when the postgres backend is chosen without a DSN.
var ErrPostgresRequired = errors.New("KB_BACKEND=postgres requires POSTGRES_DSN")

// Stack holds the wired analysis components.
type Stack struct {
	LLM      *llm.OpenAIClient
	Embedder llm.Embedder
	Store    knowledge.Store
	KBSearch *tools.KBSearch
	Gate     *safety.Gate
	Agent    *agent.Agent
}

// Build wires the completion client, knowledge store, tools, safety gate and agent.
func Build(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, cache *persistence.Redis, logger *zap.Logger, metrics *observability.Metrics) (*Stack, error) {
	client, err := llm.NewOpenAIClient(cfg.LLM, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	embedder := knowledge.NewCachedEmbedder(client, cache.Handle(), cfg.Redis.EmbeddingTTL(), logger, metrics)

	store, err := NewKnowledgeStore(ctx, cfg.Knowledge, pg, logger)
	if err != nil {
		return nil, err
	}

	var reranker knowledge.Reranker
	if cfg.Knowledge.Reranking {
		reranker = knowledge.NewKeywordReranker()
	}
	kbSearch := tools.NewKBSearch(embedder, store, reranker, tools.KBSearchOptions{
		MinSimilarity: cfg.Knowledge.MinSimilarity,
		TopK:          cfg.Knowledge.TopK,
		Reranking:     cfg.Knowledge.Reranking,
	}, logger)

	registry, err := tools.NewRegistry(
		tools.NewCategorizer(client),
		kbSearch,
		tools.NewPriorityTool(priority.NewScorer(priority.DefaultRules())),
	)
	if err != nil {
		return nil, fmt.Errorf("tool registry: %w", err)
	}

	gate := NewGate(cfg, logger, metrics)

	analyzer, err := agent.New(agent.Dependencies{
		Completer: client,
		Tools:     registry,
		Gate:      gate,
		Logger:    logger,
		Metrics:   metrics,
	}, agent.OptionsFromConfig(cfg.Agent))
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	return &Stack{
		LLM:      client,
		Embedder: embedder,
		Store:    store,
		KBSearch: kbSearch,
		Gate:     gate,
		Agent:    analyzer,
	}, nil
}

// NewKnowledgeStore opens the configured knowledge-base backend.
func NewKnowledgeStore(ctx context.Context, cfg config.KnowledgeConfig, pg *persistence.Postgres, logger *zap.Logger) (knowledge.Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		if !pg.Enabled() {
			return nil, ErrPostgresRequired
		}
		return repository.NewKBArticleRepository(pg.PoolHandle()), nil
	case BackendWeaviate:
		client, err := knowledge.NewWeaviateClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("weaviate client: %w", err)
		}
		store := knowledge.NewWeaviateStore(client, cfg.WeaviateClass, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("weaviate schema: %w", err)
		}
		return store, nil
	case BackendMemory, "":
		return knowledge.NewMemoryStore(cfg.CategoryBonus), nil
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", cfg.Backend)
	}
}

// NewGate returns the safety gate, or nil when checking is disabled or the
// classifier cannot be configured.
func NewGate(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) *safety.Gate {
	if !cfg.Agent.SafetyCheck {
		logger.Info("safety checking disabled")
		return nil
	}
	classifier, err := safety.NewLlamaGuardClassifier(cfg.Safety, cfg.LLM.RequestTimeout(), logger, metrics)
	if err != nil {
		logger.Warn("safety classifier unavailable; checking disabled", zap.Error(err))
		return nil
	}
	return safety.NewGate(classifier, retry.FromConfig(cfg.Agent), logger, metrics)
}

// Seed loads the bundled articles into the stack's store.
func (s *Stack) Seed(ctx context.Context, logger *zap.Logger) (int, error) {
	articles, err := knowledge.LoadArticles()
	if err != nil {
		return 0, err
	}
	return knowledge.NewSeeder(s.Store, s.Embedder, logger).Seed(ctx, articles)
}
