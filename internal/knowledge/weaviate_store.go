package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

// NewWeaviateClient connects to the configured Weaviate instance.
func NewWeaviateClient(cfg config.KnowledgeConfig) (*weaviate.Client, error) {
	clientCfg := weaviate.Config{Host: cfg.WeaviateURL, Scheme: "http"}
	switch {
	case strings.HasPrefix(cfg.WeaviateURL, "https://"):
		clientCfg.Scheme = "https"
		clientCfg.Host = strings.TrimPrefix(cfg.WeaviateURL, "https://")
	case strings.HasPrefix(cfg.WeaviateURL, "http://"):
		clientCfg.Host = strings.TrimPrefix(cfg.WeaviateURL, "http://")
	}
	if cfg.WeaviateAPIKey != "" {
		clientCfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.WeaviateAPIKey}
	}
	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return client, nil
}

// WeaviateStore searches articles stored as a Weaviate class with
// externally supplied vectors.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
	logger *zap.Logger
}

// NewWeaviateStore constructs the store.
func NewWeaviateStore(client *weaviate.Client, class string, logger *zap.Logger) *WeaviateStore {
	if class == "" {
		class = "KBArticle"
	}
	return &WeaviateStore{client: client, class: class, logger: observability.Component(logger, "weaviate_store")}
}

// Name implements Store.
func (s *WeaviateStore) Name() string {
	return "weaviate_vector"
}

// EnsureSchema creates the article class if it is missing.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx); err == nil {
		return nil
	}
	filterable := true
	field := func(name string) *models.Property {
		return &models.Property{Name: name, DataType: []string{"text"}, IndexFilterable: &filterable, Tokenization: "field"}
	}
	class := &models.Class{
		Class:       s.class,
		Description: "IT support knowledge-base article",
		Vectorizer:  "none",
		Properties: []*models.Property{
			field("kbId"),
			{Name: "title", DataType: []string{"text"}, Tokenization: "word"},
			field("category"),
			{Name: "content", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "keywords", DataType: []string{"text[]"}},
			{Name: "avgResolutionTime", DataType: []string{"text"}},
			{Name: "successRate", DataType: []string{"text"}},
			{Name: "relatedArticles", DataType: []string{"text[]"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", s.class, err)
	}
	s.logger.Info("created weaviate class", zap.String("class", s.class))
	return nil
}

// Upsert implements Store. Object ids derive from kb ids so reseeding overwrites.
func (s *WeaviateStore) Upsert(ctx context.Context, articles []domain.KBArticle, embeddings [][]float32) error {
	if len(articles) != len(embeddings) {
		return fmt.Errorf("upsert: %d articles but %d embeddings", len(articles), len(embeddings))
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	objects := make([]*models.Object, len(articles))
	for i, article := range articles {
		objects[i] = &models.Object{
			Class:  s.class,
			ID:     strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(article.KBID)).String()),
			Vector: embeddings[i],
			Properties: map[string]interface{}{
				"kbId":              article.KBID,
				"title":             article.Title,
				"category":          string(article.Category),
				"content":           article.Content,
				"keywords":          article.Keywords,
				"avgResolutionTime": article.AvgResolutionTime,
				"successRate":       article.SuccessRate,
				"relatedArticles":   article.RelatedArticles,
			},
		}
	}
	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch import: %w", err)
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch import: %s", item.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

type weaviateArticle struct {
	KBID              string   `json:"kbId"`
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	Content           string   `json:"content"`
	Keywords          []string `json:"keywords"`
	AvgResolutionTime string   `json:"avgResolutionTime"`
	SuccessRate       string   `json:"successRate"`
	RelatedArticles   []string `json:"relatedArticles"`
	Additional        struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

// Search implements Store using nearVector with an optional category filter.
func (s *WeaviateStore) Search(ctx context.Context, q Query) ([]domain.KBArticle, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(q.Embedding).
		WithCertainty(float32(q.MinSimilarity))

	fields := []graphql.Field{
		{Name: "kbId"},
		{Name: "title"},
		{Name: "category"},
		{Name: "content"},
		{Name: "keywords"},
		{Name: "avgResolutionTime"},
		{Name: "successRate"},
		{Name: "relatedArticles"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}
	builder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)
	if q.Category != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"category"}).
			WithOperator(filters.Equal).
			WithValueString(string(q.Category)))
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}
	return s.decode(result)
}

func (s *WeaviateStore) decode(result *models.GraphQLResponse) ([]domain.KBArticle, error) {
	raw, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql data: %w", err)
	}
	var parsed struct {
		Get map[string][]weaviateArticle `json:"Get"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode graphql data: %w", err)
	}
	rows := parsed.Get[s.class]
	out := make([]domain.KBArticle, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.KBArticle{
			KBID:              row.KBID,
			Title:             row.Title,
			Category:          domain.Category(row.Category),
			Content:           row.Content,
			Keywords:          row.Keywords,
			AvgResolutionTime: row.AvgResolutionTime,
			SuccessRate:       row.SuccessRate,
			RelatedArticles:   row.RelatedArticles,
			Similarity:        row.Additional.Certainty,
		})
	}
	return out, nil
}
