package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/knowledge"
)

// KBArticleRepository is the pgvector-backed knowledge store.
type KBArticleRepository interface {
	knowledge.Store
	Count(ctx context.Context) (int, error)
}

type kbArticleRepository struct {
	pool *pgxpool.Pool
}

// NewKBArticleRepository builds repository.
func NewKBArticleRepository(pool *pgxpool.Pool) KBArticleRepository {
	return &kbArticleRepository{pool: pool}
}

func (r *kbArticleRepository) Name() string {
	return "pgvector"
}

func (r *kbArticleRepository) Search(ctx context.Context, q knowledge.Query) ([]domain.KBArticle, error) {
	const query = `
        SELECT kb_id, title, category, content, keywords, avg_resolution_time, success_rate, related_articles, similarity
        FROM match_kb_articles($1::vector, $2, $3, $4)`
	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}
	rows, err := r.pool.Query(ctx, query, vectorLiteral(q.Embedding), q.MinSimilarity, limit, nullableCategory(q.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBArticle
	for rows.Next() {
		var article domain.KBArticle
		if err := rows.Scan(
			&article.KBID,
			&article.Title,
			&article.Category,
			&article.Content,
			&article.Keywords,
			&article.AvgResolutionTime,
			&article.SuccessRate,
			&article.RelatedArticles,
			&article.Similarity,
		); err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	return result, rows.Err()
}

func (r *kbArticleRepository) Upsert(ctx context.Context, articles []domain.KBArticle, embeddings [][]float32) error {
	const query = `
        INSERT INTO kb_articles (kb_id, title, category, content, keywords, avg_resolution_time, success_rate, related_articles, embedding)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::vector)
        ON CONFLICT (kb_id) DO UPDATE SET
            title=EXCLUDED.title, category=EXCLUDED.category, content=EXCLUDED.content,
            keywords=EXCLUDED.keywords, avg_resolution_time=EXCLUDED.avg_resolution_time,
            success_rate=EXCLUDED.success_rate, related_articles=EXCLUDED.related_articles,
            embedding=EXCLUDED.embedding, updated_at=NOW()`
	batch := &pgx.Batch{}
	for i, article := range articles {
		batch.Queue(query,
			article.KBID,
			article.Title,
			article.Category,
			article.Content,
			nonNilStrings(article.Keywords),
			article.AvgResolutionTime,
			article.SuccessRate,
			nonNilStrings(article.RelatedArticles),
			vectorLiteral(embeddings[i]),
		)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range articles {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *kbArticleRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kb_articles WHERE embedding IS NOT NULL`).Scan(&n)
	return n, err
}

// vectorLiteral renders a pgvector input literal such as [0.1,0.2].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullableCategory(c domain.Category) any {
	if c == "" {
		return nil
	}
	return string(c)
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
