package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// AnalysisRepository persists finished analyses with their reasoning chain.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.Analysis, error)
}

type analysisRepository struct {
	pool  *pgxpool.Pool
	steps ReasoningStepRepository
}

// NewAnalysisRepository instantiates repository.
func NewAnalysisRepository(pool *pgxpool.Pool, steps ReasoningStepRepository) AnalysisRepository {
	return &analysisRepository{pool: pool, steps: steps}
}

func (r *analysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	ticketJSON, err := json.Marshal(analysis.Ticket)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	recJSON, err := json.Marshal(analysis.Recommendation)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}

	const query = `
        INSERT INTO analyses (id, ticket_id, ticket, recommendation, category, priority, total_steps, safety_flagged, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query,
			analysis.ID,
			analysis.TicketID,
			ticketJSON,
			recJSON,
			analysis.Recommendation.Category,
			analysis.Recommendation.Priority,
			analysis.TotalSteps,
			analysis.Recommendation.SafetyFlagged,
			analysis.StartedAt,
			analysis.CompletedAt,
		); err != nil {
			return err
		}
		for i := range analysis.ReasoningChain {
			if err := insertStep(ctx, tx, analysis.ID, &analysis.ReasoningChain[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *analysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	const query = `
        SELECT id::text, ticket_id, ticket, recommendation, total_steps, started_at, completed_at
        FROM analyses WHERE id=$1`
	analysis, err := scanAnalysis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	steps, err := r.steps.ListByAnalysis(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}
	analysis.ReasoningChain = steps
	return analysis, nil
}

func (r *analysisRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id::text, ticket_id, ticket, recommendation, total_steps, started_at, completed_at
        FROM analyses WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *analysis)
	}
	return result, rows.Err()
}

func scanAnalysis(row pgx.Row) (*domain.Analysis, error) {
	var (
		analysis  domain.Analysis
		ticketRaw []byte
		recRaw    []byte
	)
	if err := row.Scan(
		&analysis.ID,
		&analysis.TicketID,
		&ticketRaw,
		&recRaw,
		&analysis.TotalSteps,
		&analysis.StartedAt,
		&analysis.CompletedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ticketRaw, &analysis.Ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	if err := json.Unmarshal(recRaw, &analysis.Recommendation); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}
	return &analysis, nil
}
