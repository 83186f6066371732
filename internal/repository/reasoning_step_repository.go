package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// ReasoningStepRepository reads the stored reasoning chain of an analysis.
type ReasoningStepRepository interface {
	ListByAnalysis(ctx context.Context, analysisID string) ([]domain.ReasoningStep, error)
}

type reasoningStepRepository struct {
	pool *pgxpool.Pool
}

// NewReasoningStepRepository builds repository.
func NewReasoningStepRepository(pool *pgxpool.Pool) ReasoningStepRepository {
	return &reasoningStepRepository{pool: pool}
}

func insertStep(ctx context.Context, tx pgx.Tx, analysisID string, step *domain.ReasoningStep) error {
	const query = `
        INSERT INTO reasoning_steps (analysis_id, step_number, thought, action, action_input, observation, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	input, err := jsonOrNil(step.ActionInput)
	if err != nil {
		return err
	}
	observation, err := jsonOrNil(step.Observation)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query,
		analysisID,
		step.StepNumber,
		step.Thought,
		step.Action,
		input,
		observation,
		step.CreatedAt,
	)
	return err
}

func (r *reasoningStepRepository) ListByAnalysis(ctx context.Context, analysisID string) ([]domain.ReasoningStep, error) {
	const query = `
        SELECT step_number, thought, action, action_input, observation, created_at
        FROM reasoning_steps WHERE analysis_id=$1 ORDER BY step_number ASC`
	rows, err := r.pool.Query(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ReasoningStep, 0)
	for rows.Next() {
		var (
			step        domain.ReasoningStep
			inputRaw    []byte
			observedRaw []byte
		)
		if err := rows.Scan(
			&step.StepNumber,
			&step.Thought,
			&step.Action,
			&inputRaw,
			&observedRaw,
			&step.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(inputRaw) > 0 {
			step.ActionInput = &domain.ActionInput{}
			if err := json.Unmarshal(inputRaw, step.ActionInput); err != nil {
				return nil, err
			}
		}
		if len(observedRaw) > 0 {
			step.Observation = &domain.Observation{}
			if err := json.Unmarshal(observedRaw, step.Observation); err != nil {
				return nil, err
			}
		}
		result = append(result, step)
	}
	return result, rows.Err()
}

func jsonOrNil[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
