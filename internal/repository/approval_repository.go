package repository

import (
	"context"
	"fmt"

	"github.com/firelater/itsm-service/internal/domain"
)

// ApprovalRepository persists chains, their steps, and immutable records.
type ApprovalRepository interface {
	CreateChain(ctx context.Context, tenant string, chain *domain.ApprovalChain) error
	GetChain(ctx context.Context, tenant, chainID string) (*domain.ApprovalChain, error)
	UpdateStepAssignee(ctx context.Context, tenant, chainID, stepID, userID string) error
	AppendRecord(ctx context.Context, tenant string, record *domain.ApprovalRecord) error
	ListRecords(ctx context.Context, tenant, chainID string) ([]domain.ApprovalRecord, error)
}

type approvalRepository struct {
	q Querier
}

// NewApprovalRepository instantiates the repository.
func NewApprovalRepository(q Querier) ApprovalRepository {
	return &approvalRepository{q: q}
}

func (r *approvalRepository) CreateChain(ctx context.Context, tenant string, chain *domain.ApprovalChain) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (name) VALUES ($1)
        RETURNING id, created_at, updated_at`, table(tenant, "approval_chains"))
	if err := r.q.QueryRow(ctx, query, chain.Name).
		Scan(&chain.ID, &chain.CreatedAt, &chain.UpdatedAt); err != nil {
		return err
	}

	stepQuery := fmt.Sprintf(`
        INSERT INTO %s (chain_id, step_id, kind, position, step_order, assignee_user_id,
            assignee_group_id, condition_expr, next_step_id, else_step_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, table(tenant, "approval_chain_steps"))
	for position, step := range chain.Steps {
		if step == nil {
			continue
		}
		if _, err := r.q.Exec(ctx, stepQuery,
			chain.ID, step.ID, step.Kind, position, step.Order,
			step.AssigneeUserID, step.AssigneeGroupID,
			step.Condition, step.NextStepID, step.ElseStepID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *approvalRepository) GetChain(ctx context.Context, tenant, chainID string) (*domain.ApprovalChain, error) {
	query := fmt.Sprintf(`
        SELECT id, name, created_at, updated_at
        FROM %s WHERE id=$1`, table(tenant, "approval_chains"))
	var chain domain.ApprovalChain
	if err := r.q.QueryRow(ctx, query, chainID).
		Scan(&chain.ID, &chain.Name, &chain.CreatedAt, &chain.UpdatedAt); err != nil {
		return nil, err
	}

	// Array order is significant (duplicate-id tie-breaks), so steps come
	// back in authoring position, not by step_order.
	stepQuery := fmt.Sprintf(`
        SELECT step_id, kind, step_order, assignee_user_id, assignee_group_id,
               condition_expr, next_step_id, else_step_id
        FROM %s WHERE chain_id=$1 ORDER BY position ASC`, table(tenant, "approval_chain_steps"))
	rows, err := r.q.Query(ctx, stepQuery, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.ApprovalChainStep
		if err := rows.Scan(
			&step.ID, &step.Kind, &step.Order,
			&step.AssigneeUserID, &step.AssigneeGroupID,
			&step.Condition, &step.NextStepID, &step.ElseStepID,
		); err != nil {
			return nil, err
		}
		chain.Steps = append(chain.Steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &chain, nil
}

// UpdateStepAssignee rewrites a step's user assignee in place, used by
// delegation. Only the first occurrence of a duplicated step id is touched.
func (r *approvalRepository) UpdateStepAssignee(ctx context.Context, tenant, chainID, stepID, userID string) error {
	query := fmt.Sprintf(`
        UPDATE %s SET assignee_user_id=$1
        WHERE id = (
            SELECT id FROM %s WHERE chain_id=$2 AND step_id=$3 ORDER BY position ASC LIMIT 1
        )`, table(tenant, "approval_chain_steps"), table(tenant, "approval_chain_steps"))
	_, err := r.q.Exec(ctx, query, userID, chainID, stepID)
	return err
}

func (r *approvalRepository) AppendRecord(ctx context.Context, tenant string, record *domain.ApprovalRecord) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (chain_id, ticket_id, step_id, approved, actor_id, comments)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`, table(tenant, "approval_records"))
	return r.q.QueryRow(ctx, query,
		record.ChainID, record.TicketID, record.StepID,
		record.Approved, record.ActorID, record.Comments,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *approvalRepository) ListRecords(ctx context.Context, tenant, chainID string) ([]domain.ApprovalRecord, error) {
	query := fmt.Sprintf(`
        SELECT id, chain_id, ticket_id, step_id, approved, actor_id, comments, created_at
        FROM %s WHERE chain_id=$1 ORDER BY created_at ASC, id ASC`, table(tenant, "approval_records"))
	rows, err := r.q.Query(ctx, query, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRecord
	for rows.Next() {
		var record domain.ApprovalRecord
		if err := rows.Scan(
			&record.ID, &record.ChainID, &record.TicketID, &record.StepID,
			&record.Approved, &record.ActorID, &record.Comments, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
