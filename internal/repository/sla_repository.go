package repository

import (
	"context"
	"fmt"

	"github.com/firelater/itsm-service/internal/domain"
)

// SLAPolicyRepository persists SLA policies and their targets.
type SLAPolicyRepository interface {
	Create(ctx context.Context, tenant string, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, tenant, id string) (*domain.SLAPolicy, error)
	ListByEntityType(ctx context.Context, tenant string, entityType domain.TicketKind) ([]domain.SLAPolicy, error)
	ClearDefault(ctx context.Context, tenant string, entityType domain.TicketKind) error
}

type slaPolicyRepository struct {
	q Querier
}

// NewSLAPolicyRepository instantiates the repository.
func NewSLAPolicyRepository(q Querier) SLAPolicyRepository {
	return &slaPolicyRepository{q: q}
}

func (r *slaPolicyRepository) Create(ctx context.Context, tenant string, policy *domain.SLAPolicy) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (name, entity_type, is_default)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`, table(tenant, "sla_policies"))
	if err := r.q.QueryRow(ctx, query, policy.Name, policy.EntityType, policy.IsDefault).
		Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt); err != nil {
		return err
	}

	targetQuery := fmt.Sprintf(`
        INSERT INTO %s (policy_id, priority, metric, target_minutes)
        VALUES ($1,$2,$3,$4)
        RETURNING id`, table(tenant, "sla_targets"))
	for i := range policy.Targets {
		target := &policy.Targets[i]
		target.PolicyID = policy.ID
		if err := r.q.QueryRow(ctx, targetQuery,
			target.PolicyID, target.Priority, target.Metric, target.TargetMinutes,
		).Scan(&target.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, tenant, id string) (*domain.SLAPolicy, error) {
	query := fmt.Sprintf(`
        SELECT id, name, entity_type, is_default, created_at, updated_at
        FROM %s WHERE id=$1`, table(tenant, "sla_policies"))
	var policy domain.SLAPolicy
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&policy.ID, &policy.Name, &policy.EntityType, &policy.IsDefault,
		&policy.CreatedAt, &policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	targets, err := r.targetsFor(ctx, tenant, []string{policy.ID})
	if err != nil {
		return nil, err
	}
	policy.Targets = targets[policy.ID]
	return &policy, nil
}

func (r *slaPolicyRepository) ListByEntityType(ctx context.Context, tenant string, entityType domain.TicketKind) ([]domain.SLAPolicy, error) {
	query := fmt.Sprintf(`
        SELECT id, name, entity_type, is_default, created_at, updated_at
        FROM %s WHERE entity_type=$1 ORDER BY is_default DESC, created_at ASC`, table(tenant, "sla_policies"))
	rows, err := r.q.Query(ctx, query, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []domain.SLAPolicy
	var ids []string
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID, &policy.Name, &policy.EntityType, &policy.IsDefault,
			&policy.CreatedAt, &policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		policies = append(policies, policy)
		ids = append(ids, policy.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return policies, nil
	}

	targets, err := r.targetsFor(ctx, tenant, ids)
	if err != nil {
		return nil, err
	}
	for i := range policies {
		policies[i].Targets = targets[policies[i].ID]
	}
	return policies, nil
}

// ClearDefault drops the default flag for a kind so a new default can be
// set without violating the one-default-per-kind invariant.
func (r *slaPolicyRepository) ClearDefault(ctx context.Context, tenant string, entityType domain.TicketKind) error {
	query := fmt.Sprintf(`UPDATE %s SET is_default=FALSE, updated_at=NOW() WHERE entity_type=$1 AND is_default`, table(tenant, "sla_policies"))
	_, err := r.q.Exec(ctx, query, entityType)
	return err
}

func (r *slaPolicyRepository) targetsFor(ctx context.Context, tenant string, policyIDs []string) (map[string][]domain.SLATarget, error) {
	query := fmt.Sprintf(`
        SELECT id, policy_id, priority, metric, target_minutes
        FROM %s WHERE policy_id = ANY($1) ORDER BY policy_id, priority, metric`, table(tenant, "sla_targets"))
	rows, err := r.q.Query(ctx, query, policyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.SLATarget)
	for rows.Next() {
		var target domain.SLATarget
		if err := rows.Scan(&target.ID, &target.PolicyID, &target.Priority, &target.Metric, &target.TargetMinutes); err != nil {
			return nil, err
		}
		result[target.PolicyID] = append(result[target.PolicyID], target)
	}
	return result, rows.Err()
}
