package repository

import (
	"context"
	"fmt"

	"github.com/firelater/itsm-service/internal/domain"
)

// StatusHistoryRepository persists append-only transition rows.
type StatusHistoryRepository interface {
	Append(ctx context.Context, tenant string, entry *domain.StatusHistoryEntry) error
	ListByTicket(ctx context.Context, tenant, ticketID string) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	q Querier
}

// NewStatusHistoryRepository instantiates the repository.
func NewStatusHistoryRepository(q Querier) StatusHistoryRepository {
	return &statusHistoryRepository{q: q}
}

func (r *statusHistoryRepository) Append(ctx context.Context, tenant string, entry *domain.StatusHistoryEntry) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (ticket_id, from_status, to_status, actor_id, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`, table(tenant, "ticket_status_history"))
	return r.q.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, tenant, ticketID string) ([]domain.StatusHistoryEntry, error) {
	query := fmt.Sprintf(`
        SELECT id, ticket_id, from_status, to_status, actor_id, reason, created_at
        FROM %s WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`, table(tenant, "ticket_status_history"))
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
