package repository

import (
	"context"
	"fmt"

	"github.com/firelater/itsm-service/internal/domain"
)

// SequenceRepository allocates human-readable ticket numbers from a
// per-tenant counter table.
type SequenceRepository interface {
	NextNumber(ctx context.Context, tenant string, kind domain.TicketKind) (string, error)
}

type sequenceRepository struct {
	q Querier
}

// NewSequenceRepository instantiates the repository.
func NewSequenceRepository(q Querier) SequenceRepository {
	return &sequenceRepository{q: q}
}

func (r *sequenceRepository) NextNumber(ctx context.Context, tenant string, kind domain.TicketKind) (string, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (kind, counter) VALUES ($1, 1)
        ON CONFLICT (kind) DO UPDATE SET counter = %s.counter + 1
        RETURNING counter`, table(tenant, "ticket_sequences"), table(tenant, "ticket_sequences"))
	var counter int64
	if err := r.q.QueryRow(ctx, query, kind).Scan(&counter); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", kind.NumberPrefix(), counter), nil
}
