package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles every repository bound to one querier. Inside
// Store.WithinTx all of them share the transaction.
type Repositories struct {
	Tickets   TicketRepository
	History   StatusHistoryRepository
	SLA       SLAPolicyRepository
	Approvals ApprovalRepository
	Users     UserRepository
	Sequences SequenceRepository
}

func newRepositories(q Querier) Repositories {
	return Repositories{
		Tickets:   NewTicketRepository(q),
		History:   NewStatusHistoryRepository(q),
		SLA:       NewSLAPolicyRepository(q),
		Approvals: NewApprovalRepository(q),
		Users:     NewUserRepository(q),
		Sequences: NewSequenceRepository(q),
	}
}

// Store owns the pool and hands out repositories, either pool-bound or
// transaction-bound.
type Store struct {
	pool *pgxpool.Pool
	Repositories
}

// NewStore builds a store over the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, Repositories: newRepositories(pool)}
}

// WithinTx runs fn with transaction-bound repositories. The transaction
// commits when fn returns nil and rolls back wholesale otherwise, so a
// multi-statement write is all-or-nothing.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
