package repository

import (
	"context"
	"fmt"

	"github.com/firelater/itsm-service/internal/domain"
)

// UserRepository persists tenant-scoped accounts.
type UserRepository interface {
	Create(ctx context.Context, tenant string, user *domain.User) error
	GetByID(ctx context.Context, tenant, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, tenant, email string) (*domain.User, error)
}

type userRepository struct {
	q Querier
}

// NewUserRepository instantiates the repository.
func NewUserRepository(q Querier) UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) Create(ctx context.Context, tenant string, user *domain.User) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (email, full_name, password_hash, role, group_ids, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`, table(tenant, "users"))
	return r.q.QueryRow(ctx, query,
		user.Email, user.FullName, user.PasswordHash, user.Role, user.GroupIDs, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, tenant, id string) (*domain.User, error) {
	query := fmt.Sprintf(`
        SELECT id, email, full_name, password_hash, role, group_ids, is_active, created_at, updated_at
        FROM %s WHERE id=$1`, table(tenant, "users"))
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, tenant, email string) (*domain.User, error) {
	query := fmt.Sprintf(`
        SELECT id, email, full_name, password_hash, role, group_ids, is_active, created_at, updated_at
        FROM %s WHERE LOWER(email)=LOWER($1)`, table(tenant, "users"))
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Role, &user.GroupIDs, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
