package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracts the subset of pgx used by repositories, satisfied by
// both *pgxpool.Pool and pgx.Tx so the same repository code runs inside and
// outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SchemaName maps a tenant identifier to its Postgres schema. Tenant ids
// arrive from the JWT tenant claim; anything outside [a-z0-9_] is stripped
// so the identifier can be interpolated into qualified table names.
func SchemaName(tenant string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tenant) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "public"
		return name
	}
	return "tenant_" + name
}

func table(tenant, name string) string {
	return fmt.Sprintf("%s.%s", SchemaName(tenant), name)
}
