package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/firelater/itsm-service/internal/repository"
)

const migrationsDir = "migrations"

// schemaPlaceholder is substituted with the tenant schema in each migration
// file, so one set of SQL files stamps every tenant schema.
const schemaPlaceholder = "{{schema}}"

// RunMigrations applies the SQL migrations in /migrations once per tenant,
// creating each tenant schema first.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, tenants []string, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	sort.Strings(filenames)

	for _, tenant := range tenants {
		schema := repository.SchemaName(tenant)
		if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}

		for _, name := range filenames {
			path := filepath.Join(migrationsDir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}

			stamped := strings.ReplaceAll(string(content), schemaPlaceholder, schema)
			logger.Info("applying migration", zap.String("file", name), zap.String("schema", schema))
			if _, err := pool.Exec(ctx, stamped); err != nil {
				return fmt.Errorf("apply migration %s for %s: %w", name, schema, err)
			}
		}
	}

	logger.Info("migrations applied", zap.Int("files", len(filenames)), zap.Int("tenants", len(tenants)))
	return nil
}
