package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 100
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

// NewPostgres открывает пул соединений к PostgreSQL и проверяет его пингом.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: подключение не удалось: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	return conn, nil
}

// RunMigrations применяет *.sql файлы из каталога в лексикографическом
// порядке. Выполненные миграции фиксируются в schema_migrations и при
// повторном запуске пропускаются; каждый файл выполняется в своей транзакции.
func RunMigrations(ctx context.Context, conn *sqlx.DB, dir string) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("postgres: создание schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return fmt.Errorf("postgres: чтение schema_migrations: %w", err)
	}

	names, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := applyMigration(ctx, conn, dir, name); err != nil {
			return err
		}
	}
	return nil
}

func appliedMigrations(ctx context.Context, conn *sqlx.DB) (map[string]bool, error) {
	var names []string
	if err := conn.SelectContext(ctx, &names, `SELECT name FROM schema_migrations`); err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: чтение каталога миграций %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(ctx context.Context, conn *sqlx.DB, dir, name string) error {
	script, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("postgres: чтение миграции %s: %w", name, err)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: транзакция миграции %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("postgres: выполнение миграции %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("postgres: фиксация миграции %s: %w", name, err)
	}
	return tx.Commit()
}
