package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// QueryOne выполняет запрос, ожидающий ровно одну строку, и сканирует её в T.
// Отсутствие строки превращается в доменную ошибку notFoundErr, чтобы
// репозитории не протаскивали sql.ErrNoRows наверх.
func QueryOne[T any](ctx context.Context, db *sqlx.DB, notFoundErr error, query string, args ...interface{}) (*T, error) {
	var entity T
	err := db.GetContext(ctx, &entity, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErr
	case err != nil:
		return nil, fmt.Errorf("query one: %w", err)
	}
	return &entity, nil
}

// WithTransaction выполняет fn в транзакции. Ошибка fn или commit откатывает
// транзакцию; panic пробрасывается дальше после отката.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
