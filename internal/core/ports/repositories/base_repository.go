package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager exposes explicit transaction control for callers that
// need several repository operations to commit or roll back together.
type TransactionManager interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, tx pgx.Tx) error
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// RepositoryWithTx marks repositories whose write methods can run inside a
// caller-managed transaction.
type RepositoryWithTx interface {
	TransactionManager
}
