package postgres

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// UnitOfWork runs repository calls inside one pgx transaction. The transaction
// travels in the context, so repositories stay free of pool handles.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork constructs a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx begins a transaction, injects it into ctx, and commits or rolls back
// depending on fn's result. Nested calls reuse the outer transaction.
func (uow *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := uow.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// MustTxFromContext returns the transaction stored in ctx or an error when the
// call happens outside WithinTx.
func MustTxFromContext(ctx context.Context) (pgx.Tx, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errors.New("postgres: no transaction in context; wrap the call in WithinTx")
	}
	return tx, nil
}
