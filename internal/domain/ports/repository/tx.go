package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must accept a nil Tx and fall back to
// the non-transactional path.
type Tx interface{}

// TransactionManager executes fn inside a database transaction, passing the
// transaction handle through so repository calls inside fn share it. Used by
// the pipeline-run repository to claim the single running-run slot
// atomically.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
