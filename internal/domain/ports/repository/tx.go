package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque executor handle threaded through repository calls. Concrete
// values are pgx.Tx, *pgxpool.Conn or *pgxpool.Pool; NoTX selects the pool.
type Tx any

// NoTX signals "run outside any transaction".
var NoTX Tx = nil

// TransactionManager runs fn inside a database transaction. The same handle
// must be passed to every repository call made within fn.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
