package services

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// DB is the transactional slice of *bun.DB the services depend on. bun.Tx
// also satisfies it, so a service call nested inside an open transaction
// joins that transaction instead of opening a new one.
type DB interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}
