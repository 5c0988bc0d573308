package postgres

import (
	"context"
	"database/sql"
	"fmt"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/types"
	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Tx is the unit of work carried through the context. Nested WithTx calls
// reuse it and open a savepoint per level.
type Tx struct {
	*sqlx.Tx
	ID    string
	depth int
}

// GetTx returns the transaction bound to ctx, if any
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

func (tx *Tx) savepoint() string {
	return fmt.Sprintf("sp_%d", tx.depth)
}

// WithTx runs fn inside a transaction. Invoice numbering, payment settlement
// and dunning steps all rely on fn's writes landing together or not at all.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx, ok := GetTx(ctx); ok {
		return db.withSavepoint(ctx, tx, fn)
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not start a database transaction").
			Mark(ierr.ErrDatabase)
	}
	tx := &Tx{Tx: sqlxTx, ID: types.GenerateRequestID()}
	ctx = context.WithValue(ctx, txKey{}, tx)

	db.logger.Debugw("transaction started", "tx_id", tx.ID)

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Errorw("rollback failed", "tx_id", tx.ID, "error", rbErr, "cause", err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Could not commit the database transaction").
			WithReportableDetails(map[string]any{"tx_id": tx.ID}).
			Mark(ierr.ErrDatabase)
	}
	db.logger.Debugw("transaction committed", "tx_id", tx.ID)
	return nil
}

func (db *DB) withSavepoint(ctx context.Context, tx *Tx, fn func(ctx context.Context) error) error {
	tx.depth++
	defer func() { tx.depth-- }()
	sp := tx.savepoint()

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return ierr.WithError(err).
			WithReportableDetails(map[string]any{"tx_id": tx.ID, "savepoint": sp}).
			Mark(ierr.ErrDatabase)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			db.logger.Errorw("rollback to savepoint failed",
				"tx_id", tx.ID,
				"savepoint", sp,
				"error", rbErr,
			)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return ierr.WithError(err).
			WithReportableDetails(map[string]any{"tx_id": tx.ID, "savepoint": sp}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
