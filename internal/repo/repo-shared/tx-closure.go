package reposhared

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxClosure runs fn inside a ReadCommitted transaction, committing on success
// and rolling back on error or panic. A commit failure surfaces to the caller;
// fn's result is discarded because none of its writes landed.
func TxClosure[T any](ctx context.Context, db *sqlx.DB, fn func(ctx context.Context, tx *sqlx.Tx) (T, error)) (res T, err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return res, fmt.Errorf("unable to start tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}

		if err != nil {
			tx.Rollback()
			return
		}

		if cErr := tx.Commit(); cErr != nil {
			var zero T
			res = zero
			err = fmt.Errorf("unable to commit tx: %w", cErr)
		}
	}()

	res, err = fn(ctx, tx)
	return res, err
}
