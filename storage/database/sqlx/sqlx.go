// Package sqlxrepos implements the repositories over SQL with sqlx.
// Queries are written with ? placeholders and rebound for the connected driver.
package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
)

type repository struct {
	db *sqlx.DB
}

func (repo repository) q(query string) string {
	return repo.db.Rebind(query)
}

// trapNoRowsErr maps "no rows" to notFound; any other failure becomes a DataAccessError.
func trapNoRowsErr(err error, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return core.NewDataAccessError(err, op)
}

// inTx runs fn in a transaction, rolled back when fn fails.
func (repo repository) inTx(fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return core.NewDataAccessError(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewDataAccessError(err, "committing transaction")
	}
	return nil
}
