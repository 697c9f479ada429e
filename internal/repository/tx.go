package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// maxTxAttempts bounds the internal retry for lock conflicts.  Only the
// admission and leadership-transfer paths ever hit this in practice,
// since they lock session and membership rows FOR UPDATE.
const maxTxAttempts = 3

// withTx runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise.  When MySQL reports a deadlock (1213) or
// a lock wait timeout (1205) the whole unit of work is retried up to
// maxTxAttempts times; every other error is surfaced unchanged.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if !isLockConflict(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isLockConflict reports whether err is a MySQL deadlock or lock wait
// timeout, the only store-level conditions eligible for automatic retry.
func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == 1213 || me.Number == 1205
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error.
// Uniqueness of (user, crew) memberships and (session, user)
// registrations and interests relies on unique keys, not on racy
// existence probes, so inserts translate 1062 into domain conflicts.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
