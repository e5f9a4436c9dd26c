// Package sqlxrepos implements the repositories over PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// DB is shared by the repositories. Its InTx makes them join one transaction through ctx.
type DB struct {
	*sqlx.DB
}

func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

var _ core.Transactor = (*DB)(nil)

type txKey struct{}

// InTx runs fn in a transaction, committed when fn succeeds.
// Nested calls join the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()
	return fn(context.WithValue(ctx, txKey{}, tx))
}

// savepoint runs fn under a savepoint when ctx holds a transaction, so that a failed statement
// leaves the transaction usable. Without a transaction fn runs as is.
func (db *DB) savepoint(ctx context.Context, fn func() error) error {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	if !ok {
		return fn()
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT attempt"); err != nil {
		return errors.Wrap(err, "setting savepoint")
	}
	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT attempt"); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back to savepoint")
		}
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT attempt")
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT attempt")
	return errors.Wrap(err, "releasing savepoint")
}

// ext returns the transaction of ctx, or the DB itself.
func (db *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.DB
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, db.ext(ctx), dest, query, args...)
}

func (db *DB) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, db.ext(ctx), dest, query, args...)
}

func (db *DB) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.ext(ctx).ExecContext(ctx, query, args...)
}

// namedGet runs a named query returning one row into dest.
func (db *DB) namedGet(ctx context.Context, dest interface{}, query string, arg interface{}) error {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return errors.Wrap(err, "binding named query")
	}
	return db.get(ctx, dest, db.Rebind(q), args...)
}

func (db *DB) namedExec(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, db.ext(ctx), query, arg)
}

func violated(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// uniqueViolated reports whether err is a unique violation of constraint.
func uniqueViolated(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

// notFound replaces sql.ErrNoRows by errNotFound.
func notFound(err, errNotFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return errNotFound
	}
	return err
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// prefixed qualifies a comma separated list of columns with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
