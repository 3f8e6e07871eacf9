package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jewellery-billing-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories use
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// contextWithTx returns a context carrying tx
func contextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// txFromContext returns the transaction carried by ctx, if any
func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// BaseRepository provides common functionality for all SQLite repositories
type BaseRepository[T any] struct {
	db     *sql.DB
	table  string
	entity string
	logger *logrus.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository[T any](db *sql.DB, table, entity string, logger *logrus.Logger) *BaseRepository[T] {
	if logger == nil {
		logger = logrus.New()
	}
	return &BaseRepository[T]{
		db:     db,
		table:  table,
		entity: entity,
		logger: logger,
	}
}

// conn returns the transaction in ctx, falling back to the pool. With a
// single pooled connection, a call that ignored an open transaction would
// block until it finished.
func (r *BaseRepository[T]) conn(ctx context.Context) dbtx {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Exists checks if an entity with the given ID exists
func (r *BaseRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", r.table)

	var exists int
	err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, repositories.NewRepositoryError("exists", r.entity, id, err)
	}

	return exists == 1, nil
}

// logQuery logs a query with its execution time
func (r *BaseRepository[T]) logQuery(ctx context.Context, operation string, query string, args []interface{}, duration time.Duration, err error) {
	_, inTx := txFromContext(ctx)
	fields := logrus.Fields{
		"operation": operation,
		"table":     r.table,
		"query":     strings.Join(strings.Fields(query), " "),
		"args":      args,
		"duration":  duration,
		"in_tx":     inTx,
	}

	if err != nil {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Query failed")
	} else {
		r.logger.WithFields(fields).Debug("Query executed")
	}
}

// executeQuery executes a query and logs the result
func (r *BaseRepository[T]) executeQuery(ctx context.Context, operation, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	r.logQuery(ctx, operation, query, args, time.Since(start), err)

	if err != nil {
		return nil, repositories.NewRepositoryError(operation, r.entity, "", err)
	}

	return rows, nil
}

// executeQueryRow executes a single-row query and logs the result
func (r *BaseRepository[T]) executeQueryRow(ctx context.Context, operation, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.conn(ctx).QueryRowContext(ctx, query, args...)
	r.logQuery(ctx, operation, query, args, time.Since(start), nil)

	return row
}

// executeExec executes a non-query statement and logs the result
func (r *BaseRepository[T]) executeExec(ctx context.Context, operation, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	r.logQuery(ctx, operation, query, args, time.Since(start), err)

	if err != nil {
		return nil, repositories.NewRepositoryError(operation, r.entity, "", err)
	}

	return result, nil
}

// checkRowsAffected checks if the expected number of rows were affected
func (r *BaseRepository[T]) checkRowsAffected(result sql.Result, operation, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError(operation, r.entity, id, err)
	}

	if rowsAffected == 0 {
		return repositories.NotFoundError(r.entity, id)
	}

	return nil
}

// validateID validates that an ID is not empty
func (r *BaseRepository[T]) validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return repositories.NewRepositoryError("validate", r.entity, id, repositories.ErrInvalidID)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isCheckViolation reports whether err came from a CHECK or FOREIGN KEY constraint
func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "CHECK constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint failed")
}

// pageClause renders LIMIT/OFFSET, applying a default limit when none is set
func pageClause(limit, offset, defaultLimit, maxLimit int) (string, []interface{}) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT ? OFFSET ?", []interface{}{limit, offset}
}
