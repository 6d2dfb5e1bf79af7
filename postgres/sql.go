// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

// Generic database/sql support: retried transactions (withTx), row
// iteration (scanRows), and string builders for the SELECT and
// INSERT statements the profile store issues.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// isSerializationFailure reports whether err is PostgreSQL telling us
// a repeatable-read transaction lost a race and may be retried.
func isSerializationFailure(err error) bool {
	var pqerr *pq.Error
	return errors.As(err, &pqerr) && pqerr.Code == serializationFailure
}

// withTx runs f inside a repeatable-read transaction, committing if f
// returns nil and rolling back otherwise (including when f panics).
// Serialization failures restart the whole transaction.
func withTx(ctx context.Context, db *sql.DB, readOnly bool, f func(*sql.Tx) error) error {
	opts := &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  readOnly,
	}
	for {
		err := runTx(ctx, db, opts, f)
		if !isSerializationFailure(err) {
			return err
		}
	}
}

// runTx is a single attempt of withTx.
func runTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, f func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(); err == nil && rerr != sql.ErrTxDone {
			err = rerr
		}
	}()
	if err = f(tx); err != nil {
		return err
	}
	committed = true
	return tx.Commit()
}

// scanRows calls f once per row, then closes rows.  f should only
// Scan() the current row.
func scanRows(rows *sql.Rows, f func() error) (err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		if err = f(); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryAndScan runs a query in a read-only transaction and calls f
// for each resulting row.
func queryAndScan(ctx context.Context, db *sql.DB, query string, params queryParams, f func(*sql.Rows) error) error {
	return withTx(ctx, db, true, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, params...)
		if err != nil {
			return err
		}
		return scanRows(rows, func() error { return f(rows) })
	})
}

// execInTx runs one statement in a read-write transaction.
func execInTx(ctx context.Context, db *sql.DB, query string, params queryParams) error {
	return withTx(ctx, db, false, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, params...)
		return err
	})
}

// buildSelect produces "SELECT outputs FROM tables WHERE conditions",
// with conditions ANDed and the WHERE clause omitted when empty.
func buildSelect(outputs, tables, conditions []string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(outputs, ", "))
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(tables, ", "))
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	return b.String()
}

// queryParams accumulates positional query parameters.
type queryParams []interface{}

// Param appends a parameter and returns its placeholder, "$1", "$2",
// and so on.
func (qp *queryParams) Param(param interface{}) string {
	*qp = append(*qp, param)
	return fmt.Sprintf("$%d", len(*qp))
}

// fieldList collects the columns and value expressions of an INSERT.
type fieldList struct {
	names  []string
	values []string
}

// Add appends a column whose value is passed as a query parameter.
func (f *fieldList) Add(qp *queryParams, field string, value interface{}) {
	f.AddDirect(field, qp.Param(value))
}

// AddDirect appends a column with a literal SQL value expression,
// such as NOW().
func (f *fieldList) AddDirect(field, value string) {
	f.names = append(f.names, field)
	f.values = append(f.values, value)
}

// InsertStatement produces a complete INSERT statement for table.
func (f fieldList) InsertStatement(table string) string {
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
		table, strings.Join(f.names, ", "), strings.Join(f.values, ", "))
}
