// Package repository provides database access for the Kairos application.
//
// Queries are written by hand against PostgreSQL (pgx stdlib driver). Each
// entity gets its own file; all queries accept a context and go through the
// shared DBTX interface so they work with both *sql.DB and *sql.Tx.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by queries. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds a database handle and exposes all persistence operations.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
