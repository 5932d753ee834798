package db

import "context"

// Database is a pooled connection able to run statements and transactions.
type Database interface {
	Querier
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Transaction is a Querier bound to an open transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Rows iterates over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Scanner is satisfied by both Row and Rows so scan helpers serve single and multi-row reads.
type Scanner interface {
	Scan(dest ...interface{}) error
}
