package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig holds the configuration for MySQL connection pool
type MySQLConfig struct {
	// DSN format: "user:password@tcp(host:port)/dbname?parseTime=true&loc=UTC"
	DSN                string        `yaml:"dsn"`
	MaxOpenConnections int           `yaml:"maxOpenConnections"`
	MaxIdleConnections int           `yaml:"maxIdleConnections"`
	ConnMaxLifetime    time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime    time.Duration `yaml:"connMaxIdleTime"`
}

// applyDefaults fills zero values with pool defaults.
func (c *MySQLConfig) applyDefaults() {
	if c.MaxOpenConnections == 0 {
		c.MaxOpenConnections = 25
	}
	if c.MaxIdleConnections == 0 {
		c.MaxIdleConnections = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 10 * time.Minute
	}
}

// MySQL implements Database on top of a database/sql pool.
type MySQL struct {
	db *sql.DB
}

// NewMySQLWithConfig opens a pool and verifies it with a ping.
func NewMySQLWithConfig(config *MySQLConfig) (*MySQL, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("DSN cannot be empty")
	}
	config.applyDefaults()

	db, err := sql.Open("mysql", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetMaxIdleConns(config.MaxIdleConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &MySQL{db: db}, nil
}

// Query executes a query that returns rows
func (m *MySQL) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &mysqlRows{rows: rows}, nil
}

// QueryRow executes a query that returns at most one row
func (m *MySQL) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return m.db.QueryRowContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (m *MySQL) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}
	return result, nil
}

// Transaction runs fn inside a transaction, committing on nil and rolling back otherwise.
// A context cancelled before commit rolls the transaction back.
func (m *MySQL) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}

	myTx := &mysqlTransaction{tx: tx}
	if err := fn(myTx); err != nil {
		_ = myTx.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = myTx.Rollback()
		return err
	}
	return myTx.Commit()
}

// Ping verifies a connection to the database is still alive
func (m *MySQL) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (m *MySQL) Close() error {
	return m.db.Close()
}

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool { return r.rows.Next() }

func (r *mysqlRows) Scan(dest ...interface{}) error {
	if err := r.rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

func (r *mysqlRows) Close() error { return r.rows.Close() }

func (r *mysqlRows) Err() error { return r.rows.Err() }

type mysqlTransaction struct {
	tx *sql.Tx
}

func (t *mysqlTransaction) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transaction query failed: %w", err)
	}
	return &mysqlRows{rows: rows}, nil
}

func (t *mysqlTransaction) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *mysqlTransaction) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transaction exec failed: %w", err)
	}
	return result, nil
}

func (t *mysqlTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *mysqlTransaction) Rollback() error {
	return t.tx.Rollback()
}
