// Package database gives schema migrations a small dialect aware layer over
// database/sql.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	SQLite Dialect = "sqlite3"
	MySQL  Dialect = "mysql"
)

type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects with the driver named after the dialect and checks the
// connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case SQLite, MySQL:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot reach %s database: %w", dialect, err)
	}
	return New(conn, dialect), nil
}

// New wraps an already opened connection.
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) HasTable(ctx context.Context, table string) (bool, error) {
	var query string
	switch d.dialect {
	case MySQL:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	return d.exists(ctx, query, table)
}

func (d *DB) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var query string
	switch d.dialect {
	case MySQL:
		query = `SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`
	default:
		query = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	}
	return d.exists(ctx, query, table, column)
}

func (d *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddColumn runs ALTER TABLE ... ADD COLUMN. definition is the column type
// and constraints, e.g. "BOOLEAN NOT NULL DEFAULT 0".
func (d *DB) AddColumn(ctx context.Context, table, column, definition string) error {
	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		d.quoteIdentifier(table), d.quoteIdentifier(column), definition)
	_, err := d.conn.ExecContext(ctx, query)
	return err
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.conn.ExecContext(ctx, query, args...)
}

// Tx runs fn in a transaction, committed when fn returns nil.
func (d *DB) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (d *DB) quoteIdentifier(name string) string {
	if d.dialect == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
