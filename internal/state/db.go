package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the few places where SQLite and Postgres differ.
type dialect struct {
	driver     string
	dollarArgs bool
	schema     []string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_ref TEXT,
			url TEXT,
			price_minor INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			link_id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL DEFAULT '',
			buyer_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			amount_minor INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)`,
	},
}

var postgresDialect = dialect{
	driver:     "postgres",
	dollarArgs: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			label TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_ref TEXT,
			url TEXT,
			price_minor BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			link_id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL DEFAULT '',
			buyer_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)`,
	},
}

// DB is a database handle shared by the catalog and the sales ledger.
type DB struct {
	sql     *sql.DB
	dialect dialect
}

// Open connects to the given driver ("sqlite" or "postgres") and creates
// the schema if needed. For sqlite the DSN is a file path.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var d dialect
	switch driver {
	case "sqlite", "":
		d = sqliteDialect
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case "postgres":
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if d.driver == "sqlite" {
		// One writer at a time; avoids SQLITE_BUSY under concurrent creates.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{sql: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(query string) string {
	if !db.dialect.dollarArgs {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
