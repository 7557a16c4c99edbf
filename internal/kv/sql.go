package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/apperr"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
);
`

// SQL implements Store on a single key/value table in SQLite or Postgres.
type SQL struct {
	conn *sql.DB
	// bind rewrites '?' placeholders for the dialect.
	bind func(string) string
}

// OpenSQLite opens (or creates) the SQLite database and applies the schema.
func OpenSQLite(path string) (*SQL, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	return newSQL(conn, sqliteSchemaSQL, func(q string) string { return q })
}

// OpenPostgres connects to Postgres and applies the schema.
func OpenPostgres(dsn string) (*SQL, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres: %w", err)
	}
	return newSQL(conn, postgresSchemaSQL, numberedPlaceholders)
}

func newSQL(conn *sql.DB, schema string, bind func(string) string) (*SQL, error) {
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: ping: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: apply schema: %w", err)
	}
	return &SQL{conn: conn, bind: bind}, nil
}

// Get returns the value stored at key.
func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx, s.bind(`SELECT value FROM kv WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, nil
}

// Put inserts or replaces the value at key.
func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.ExecContext(ctx, s.bind(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`), key, value)
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, s.bind(`DELETE FROM kv WHERE key = ?`), key); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every key starting with prefix.
func (s *SQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		s.bind(`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\'`),
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Collations differ between dialects; order by bytes here.
	sort.Strings(out)
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQL) Close() error {
	return s.conn.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// numberedPlaceholders turns '?' into $1, $2, ... for Postgres.
func numberedPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
