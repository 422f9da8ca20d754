package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gasflow/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements against either the pool or an open transaction.
// Every repository method hangs off Queries so the same code serves both.
type Queries struct {
	q      querier
	driver string
}

type DB struct {
	*sql.DB
	*Queries
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(cfg.SQLite.Path)
	case "postgres":
		return openPostgres(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := newDB(sqlDB, "sqlite")
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(cfg *config.PostgresConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db := newDB(sqlDB, "postgres")
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}

func newDB(sqlDB *sql.DB, driver string) *DB {
	return &DB{
		DB:      sqlDB,
		Queries: &Queries{q: sqlDB, driver: driver},
	}
}

func (db *DB) migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	_, err := db.DB.Exec(schema)
	return err
}

// WithTx runs fn inside one transaction. Any error returned by fn rolls
// back every write fn made.
func (db *DB) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(&Queries{q: tx, driver: db.driver}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (q *Queries) DriverName() string { return q.driver }

// Q rewrites ? placeholders and datetime literals for PostgreSQL, passes through for SQLite.
func (q *Queries) Q(query string) string {
	if q.driver == "postgres" {
		query = strings.ReplaceAll(query, "datetime('now')", "NOW()")
		return Rebind(query)
	}
	return query
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.q.ExecContext(ctx, q.Q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.Q(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.Q(query), args...)
}

// insert executes an INSERT and returns the new row id. pgx has no
// LastInsertId, so PostgreSQL gets a RETURNING clause instead.
func (q *Queries) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if q.driver == "postgres" {
		var id int64
		err := q.q.QueryRowContext(ctx, q.Q(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.q.ExecContext(ctx, q.Q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ts converts a timestamp argument for the active driver.
func (q *Queries) ts(t time.Time) any {
	if q.driver == "postgres" {
		return t
	}
	return t.UTC().Format(timestampLayout)
}

func (q *Queries) tsPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return q.ts(*t)
}

// date converts a calendar date argument for the active driver.
func (q *Queries) date(t time.Time) any {
	if q.driver == "postgres" {
		return t
	}
	return t.Format(dateLayout)
}

func (q *Queries) datePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return q.date(*t)
}

func (q *Queries) boolArg(b bool) any {
	if q.driver == "postgres" {
		return b
	}
	return boolToInt(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = sql.ErrNoRows

// IsNotFound reports whether err came from a lookup that matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
