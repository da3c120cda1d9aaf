package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// dialect captures what differs between the two supported drivers.
type dialect struct {
	driver    string
	forUpdate string
	txOptions *sql.TxOptions
	numbered  bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect = dialect{driver: DriverSQLite}
	// Read committed plus row locks is enough: every check-then-write goes
	// through a Lock* read.
	postgresDialect = dialect{
		driver:    DriverPostgres,
		forUpdate: " FOR UPDATE",
		txOptions: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		numbered:  true,
	}
)

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Queries on either a *sql.DB or a *sql.Tx.
type queries struct {
	q querier
	d dialect
}

func (s *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.d.rebind(query), args...)
}

func (s *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.d.rebind(query), args...)
}

// execOne runs a write that must touch exactly one row.
func (s *queries) execOne(ctx context.Context, what, query string, args ...any) error {
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// SQLStore manages the database connection and operations for SQLite and
// PostgreSQL.
type SQLStore struct {
	*queries
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite database file. Write
// transactions begin IMMEDIATE, which serializes writers on the whole
// database; that is SQLite's equivalent of row locking.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	return Open(DriverSQLite, dsn)
}

// NewPostgresStore connects to PostgreSQL with a lib/pq connection string.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	return Open(DriverPostgres, dsn)
}

// Open connects with the named driver and initializes the schema.
func Open(driver, dsn string) (*SQLStore, error) {
	var d dialect
	switch driver {
	case DriverSQLite:
		d = sqliteDialect
	case DriverPostgres:
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := newSQLStore(db, d)
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{queries: &queries{q: db, d: d}, db: db}
}

// initSchema creates the database tables if they don't already exist.
func (s *SQLStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// DB exposes the pool so the caller can tune it.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a database transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, s.d.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{queries: &queries{q: tx, d: s.d}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	*queries
}

// isUniqueViolation recognizes unique constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// insertErr wraps insert failures, mapping duplicates to ErrConflict.
func insertErr(what string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to create %s: %w", what, ErrConflict)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}

// getErr wraps single-row read failures, mapping no rows to ErrNotFound.
func getErr(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
