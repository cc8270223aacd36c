// Package pg implements every domain store on PostgreSQL through sqlx and
// the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
)

const driverName = "pgx"

type Store struct {
	db *sqlx.DB
}

// Open connects with pool limits; zero limits keep the defaults below.
func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 50
	}
	if maxIdle <= 0 {
		maxIdle = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle (tests pass a sqlmock connection).
func New(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db.DB }

// Ping satisfies the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrForeignKeyViolation
}

// invalidOnCheck maps a CHECK constraint violation to the domain's
// invalid-input error and passes anything else through.
func invalidOnCheck(err, invalid error) error {
	pgErr, ok := maybePgError(err)
	if !ok || pgErr.Code != pgErrCheckViolation {
		return err
	}
	if pgErr.ConstraintName != "" {
		return fmt.Errorf("%w: violates %s", invalid, pgErr.ConstraintName)
	}
	return invalid
}

// notFound maps sql.ErrNoRows to the domain error.
func notFound(err, domain error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain
	}
	return err
}

// conds collects where clauses with bind args in "?" form; the final query
// goes through Rebind.
type conds struct {
	parts []string
	args  []any
}

func (c *conds) add(clause string, args ...any) {
	c.parts = append(c.parts, clause)
	c.args = append(c.args, args...)
}

func (c *conds) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " where " + strings.Join(c.parts, " and ")
}

func page(limit, offset int) string {
	return " limit " + strconv.Itoa(limit) + " offset " + strconv.Itoa(offset)
}

// sets collects "col = ?" assignments for partial updates.
type sets struct {
	parts []string
	args  []any
}

func (s *sets) set(col string, v any) {
	s.parts = append(s.parts, col+" = ?")
	s.args = append(s.args, v)
}

func (s *sets) sql() string { return strings.Join(s.parts, ", ") }

func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(q))
	return "%" + q + "%"
}

func wrapScan(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
