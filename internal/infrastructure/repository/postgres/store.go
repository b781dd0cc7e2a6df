package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store hands out repositories bound either to the pool or to one transaction.
type Store struct {
	db *sql.DB
	q  dbtx
	tx *sql.Tx
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(context.Context, ports.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

func (s *Store) Reader() ports.Store {
	return s
}

// Savepoint runs fn so that its failure rolls back only its own statements.
// Outside a transaction fn runs directly.
func (s *Store) Savepoint(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	ident := pgx.Identifier{name}.Sanitize()
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+ident); err != nil {
		return classify("savepoint "+name, err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+ident); rbErr != nil {
			return errors.Join(err, classify("rollback to savepoint "+name, rbErr))
		}
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+ident); err != nil {
		return classify("release savepoint "+name, err)
	}
	return nil
}

func (s *Store) Documents() ports.DocumentRepository {
	return &DocumentRepository{q: s.q}
}

func (s *Store) Audits() ports.AuditRepository {
	return &AuditRepository{q: s.q}
}

func (s *Store) Criteria() ports.CriteriaReader {
	return &CriteriaRepository{q: s.q}
}

func (s *Store) Roster() ports.RosterRepository {
	return &RosterRepository{q: s.q}
}

func (s *Store) Percentages() ports.PercentageCache {
	return &PercentageRepository{q: s.q}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
