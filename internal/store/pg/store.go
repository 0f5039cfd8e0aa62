package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"oncohub.org/internal/access"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrUndefinedTable      = "42P01"
	pgErrInsufficientPriv    = "42501"
)

// Migrations that create each table, named in migration-required errors.
const (
	migrationProfiles     = "0001_profiles.up.sql"
	migrationOverrides    = "0002_permission_overrides.up.sql"
	migrationRoleDefaults = "0003_role_default_overrides.up.sql"
	migrationCongress     = "0004_congress.up.sql"
)

var errNoDB = errors.New("database connection unavailable")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ access.Store  = (*Store)(nil)
	_ access.Reader = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle; tests pass a sqlmock connection.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errNoDB
	}
	return s.db.PingContext(ctx)
}

// withActor runs fn in a transaction whose row-level-security checks see
// actorID as app.current_user_id.
func (s *Store) withActor(ctx context.Context, actorID string, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `select set_config('app.current_user_id', $1, true)`, actorID); err != nil {
		return fmt.Errorf("set actor: %w", err)
	}
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

// translate maps driver errors onto the access sentinels. table and
// migration name the relation the statement depends on.
func translate(err error, table, migration string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return access.ErrNotFound
	}
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUndefinedTable:
		return &access.MigrationError{Table: table, Migration: migration}
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s", access.ErrConflict, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", access.ErrNotFound, pgErr.Detail)
	case pgErrInsufficientPriv:
		return fmt.Errorf("%w: %s", access.ErrForbidden, pgErr.Message)
	}
	return err
}

func nullLevel(l *access.AccessLevel) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: l.String(), Valid: true}
}

func levelFromNull(v sql.NullString) *access.AccessLevel {
	if !v.Valid {
		return nil
	}
	l := access.LevelOrInvisible(v.String)
	return &l
}

func scopeFromRow(scopeType, scopeID string) access.Scope {
	t := access.ScopeType(scopeType)
	if t == "" || t == access.ScopeGlobal {
		return access.Global
	}
	return access.Scope{Type: t, ID: scopeID}
}
