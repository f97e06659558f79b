package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    token      TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    email      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS refresh_tokens_user_id_idx ON refresh_tokens (user_id);
CREATE INDEX IF NOT EXISTS refresh_tokens_expires_at_idx ON refresh_tokens (expires_at);
`

// rotateSQL consumes the old row and inserts the replacement in one
// statement: the INSERT's SELECT only produces a row when the DELETE captured
// a live one, so two rotations racing on the same old token resolve to a
// single winner inside Postgres.
const rotateSQL = `
WITH old AS (
    DELETE FROM refresh_tokens
    WHERE token = $1 AND expires_at > $7
    RETURNING token, user_id, email, created_at, expires_at
)
INSERT INTO refresh_tokens (token, user_id, email, created_at, expires_at)
SELECT $2, $3, $4, $5, $6 FROM old
RETURNING (SELECT token FROM old),
          (SELECT user_id FROM old),
          (SELECT email FROM old),
          (SELECT created_at FROM old),
          (SELECT expires_at FROM old)
`

// PostgresStore is a Postgres-backed [Store] on a pgx connection pool, for
// deployments that want refresh tokens to survive a cache flush.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a [PostgresStore] on the given pool. The pool's
// lifecycle stays with the caller; Close is not wrapped here.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the refresh_tokens table and its indexes if missing.
// Idempotent; intended for startup, not migrations.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Create inserts a new record. A primary-key collision on the token value
// maps to ErrDuplicateToken.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, email, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.Token, rec.UserID, rec.Email, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateToken
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindValid returns the record for a live token. Expired rows are filtered in
// the query; the sweep deletes them later.
func (s *PostgresStore) FindValid(ctx context.Context, tokenValue string) (*Record, error) {
	var rec Record
	err := s.db.QueryRow(ctx,
		`SELECT token, user_id, email, created_at, expires_at
		 FROM refresh_tokens
		 WHERE token = $1 AND expires_at > $2`,
		tokenValue, time.Now(),
	).Scan(&rec.Token, &rec.UserID, &rec.Email, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// Rotate consumes the old record and inserts next via a single
// delete-returning CTE. No row back means the old token was absent, already
// consumed, or expired.
func (s *PostgresStore) Rotate(ctx context.Context, oldTokenValue string, next Record) (*Record, error) {
	var old Record
	err := s.db.QueryRow(ctx, rotateSQL,
		oldTokenValue,
		next.Token, next.UserID, next.Email, next.CreatedAt, next.ExpiresAt,
		time.Now(),
	).Scan(&old.Token, &old.UserID, &old.Email, &old.CreatedAt, &old.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &old, nil
}

// RevokeOne deletes a single record. Idempotent.
func (s *PostgresStore) RevokeOne(ctx context.Context, tokenValue string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, tokenValue)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// RevokeAllForUser deletes every record owned by the user. Idempotent.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpired deletes rows past expiry. Safe under overlapping sweep runs;
// each row is deleted by exactly one of them.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping returns a point-in-time database availability check and latency.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.Ping(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
