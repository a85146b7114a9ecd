package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS token_store (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// Postgres stores keys in a shared table, one namespace per profile.
// Useful when several processes on different hosts act as the same user.
type Postgres struct {
	DB        *pgxpool.Pool
	Namespace string
}

// OpenPostgres connects to databaseURL and ensures the table exists
func OpenPostgres(ctx context.Context, databaseURL, namespace string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect token store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping token store: %w", err)
	}

	s := NewPostgres(pool, namespace)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool
func NewPostgres(db *pgxpool.Pool, namespace string) *Postgres {
	if namespace == "" {
		namespace = "default"
	}
	return &Postgres{DB: db, Namespace: namespace}
}

// EnsureSchema creates the token_store table if missing
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create token_store table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.DB.QueryRow(ctx,
		`SELECT value FROM token_store WHERE namespace = $1 AND key = $2`,
		p.Namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.DB.Exec(ctx, `
		INSERT INTO token_store (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		p.Namespace, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.DB.Exec(ctx,
		`DELETE FROM token_store WHERE namespace = $1 AND key = ANY($2)`,
		p.Namespace, keys)
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Close releases the pool
func (p *Postgres) Close() {
	p.DB.Close()
}
