package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/hyprcat/hyprcat/internal/ld"
)

// postgres is an optional durable Store tier beyond the spec's enumerated
// memory/file backends, for operators who want the resource graph to
// survive a full redeploy. It stores each resource's JSON body in a
// single jsonb column keyed by id, the same serialize-the-whole-document
// technique the identity service's Postgres tier uses for DID documents.
type postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against dsn and verifies
// connectivity before returning.
func NewPostgres(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &postgres{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying connection pool. The HTTP surface's
// readiness check does not use it; it goes through Store.List.
func (p *postgres) DB() *sql.DB { return p.db }

func (p *postgres) Get(ctx context.Context, id string) (map[string]any, error) {
	const q = `SELECT body FROM resources WHERE id = $1`
	var body []byte
	if err := p.db.QueryRowContext(ctx, q, id).Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: query %s: %w", id, err)
	}
	var resource map[string]any
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return resource, nil
}

func (p *postgres) Put(ctx context.Context, id string, resource map[string]any) error {
	body, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	const q = `INSERT INTO resources (id, body, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	if _, err := p.db.ExecContext(ctx, q, id, body); err != nil {
		return fmt.Errorf("store: upsert %s: %w", id, err)
	}
	return nil
}

func (p *postgres) Delete(ctx context.Context, id string) (bool, error) {
	const q = `DELETE FROM resources WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *postgres) List(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM resources`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *postgres) FindByType(ctx context.Context, typ string) ([]map[string]any, error) {
	// No structural index on the jsonb body; linear scan is acceptable
	// per the store contract, and demo-scale catalogs never approach a
	// size where this matters.
	const q = `SELECT body FROM resources`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}
	defer rows.Close()
	var out []map[string]any
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("store: scan body: %w", err)
		}
		var resource map[string]any
		if err := json.Unmarshal(body, &resource); err != nil {
			continue
		}
		if ld.IsOfType(resource, typ) {
			out = append(out, resource)
		}
	}
	return out, nil
}
