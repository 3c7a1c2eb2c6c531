package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PG bundles the PostgreSQL-backed edge and alert stores over one
// connection pool.
type PG struct {
	pool   *pgxpool.Pool
	Edges  *PGEdgeStore
	Alerts *PGAlertStore
}

// NewPG connects to PostgreSQL, runs migrations, and returns both stores.
func NewPG(ctx context.Context, databaseURL string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	pg := &PG{
		pool:   pool,
		Edges:  &PGEdgeStore{pool: pool},
		Alerts: &PGAlertStore{pool: pool},
	}

	if err := pg.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return pg, nil
}

func (pg *PG) migrate(ctx context.Context) error {
	_, err := pg.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auth_edges (
			seq           BIGSERIAL PRIMARY KEY,
			id            TEXT NOT NULL UNIQUE,
			src_node_id   TEXT NOT NULL,
			dst_node_id   TEXT NOT NULL,
			edge_type     TEXT NOT NULL,
			src_privilege DOUBLE PRECISION NOT NULL,
			dst_privilege DOUBLE PRECISION NOT NULL,
			ts            TIMESTAMPTZ NOT NULL,
			session_id    TEXT,
			host_id       TEXT NOT NULL,
			raw_source    TEXT NOT NULL,
			metadata      JSONB,
			auth_success  BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_auth_edges_host_ts ON auth_edges (host_id, ts DESC);
		CREATE INDEX IF NOT EXISTS idx_auth_edges_src_dst ON auth_edges (src_node_id, dst_node_id);
		CREATE INDEX IF NOT EXISTS idx_auth_edges_ts ON auth_edges (ts DESC);

		CREATE TABLE IF NOT EXISTS alerts (
			id             TEXT PRIMARY KEY,
			detection_type TEXT NOT NULL,
			severity       TEXT NOT NULL,
			triggered_at   TIMESTAMPTZ NOT NULL,
			edge_ids       TEXT[] NOT NULL DEFAULT '{}',
			node_ids       TEXT[] NOT NULL DEFAULT '{}',
			host_id        TEXT NOT NULL,
			description    TEXT NOT NULL,
			metadata       JSONB,
			acknowledged   BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_triggered ON alerts (triggered_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_type_triggered ON alerts (detection_type, triggered_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts (acknowledged);
	`)
	return err
}

// Ping checks database connectivity.
func (pg *PG) Ping(ctx context.Context) error {
	return pg.pool.Ping(ctx)
}

// Close closes the connection pool.
func (pg *PG) Close() {
	pg.pool.Close()
}
