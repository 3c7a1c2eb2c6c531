package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource loads both enrichment datasets from PostgreSQL. The vault
// inventory lives in vault_keytabs(host_id, keytab_path) and the
// catalogue in critical_accounts.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource connects to PostgreSQL and ensures the enrichment tables
// exist.
func NewPGSource(ctx context.Context, databaseURL string) (*PGSource, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSource{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGSource) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS vault_keytabs (
			host_id     TEXT NOT NULL,
			keytab_path TEXT NOT NULL,
			PRIMARY KEY (host_id, keytab_path)
		);
		CREATE TABLE IF NOT EXISTS critical_accounts (
			account_id        TEXT PRIMARY KEY,
			account_type      TEXT NOT NULL DEFAULT 'human',
			is_critical       BOOLEAN NOT NULL DEFAULT FALSE,
			allowed_hosts     TEXT[] NOT NULL DEFAULT '{}',
			sensitivity_score DOUBLE PRECISION NOT NULL DEFAULT 0
		);
	`)
	return err
}

// LoadVault reads the full vault keytab inventory.
func (s *PGSource) LoadVault(ctx context.Context) (VaultData, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT host_id, keytab_path FROM vault_keytabs ORDER BY host_id, keytab_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault keytabs: %w", err)
	}
	defer rows.Close()

	vault := make(VaultData)
	for rows.Next() {
		var hostID, path string
		if err := rows.Scan(&hostID, &path); err != nil {
			return nil, fmt.Errorf("failed to scan vault keytab row: %w", err)
		}
		vault[hostID] = append(vault[hostID], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault keytab query failed: %w", err)
	}
	return vault, nil
}

// LoadAccounts reads the full critical-account catalogue.
func (s *PGSource) LoadAccounts(ctx context.Context) (AccountsData, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account_id, account_type, is_critical, allowed_hosts, sensitivity_score
		 FROM critical_accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query critical accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(AccountsData)
	for rows.Next() {
		var acct CriticalAccount
		var acctType string
		if err := rows.Scan(&acct.AccountID, &acctType, &acct.IsCritical,
			&acct.AllowedHosts, &acct.SensitivityScore); err != nil {
			return nil, fmt.Errorf("failed to scan critical account row: %w", err)
		}
		acct.AccountType = AccountType(acctType)
		accounts[acct.AccountID] = acct
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("critical account query failed: %w", err)
	}
	return accounts, nil
}

// Close releases the connection pool.
func (s *PGSource) Close() { s.pool.Close() }
