package enrichment

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VaultSource loads the vault keytab inventory from somewhere.
type VaultSource interface {
	LoadVault(ctx context.Context) (VaultData, error)
}

// AccountsSource loads the critical-account catalogue from somewhere.
type AccountsSource interface {
	LoadAccounts(ctx context.Context) (AccountsData, error)
}

// StaticSource serves fixed in-memory datasets. It backs the standalone
// mode and tests.
type StaticSource struct {
	Vault    VaultData
	Accounts AccountsData
}

// DefaultStaticSource returns the built-in reference datasets.
func DefaultStaticSource() *StaticSource {
	return &StaticSource{
		Vault: VaultData{
			"host:web-prod-01": {"/etc/krb5.keytab", "/etc/http.keytab"},
			"host:db-prod-01":  {"/etc/krb5.keytab", "/var/lib/postgresql/pg.keytab"},
			"host:bastion-01":  {"/etc/krb5.keytab"},
			"host:app-dev-02":  {"/etc/krb5.keytab"},
		},
		Accounts: AccountsData{
			"account:svc-deploy": {
				AccountID:        "account:svc-deploy",
				AccountType:      AccountService,
				IsCritical:       true,
				AllowedHosts:     []string{"host:web-prod-01"},
				SensitivityScore: 0.9,
			},
			"account:root": {
				AccountID:        "account:root",
				AccountType:      AccountRoot,
				IsCritical:       true,
				SensitivityScore: 1.0,
			},
			"account:alice-admin": {
				AccountID:        "account:alice-admin",
				AccountType:      AccountHuman,
				IsCritical:       true,
				AllowedHosts:     []string{"host:bastion-01", "host:app-dev-02"},
				SensitivityScore: 0.7,
			},
		},
	}
}

func (s *StaticSource) LoadVault(context.Context) (VaultData, error) {
	return s.Vault, nil
}

func (s *StaticSource) LoadAccounts(context.Context) (AccountsData, error) {
	return s.Accounts, nil
}

// FileSource loads both datasets from YAML files on disk. Each load
// re-reads its file, so operators can edit enrichment data in place and
// wait one refresh interval.
type FileSource struct {
	VaultPath    string
	AccountsPath string
}

func (s *FileSource) LoadVault(ctx context.Context) (VaultData, error) {
	data, err := os.ReadFile(s.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault inventory %s: %w", s.VaultPath, err)
	}
	var vault VaultData
	if err := yaml.Unmarshal(data, &vault); err != nil {
		return nil, fmt.Errorf("failed to parse vault inventory %s: %w", s.VaultPath, err)
	}
	return vault, nil
}

func (s *FileSource) LoadAccounts(ctx context.Context) (AccountsData, error) {
	data, err := os.ReadFile(s.AccountsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read critical accounts %s: %w", s.AccountsPath, err)
	}
	raw := make(map[string]CriticalAccount)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse critical accounts %s: %w", s.AccountsPath, err)
	}
	accounts := make(AccountsData, len(raw))
	for id, acct := range raw {
		acct.AccountID = id
		accounts[id] = acct
	}
	return accounts, nil
}
