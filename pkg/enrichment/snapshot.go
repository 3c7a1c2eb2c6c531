// Package enrichment supplies reference data to the detections: the vault
// keytab inventory and the critical-account catalogue. Data is published
// as immutable snapshots; readers only ever dereference the current
// snapshot pointer and never block on a refresh.
package enrichment

// AccountType classifies catalogue entries.
type AccountType string

const (
	AccountHuman   AccountType = "human"
	AccountService AccountType = "service"
	AccountRoot    AccountType = "root"
	AccountShared  AccountType = "shared"
)

// CriticalAccount is one catalogue entry.
type CriticalAccount struct {
	AccountID        string      `yaml:"account_id" json:"account_id"`
	AccountType      AccountType `yaml:"account_type" json:"account_type"`
	IsCritical       bool        `yaml:"is_critical" json:"is_critical"`
	AllowedHosts     []string    `yaml:"allowed_hosts" json:"allowed_hosts"` // empty = unrestricted
	SensitivityScore float64     `yaml:"sensitivity_score" json:"sensitivity_score"`
}

// VaultData maps host ID → expected keytab paths on that host.
type VaultData map[string][]string

// AccountsData maps account ID → catalogue entry.
type AccountsData map[string]CriticalAccount

// VaultCache is the read-side view of the vault inventory.
type VaultCache struct {
	keytabsByHost map[string]map[string]bool
}

// NewVaultCache builds a cache from raw vault data.
func NewVaultCache(data VaultData) *VaultCache {
	byHost := make(map[string]map[string]bool, len(data))
	for host, paths := range data {
		set := make(map[string]bool, len(paths))
		for _, p := range paths {
			set[p] = true
		}
		byHost[host] = set
	}
	return &VaultCache{keytabsByHost: byHost}
}

// IsKeytabExpected reports whether the keytab is registered for the host.
// A host with no vault entry expects nothing, so every keytab on it is
// unexpected.
func (v *VaultCache) IsKeytabExpected(hostID, keytabPath string) bool {
	return v.keytabsByHost[hostID][keytabPath]
}

// IsKeytabInVault reports whether the keytab is registered anywhere.
func (v *VaultCache) IsKeytabInVault(keytabPath string) bool {
	for _, paths := range v.keytabsByHost {
		if paths[keytabPath] {
			return true
		}
	}
	return false
}

// HostCount returns the number of hosts with vault entries.
func (v *VaultCache) HostCount() int { return len(v.keytabsByHost) }

// AccountsCache is the read-side view of the critical-account catalogue.
type AccountsCache struct {
	accounts AccountsData
}

// NewAccountsCache builds a cache from raw catalogue data.
func NewAccountsCache(data AccountsData) *AccountsCache {
	return &AccountsCache{accounts: data}
}

// Get returns the catalogue entry for an account, if present.
func (a *AccountsCache) Get(accountID string) (CriticalAccount, bool) {
	acct, ok := a.accounts[accountID]
	return acct, ok
}

// IsCritical reports whether the account is marked critical. Unknown
// accounts are not critical.
func (a *AccountsCache) IsCritical(accountID string) bool {
	acct, ok := a.accounts[accountID]
	return ok && acct.IsCritical
}

// Count returns the number of catalogue entries.
func (a *AccountsCache) Count() int { return len(a.accounts) }

// Snapshot pairs both enrichment caches. A snapshot is immutable once
// published; a refresh replaces the whole value, never parts of it.
type Snapshot struct {
	Vault    *VaultCache
	Accounts *AccountsCache
}
