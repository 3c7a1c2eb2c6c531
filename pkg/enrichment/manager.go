package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/metrics"
)

// ErrNotReady is returned when the current snapshot is requested before
// the initial load has completed.
var ErrNotReady = errors.New("enrichment cache not yet loaded")

// Manager owns both enrichment datasets and republishes a fresh immutable
// Snapshot on a fixed interval. The snapshot swap is a single atomic
// pointer store, so a concurrent reader sees either the fully-old or the
// fully-new snapshot. A failed refresh keeps the last-known-good snapshot
// and retries on the next tick.
type Manager struct {
	vaultSource    VaultSource
	accountsSource AccountsSource
	interval       time.Duration
	logger         logging.Logger
	metrics        *metrics.Registry

	current atomic.Pointer[Snapshot]

	refreshedAt atomic.Int64 // unix nanos of last successful publish

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a manager in the Uninitialized state. Call Load
// before Start; detections must not run until Load has succeeded.
func NewManager(vault VaultSource, accounts AccountsSource, interval time.Duration, logger logging.Logger) *Manager {
	return &Manager{
		vaultSource:    vault,
		accountsSource: accounts,
		interval:       interval,
		logger:         logger,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Instrument attaches a metrics registry. Call before Load.
func (m *Manager) Instrument(reg *metrics.Registry) {
	m.metrics = reg
}

// Load performs the initial synchronous load and transitions the manager
// to Ready. Both datasets must load successfully.
func (m *Manager) Load(ctx context.Context) error {
	snap, err := m.build(ctx)
	if err != nil {
		return fmt.Errorf("initial enrichment load failed: %w", err)
	}
	m.publish(snap)
	m.logger.Info("enrichment cache loaded",
		logging.Int("vault_hosts", snap.Vault.HostCount()),
		logging.Int("critical_accounts", snap.Accounts.Count()),
	)
	return nil
}

// Ready reports whether the initial load has completed.
func (m *Manager) Ready() bool { return m.current.Load() != nil }

// Current returns the latest published snapshot.
func (m *Manager) Current() (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// LastRefreshed returns the time of the last successful publish.
func (m *Manager) LastRefreshed() time.Time {
	return time.Unix(0, m.refreshedAt.Load())
}

// Start launches the background refresh loop. Call Stop on shutdown; an
// in-flight refresh either publishes a complete snapshot or leaves the
// current one untouched.
func (m *Manager) Start() {
	go m.refreshLoop()
}

// Stop terminates the refresh loop and waits for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Manager) refreshLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Manager) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	snap, err := m.build(ctx)
	if err != nil {
		// Keep serving the previous snapshot; retry next tick.
		m.logger.Warn("enrichment refresh failed, retaining previous snapshot",
			logging.Error(err))
		if m.metrics != nil {
			m.metrics.EnrichmentRefreshTotal.WithLabelValues("error").Inc()
			m.metrics.EnrichmentSnapshotAge.Set(time.Since(m.LastRefreshed()).Seconds())
		}
		return
	}
	m.publish(snap)
	m.logger.Debug("enrichment cache refreshed",
		logging.Int("vault_hosts", snap.Vault.HostCount()),
		logging.Int("critical_accounts", snap.Accounts.Count()),
	)
}

// build loads both datasets. Either failure aborts the whole build so a
// partially updated snapshot can never be published.
func (m *Manager) build(ctx context.Context) (*Snapshot, error) {
	vault, err := m.vaultSource.LoadVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault inventory load: %w", err)
	}
	accounts, err := m.accountsSource.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("critical accounts load: %w", err)
	}
	return &Snapshot{
		Vault:    NewVaultCache(vault),
		Accounts: NewAccountsCache(accounts),
	}, nil
}

func (m *Manager) publish(snap *Snapshot) {
	m.current.Store(snap)
	m.refreshedAt.Store(time.Now().UnixNano())
	if m.metrics != nil {
		m.metrics.EnrichmentRefreshTotal.WithLabelValues("ok").Inc()
		m.metrics.EnrichmentSnapshotAge.Set(0)
		m.metrics.EnrichmentVaultHosts.Set(float64(snap.Vault.HostCount()))
		m.metrics.EnrichmentCriticalAccounts.Set(float64(snap.Accounts.Count()))
	}
}
