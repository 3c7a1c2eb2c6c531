package detect

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// burstEvent is one (account, timestamp) observation on a host.
type burstEvent struct {
	ts      time.Time
	account string
}

// hostWindow is the sliding window for one host. Each host has its own
// lock, so concurrent edges targeting different hosts never serialize
// against each other. Entries are ordered by arrival.
type hostWindow struct {
	mu     sync.Mutex
	events []burstEvent
}

// BurstState holds per-host sliding windows for the process lifetime.
// Windows are created lazily on first observation and never pruned.
type BurstState struct {
	mu      sync.Mutex
	windows map[string]*hostWindow
}

// NewBurstState creates empty burst-tracking state.
func NewBurstState() *BurstState {
	return &BurstState{windows: make(map[string]*hostWindow)}
}

func (s *BurstState) window(hostID string) *hostWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[hostID]
	if !ok {
		w = &hostWindow{}
		s.windows[hostID] = w
	}
	return w
}

// Hosts returns the number of hosts being tracked.
func (s *BurstState) Hosts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Reset clears all state. Used by tests.
func (s *BurstState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string]*hostWindow)
}

// recordAndCount appends the observation, evicts entries older than the
// window, and returns the distinct account set. Append, evict, and count
// happen under the host lock so the sliding-window invariant holds under
// concurrent updates.
func (w *hostWindow) recordAndCount(ev burstEvent, window time.Duration, maxEvents int) map[string]bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, ev)
	if len(w.events) > maxEvents {
		w.events = w.events[len(w.events)-maxEvents:]
	}

	// Eviction must precede counting so the count never includes stale
	// entries.
	cutoff := ev.ts.Add(-window)
	i := 0
	for i < len(w.events) && w.events[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.events = w.events[i:]
	}

	distinct := make(map[string]bool, len(w.events))
	for _, e := range w.events {
		distinct[e.account] = true
	}
	return distinct
}

// AuthBurst is Detection B: fires when the number of distinct source
// accounts authenticating to one host within the sliding window reaches
// the configured threshold. The policy deliberately re-fires on every
// qualifying edge of an ongoing burst.
type AuthBurst struct {
	cfg   config.BurstConfig
	state *BurstState
}

// NewAuthBurst creates Detection B backed by the given state.
func NewAuthBurst(cfg config.BurstConfig, state *BurstState) *AuthBurst {
	return &AuthBurst{cfg: cfg, state: state}
}

func (d *AuthBurst) Type() model.DetectionType { return model.DetectAuthBurst }

func (d *AuthBurst) Enabled() bool { return true }

func (d *AuthBurst) Detect(_ context.Context, edge model.AuthEdge, _ *graph.Graph, _ *enrichment.Snapshot) ([]model.DetectionResult, error) {
	window := time.Duration(d.cfg.WindowSeconds) * time.Second
	w := d.state.window(edge.HostID)

	distinct := w.recordAndCount(
		burstEvent{ts: edge.Timestamp, account: edge.SrcNodeID},
		window,
		d.cfg.MaxEventsTracked,
	)

	if len(distinct) < d.cfg.DistinctAccountThreshold {
		return nil, nil
	}

	accounts := make([]string, 0, len(distinct))
	for a := range distinct {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	return []model.DetectionResult{{
		DetectionType: model.DetectAuthBurst,
		Severity:      model.SeverityHigh,
		EdgeIDs:       []string{edge.ID},
		NodeIDs:       accounts,
		HostID:        edge.HostID,
		Description: fmt.Sprintf("Auth burst on %s: %d distinct accounts within %ds window (threshold: %d)",
			edge.HostID, len(distinct), d.cfg.WindowSeconds, d.cfg.DistinctAccountThreshold),
		Metadata: map[string]any{
			"distinct_account_count": len(distinct),
			"distinct_accounts":      accounts,
			"window_seconds":         d.cfg.WindowSeconds,
		},
	}}, nil
}
