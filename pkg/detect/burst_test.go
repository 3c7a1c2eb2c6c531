package detect

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

func newAuthBurst(cfg config.BurstConfig) *AuthBurst {
	return NewAuthBurst(cfg, NewBurstState())
}

func burstEdge(account, host string, ts time.Time) model.AuthEdge {
	e := edgeAt(account, host, model.EdgeSSH, ts)
	e.HostID = host
	return e
}

func feedBurst(t *testing.T, d *AuthBurst, edges []model.AuthEdge) []model.DetectionResult {
	t.Helper()
	g := graph.New()
	snap := testSnapshot(t)

	var last []model.DetectionResult
	for _, e := range edges {
		g.Insert(e)
		results, err := d.Detect(context.Background(), e, g, snap)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		last = results
	}
	return last
}

func TestAuthBurst_FiresAtThreshold(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 3, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)

	var edges []model.AuthEdge
	for i := 0; i < 3; i++ {
		edges = append(edges, burstEdge(
			fmt.Sprintf("account:user%d", i),
			"host:web-01",
			testBaseTime.Add(time.Duration(i)*time.Second),
		))
	}

	last := feedBurst(t, d, edges)
	if len(last) != 1 {
		t.Fatalf("Detect() returned %d results at threshold, want 1", len(last))
	}
	r := last[0]
	if r.Severity != model.SeverityHigh {
		t.Errorf("Severity = %s, want high", r.Severity)
	}
	want := []string{"account:user0", "account:user1", "account:user2"}
	if !reflect.DeepEqual(r.NodeIDs, want) {
		t.Errorf("NodeIDs = %v, want sorted %v", r.NodeIDs, want)
	}
}

func TestAuthBurst_BelowThresholdSilent(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 5, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)

	var edges []model.AuthEdge
	for i := 0; i < 4; i++ {
		edges = append(edges, burstEdge(
			fmt.Sprintf("account:user%d", i),
			"host:web-01",
			testBaseTime.Add(time.Duration(i)*time.Second),
		))
	}

	if last := feedBurst(t, d, edges); len(last) != 0 {
		t.Errorf("Detect() fired below threshold: %+v", last)
	}
}

func TestAuthBurst_RepeatAccountCountsOnce(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 2, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)

	edges := []model.AuthEdge{
		burstEdge("account:alice", "host:web-01", testBaseTime),
		burstEdge("account:alice", "host:web-01", testBaseTime.Add(time.Second)),
		burstEdge("account:alice", "host:web-01", testBaseTime.Add(2*time.Second)),
	}

	if last := feedBurst(t, d, edges); len(last) != 0 {
		t.Errorf("Detect() counted one account as a burst: %+v", last)
	}
}

func TestAuthBurst_WindowEviction(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 3, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)

	// Two accounts early, then a long gap, then two more. The early pair
	// falls out of the window, so four distinct accounts never coexist.
	edges := []model.AuthEdge{
		burstEdge("account:user0", "host:web-01", testBaseTime),
		burstEdge("account:user1", "host:web-01", testBaseTime.Add(time.Second)),
		burstEdge("account:user2", "host:web-01", testBaseTime.Add(5*time.Minute)),
		burstEdge("account:user3", "host:web-01", testBaseTime.Add(5*time.Minute+time.Second)),
	}

	if last := feedBurst(t, d, edges); len(last) != 0 {
		t.Errorf("Detect() counted evicted accounts: %+v", last)
	}
}

func TestAuthBurst_HostsIsolated(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 2, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)

	// Two accounts split across two hosts never reach the per-host
	// threshold.
	edges := []model.AuthEdge{
		burstEdge("account:user0", "host:web-01", testBaseTime),
		burstEdge("account:user1", "host:db-01", testBaseTime.Add(time.Second)),
	}

	if last := feedBurst(t, d, edges); len(last) != 0 {
		t.Errorf("Detect() mixed windows across hosts: %+v", last)
	}
	if d.state.Hosts() != 2 {
		t.Errorf("Hosts() = %d, want 2", d.state.Hosts())
	}
}

func TestAuthBurst_MaxEventsCap(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 3600, DistinctAccountThreshold: 100, MaxEventsTracked: 10}
	d := newAuthBurst(cfg)

	// 50 distinct accounts inside the window, but the cap keeps only the
	// newest 10, so the threshold is never reached.
	var edges []model.AuthEdge
	for i := 0; i < 50; i++ {
		edges = append(edges, burstEdge(
			fmt.Sprintf("account:user%d", i),
			"host:web-01",
			testBaseTime.Add(time.Duration(i)*time.Second),
		))
	}

	if last := feedBurst(t, d, edges); len(last) != 0 {
		t.Errorf("Detect() ignored the event cap: %+v", last)
	}
}

func TestAuthBurst_RefiresDuringOngoingBurst(t *testing.T) {
	cfg := config.BurstConfig{WindowSeconds: 60, DistinctAccountThreshold: 2, MaxEventsTracked: 1000}
	d := newAuthBurst(cfg)
	g := graph.New()
	snap := testSnapshot(t)

	fired := 0
	for i := 0; i < 4; i++ {
		e := burstEdge(fmt.Sprintf("account:user%d", i), "host:web-01",
			testBaseTime.Add(time.Duration(i)*time.Second))
		g.Insert(e)
		results, err := d.Detect(context.Background(), e, g, snap)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		fired += len(results)
	}

	// Edges 2, 3, and 4 all arrive with the window at or over threshold.
	if fired != 3 {
		t.Errorf("burst fired %d times, want 3", fired)
	}
}
