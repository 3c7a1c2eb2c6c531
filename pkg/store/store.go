// Package store holds the persistence boundary: edge history and fired
// alerts. The engine itself never persists anything; the API layer reads
// and writes through these interfaces. Two implementations exist:
// PostgreSQL for deployments and an in-memory store (backed by the edge
// journal for recovery) for standalone mode and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// Common sentinel errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrStoreClosed   = errors.New("store is closed")
)

// EdgeStore persists the ordered auth-edge history.
type EdgeStore interface {
	// Insert appends one edge.
	Insert(ctx context.Context, edge model.AuthEdge) error
	// AllForGraph returns every known edge ordered by timestamp then
	// insertion, the order the graph is built in.
	AllForGraph(ctx context.Context) ([]model.AuthEdge, error)
	// RecentByHost returns edges recorded on a host since the given time,
	// newest first.
	RecentByHost(ctx context.Context, hostID string, since time.Time) ([]model.AuthEdge, error)
	// Count returns the number of stored edges.
	Count(ctx context.Context) (int, error)
}

// AlertFilter narrows List results.
type AlertFilter struct {
	DetectionType model.DetectionType // empty = all
	Since         time.Time           // zero = all
	Acknowledged  *bool               // nil = all
	Offset        int
	Limit         int // 0 = default 50
}

// AlertStore persists fired alerts and their acknowledgement flags.
type AlertStore interface {
	// Insert appends one alert.
	Insert(ctx context.Context, alert model.Alert) error
	// List returns alerts matching the filter, newest first.
	List(ctx context.Context, filter AlertFilter) ([]model.Alert, error)
	// Get returns one alert by ID, or ErrAlertNotFound.
	Get(ctx context.Context, id string) (model.Alert, error)
	// Acknowledge marks an alert acknowledged. Returns ErrAlertNotFound
	// for unknown IDs.
	Acknowledge(ctx context.Context, id string) error
	// Count returns the number of stored alerts.
	Count(ctx context.Context) (int, error)
}

// Pinger is implemented by stores with an external backend worth health
// checking.
type Pinger interface {
	Ping(ctx context.Context) error
}
