package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// PGEdgeStore persists the edge history in PostgreSQL.
type PGEdgeStore struct {
	pool *pgxpool.Pool
}

func (s *PGEdgeStore) Insert(ctx context.Context, edge model.AuthEdge) error {
	var metadata []byte
	if edge.Metadata != nil {
		var err error
		metadata, err = json.Marshal(edge.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal edge metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_edges
			(id, src_node_id, dst_node_id, edge_type, src_privilege, dst_privilege,
			 ts, session_id, host_id, raw_source, metadata, auth_success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)`,
		edge.ID, edge.SrcNodeID, edge.DstNodeID, string(edge.EdgeType),
		edge.SrcPrivilege, edge.DstPrivilege, edge.Timestamp, edge.SessionID,
		edge.HostID, string(edge.RawSource), metadata, edge.AuthSuccess,
	)
	if err != nil {
		return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
	}
	return nil
}

func (s *PGEdgeStore) AllForGraph(ctx context.Context) ([]model.AuthEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, src_node_id, dst_node_id, edge_type, src_privilege, dst_privilege,
		       ts, COALESCE(session_id, ''), host_id, raw_source, metadata, auth_success
		FROM auth_edges ORDER BY ts, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *PGEdgeStore) RecentByHost(ctx context.Context, hostID string, since time.Time) ([]model.AuthEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, src_node_id, dst_node_id, edge_type, src_privilege, dst_privilege,
		       ts, COALESCE(session_id, ''), host_id, raw_source, metadata, auth_success
		FROM auth_edges WHERE host_id = $1 AND ts >= $2 ORDER BY ts DESC, seq DESC`,
		hostID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges for host %s: %w", hostID, err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *PGEdgeStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auth_edges`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return count, nil
}

func scanEdges(rows pgx.Rows) ([]model.AuthEdge, error) {
	var edges []model.AuthEdge
	for rows.Next() {
		var e model.AuthEdge
		var edgeType, rawSource string
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.SrcNodeID, &e.DstNodeID, &edgeType,
			&e.SrcPrivilege, &e.DstPrivilege, &e.Timestamp, &e.SessionID,
			&e.HostID, &rawSource, &metadata, &e.AuthSuccess); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		e.EdgeType = model.EdgeType(edgeType)
		e.RawSource = model.RawSource(rawSource)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for edge %s: %w", e.ID, err)
			}
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("edge query failed: %w", err)
	}
	return edges, nil
}
