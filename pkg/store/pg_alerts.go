package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// PGAlertStore persists fired alerts in PostgreSQL.
type PGAlertStore struct {
	pool *pgxpool.Pool
}

func (s *PGAlertStore) Insert(ctx context.Context, alert model.Alert) error {
	var metadata []byte
	if alert.Metadata != nil {
		var err error
		metadata, err = json.Marshal(alert.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal alert metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts
			(id, detection_type, severity, triggered_at, edge_ids, node_ids,
			 host_id, description, metadata, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		alert.ID, string(alert.DetectionType), alert.Severity.String(),
		alert.TriggeredAt, alert.EdgeIDs, alert.NodeIDs, alert.HostID,
		alert.Description, metadata, alert.Acknowledged,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

func (s *PGAlertStore) List(ctx context.Context, filter AlertFilter) ([]model.Alert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []any
	if filter.DetectionType != "" {
		args = append(args, string(filter.DetectionType))
		conds = append(conds, fmt.Sprintf("detection_type = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conds = append(conds, fmt.Sprintf("triggered_at >= $%d", len(args)))
	}
	if filter.Acknowledged != nil {
		args = append(args, *filter.Acknowledged)
		conds = append(conds, fmt.Sprintf("acknowledged = $%d", len(args)))
	}

	query := `
		SELECT id, detection_type, severity, triggered_at, edge_ids, node_ids,
		       host_id, description, metadata, acknowledged
		FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY triggered_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alert query failed: %w", err)
	}
	return alerts, nil
}

func (s *PGAlertStore) Get(ctx context.Context, id string) (model.Alert, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, detection_type, severity, triggered_at, edge_ids, node_ids,
		       host_id, description, metadata, acknowledged
		FROM alerts WHERE id = $1`, id)
	a, err := scanAlert(row.Scan)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return model.Alert{}, ErrAlertNotFound
		}
		return model.Alert{}, err
	}
	return a, nil
}

func (s *PGAlertStore) Acknowledge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *PGAlertStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

func scanAlert(scan func(dest ...any) error) (model.Alert, error) {
	var a model.Alert
	var detectionType, severity string
	var metadata []byte
	if err := scan(&a.ID, &detectionType, &severity, &a.TriggeredAt,
		&a.EdgeIDs, &a.NodeIDs, &a.HostID, &a.Description, &metadata,
		&a.Acknowledged); err != nil {
		return model.Alert{}, fmt.Errorf("failed to scan alert row: %w", err)
	}
	a.DetectionType = model.DetectionType(detectionType)
	a.Severity = model.ParseSeverity(severity)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return model.Alert{}, fmt.Errorf("failed to unmarshal metadata for alert %s: %w", a.ID, err)
		}
	}
	return a, nil
}
