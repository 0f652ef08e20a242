package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"argus/core"
)

// AlertStorage handles alert persistence and the lifecycle operations that
// mutate alert status. Alerts are never physically deleted.
type AlertStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// AlertFilter narrows GetAlerts. Zero value matches everything.
type AlertFilter struct {
	Status   string
	Severity string
	RuleID   string
	Limit    int
}

// NewAlertStorage creates an alert storage handler.
func NewAlertStorage(db *SQLite, logger *zap.SugaredLogger) *AlertStorage {
	return &AlertStorage{db: db, logger: logger}
}

const alertColumns = "id, rule_id, severity, status, summary, evidence, alert_time, window_start, window_end, created_at, updated_at"

// InsertAlert persists a materialized alert.
func (s *AlertStorage) InsertAlert(ctx context.Context, alert *core.Alert) error {
	evidenceJSON, err := json.Marshal(alert.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.WriteDB.ExecContext(ctx, query,
		alert.ID,
		alert.RuleID,
		alert.Severity,
		alert.Status.String(),
		alert.Summary,
		string(evidenceJSON),
		alert.AlertTime.UTC(),
		alert.WindowStart.UTC(),
		alert.WindowEnd.UTC(),
		alert.CreatedAt.UTC(),
		alert.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert retrieves one alert by ID.
func (s *AlertStorage) GetAlert(ctx context.Context, id string) (*core.Alert, error) {
	row := s.db.ReadDB.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetAlerts retrieves alerts matching the filter, newest first.
func (s *AlertStorage) GetAlerts(ctx context.Context, filter AlertFilter) ([]core.Alert, error) {
	query := "SELECT " + alertColumns + " FROM alerts WHERE 1=1"
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.RuleID != "" {
		query += " AND rule_id = ?"
		args = append(args, filter.RuleID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]core.Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// CountAlertsSince returns how many alerts exist for ruleID with
// alert_time at or after since. The deduplicator is its only consumer.
func (s *AlertStorage) CountAlertsSince(ctx context.Context, ruleID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.ReadDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE rule_id = ? AND alert_time >= ?",
		ruleID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// UpdateAlertStatus applies a lifecycle transition and returns the updated
// alert. Invalid transitions return core.ErrInvalidTransition; the stored
// alert is untouched.
func (s *AlertStorage) UpdateAlertStatus(ctx context.Context, id string, newStatus core.AlertStatus, now time.Time) (*core.Alert, error) {
	var updated *core.Alert

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
		alert, err := scanAlert(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlertNotFound
		}
		if err != nil {
			return err
		}

		if err := alert.TransitionTo(newStatus, now.UTC()); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?",
			alert.Status.String(), alert.UpdatedAt, alert.ID)
		if err != nil {
			return fmt.Errorf("failed to update alert status: %w", err)
		}

		updated = alert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("alert status updated", "alert_id", id, "status", newStatus)
	return updated, nil
}

// MarkFalsePositive transitions an alert to false_positive and records the
// reason in one transaction. The record is append-only and survives later
// reopen cycles.
func (s *AlertStorage) MarkFalsePositive(ctx context.Context, id, reason, markedBy string, now time.Time) (*core.Alert, *core.FalsePositive, error) {
	var updated *core.Alert
	var record *core.FalsePositive

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
		alert, err := scanAlert(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlertNotFound
		}
		if err != nil {
			return err
		}

		if err := alert.TransitionTo(core.AlertStatusFalsePositive, now.UTC()); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?",
			alert.Status.String(), alert.UpdatedAt, alert.ID)
		if err != nil {
			return fmt.Errorf("failed to update alert status: %w", err)
		}

		fp := &core.FalsePositive{
			ID:       uuid.New().String(),
			AlertID:  alert.ID,
			Reason:   reason,
			MarkedBy: markedBy,
			MarkedAt: now.UTC(),
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO false_positives (id, alert_id, reason, marked_by, marked_at) VALUES (?, ?, ?, ?, ?)",
			fp.ID, fp.AlertID, fp.Reason, fp.MarkedBy, fp.MarkedAt)
		if err != nil {
			return fmt.Errorf("failed to insert false positive record: %w", err)
		}

		updated = alert
		record = fp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Infow("alert marked false positive", "alert_id", id, "marked_by", markedBy)
	return updated, record, nil
}

// ListFalsePositives returns the false-positive records for an alert,
// oldest first.
func (s *AlertStorage) ListFalsePositives(ctx context.Context, alertID string) ([]core.FalsePositive, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx,
		"SELECT id, alert_id, reason, marked_by, marked_at FROM false_positives WHERE alert_id = ? ORDER BY marked_at ASC",
		alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query false positives: %w", err)
	}
	defer rows.Close()

	records := make([]core.FalsePositive, 0)
	for rows.Next() {
		var fp core.FalsePositive
		var markedBy sql.NullString
		if err := rows.Scan(&fp.ID, &fp.AlertID, &fp.Reason, &markedBy, &fp.MarkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan false positive: %w", err)
		}
		fp.MarkedBy = markedBy.String
		fp.MarkedAt = fp.MarkedAt.UTC()
		records = append(records, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating false positives: %w", err)
	}

	return records, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanAlert.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row scanner) (*core.Alert, error) {
	var alert core.Alert
	var status, evidenceJSON string

	err := row.Scan(
		&alert.ID,
		&alert.RuleID,
		&alert.Severity,
		&status,
		&alert.Summary,
		&evidenceJSON,
		&alert.AlertTime,
		&alert.WindowStart,
		&alert.WindowEnd,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Status = core.AlertStatus(status)
	if evidenceJSON != "" {
		if err := json.Unmarshal([]byte(evidenceJSON), &alert.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence for alert %s: %w", alert.ID, err)
		}
	}

	alert.AlertTime = alert.AlertTime.UTC()
	alert.WindowStart = alert.WindowStart.UTC()
	alert.WindowEnd = alert.WindowEnd.UTC()
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.UpdatedAt = alert.UpdatedAt.UTC()
	return &alert, nil
}
