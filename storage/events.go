package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"argus/core"
	"argus/detect"
)

// EventStorage handles canonical event persistence. Events are append-only;
// the detection engine reads them through EventsInWindow.
type EventStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewEventStorage creates an event storage handler.
func NewEventStorage(db *SQLite, logger *zap.SugaredLogger) *EventStorage {
	return &EventStorage{db: db, logger: logger}
}

// InsertEvent persists one canonical event and fills in its assigned ID.
func (s *EventStorage) InsertEvent(ctx context.Context, event *core.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var rawJSON interface{}
	if event.RawData != nil {
		data, err := json.Marshal(event.RawData)
		if err != nil {
			return fmt.Errorf("failed to marshal raw data: %w", err)
		}
		rawJSON = string(data)
	}

	var userAgent interface{}
	if event.UserAgent != nil {
		userAgent = *event.UserAgent
	}

	query := `
		INSERT INTO events (timestamp, actor, source_ip, user_agent, action, resource, outcome, request_id, raw_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.WriteDB.ExecContext(ctx, query,
		event.Timestamp.UTC(),
		event.Actor,
		event.SourceIP,
		userAgent,
		event.Action,
		event.Resource,
		event.Outcome,
		event.RequestID,
		rawJSON,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id
	return nil
}

// EventsInWindow returns events with start <= timestamp < end matching the
// filter, ordered by timestamp then ID ascending.
func (s *EventStorage) EventsInWindow(ctx context.Context, start, end time.Time, filter detect.EventFilter) ([]core.Event, error) {
	query := `
		SELECT id, timestamp, actor, source_ip, user_agent, action, resource, outcome, request_id, raw_data, created_at
		FROM events
		WHERE timestamp >= ? AND timestamp < ?
	`
	args := []interface{}{start.UTC(), end.UTC()}

	if len(filter.Actions) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Actions))
		query += " AND action IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	if len(filter.ActionContains) > 0 {
		clauses := make([]string, 0, len(filter.ActionContains))
		for _, sub := range filter.ActionContains {
			clauses = append(clauses, "LOWER(action) LIKE ?")
			args = append(args, "%"+strings.ToLower(sub)+"%")
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, filter.Outcome)
	}
	if filter.RequireSourceIP {
		query += " AND source_ip != ''"
	}
	if filter.RequireActor {
		query += " AND actor != ''"
	}
	if filter.RequireUserAgent {
		// Empty-but-present user agents pass; NULL means not captured.
		query += " AND user_agent IS NOT NULL"
	}

	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]core.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CountEvents returns the total number of stored events.
func (s *EventStorage) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.ReadDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func scanEvent(rows *sql.Rows) (core.Event, error) {
	var event core.Event
	var userAgent, rawJSON sql.NullString

	err := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&event.Actor,
		&event.SourceIP,
		&userAgent,
		&event.Action,
		&event.Resource,
		&event.Outcome,
		&event.RequestID,
		&rawJSON,
		&event.CreatedAt,
	)
	if err != nil {
		return core.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	if userAgent.Valid {
		ua := userAgent.String
		event.UserAgent = &ua
	}
	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &event.RawData); err != nil {
			return core.Event{}, fmt.Errorf("failed to unmarshal raw data for event %d: %w", event.ID, err)
		}
	}

	event.Timestamp = event.Timestamp.UTC()
	event.CreatedAt = event.CreatedAt.UTC()
	return event, nil
}
