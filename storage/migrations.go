package storage

import "fmt"

// migrate creates the schema. Statements are idempotent so startup can
// always run them.
func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		actor TEXT,
		source_ip TEXT,
		user_agent TEXT,
		action TEXT NOT NULL,
		resource TEXT,
		outcome TEXT,
		request_id TEXT,
		raw_data TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_action ON events(action);
	CREATE INDEX IF NOT EXISTS idx_events_source_ip ON events(source_ip);
	CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		summary TEXT NOT NULL,
		evidence TEXT,
		alert_time DATETIME NOT NULL,
		window_start DATETIME NOT NULL,
		window_end DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_rule_time ON alerts(rule_id, alert_time);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
	CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC);

	CREATE TABLE IF NOT EXISTS false_positives (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES alerts(id),
		reason TEXT NOT NULL,
		marked_by TEXT,
		marked_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_false_positives_alert ON false_positives(alert_id);

	CREATE TABLE IF NOT EXISTS allowlist_entries (
		id TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL,
		entry_value TEXT NOT NULL,
		reason TEXT NOT NULL,
		rule_id TEXT,
		expires_at DATETIME,
		created_by TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allowlist_value ON allowlist_entries(entry_type, entry_value);
	`

	if _, err := s.WriteDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}
