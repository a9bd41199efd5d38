package history

import (
	"context"
	"fmt"
)

const currentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    started_at    INTEGER NOT NULL,
    threshold_ms  INTEGER NOT NULL,
    source        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS intervals (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    mac       TEXT NOT NULL,
    start_ms  INTEGER NOT NULL,
    end_ms    INTEGER NOT NULL,
    ssid      TEXT NOT NULL DEFAULT '',
    channel   INTEGER NOT NULL DEFAULT 0,
    security  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_intervals_mac ON intervals(mac);
CREATE INDEX IF NOT EXISTS idx_intervals_run ON intervals(run_id);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported schema version %d", version)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}
