package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ipastusi/wifitrack/presence"
	"github.com/ipastusi/wifitrack/report"
	_ "modernc.org/sqlite"
)

// Store keeps finalized runs and their presence intervals in a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

type Run struct {
	Id        uuid.UUID
	StartedAt time.Time
	Threshold time.Duration
	Source    string
}

// Record is a past presence interval of a device, in wall clock time.
type Record struct {
	RunId    uuid.UUID
	Start    time.Time
	End      time.Time
	Ssid     string
	Channel  int
	Security string
}

func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open history: %v", report.ErrPersistence, err)
	}
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to connect to history: %v", report.ErrPersistence, err)
	}

	s := &Store{db: db, path: path}
	if err = s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", report.ErrPersistence, err)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and all of its intervals in a single transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, intervals []presence.Interval) error {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, started_at, threshold_ms, source) VALUES (?, ?, ?, ?)`,
			run.Id.String(), run.StartedAt.UnixMilli(), run.Threshold.Milliseconds(), run.Source)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO intervals (run_id, mac, start_ms, end_ms, ssid, channel, security) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, interval := range intervals {
			_, err = stmt.ExecContext(ctx,
				run.Id.String(), interval.Device.String(),
				run.StartedAt.Add(interval.Start).UnixMilli(), run.StartedAt.Add(interval.End).UnixMilli(),
				interval.Attrs.SSID, interval.Attrs.Channel, interval.Attrs.Security)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save run %v: %v", report.ErrPersistence, run.Id, err)
	}
	return nil
}

// DeviceHistory returns all stored intervals of a device, oldest first.
func (s *Store) DeviceHistory(ctx context.Context, id presence.DeviceID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, start_ms, end_ms, ssid, channel, security FROM intervals WHERE mac = ? ORDER BY start_ms, id`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query history: %v", report.ErrPersistence, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			runId          string
			startMs, endMs int64
			record         Record
		)
		if err = rows.Scan(&runId, &startMs, &endMs, &record.Ssid, &record.Channel, &record.Security); err != nil {
			return nil, fmt.Errorf("%w: failed to read history: %v", report.ErrPersistence, err)
		}
		if record.RunId, err = uuid.Parse(runId); err != nil {
			return nil, fmt.Errorf("%w: invalid run id %q: %v", report.ErrPersistence, runId, err)
		}
		record.Start, record.End = time.UnixMilli(startMs), time.UnixMilli(endMs)
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read history: %v", report.ErrPersistence, err)
	}
	return records, nil
}

// Runs returns all stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, threshold_ms, source FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query runs: %v", report.ErrPersistence, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id                     string
			startedAt, thresholdMs int64
			run                    Run
		)
		if err = rows.Scan(&id, &startedAt, &thresholdMs, &run.Source); err != nil {
			return nil, fmt.Errorf("%w: failed to read runs: %v", report.ErrPersistence, err)
		}
		if run.Id, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: invalid run id %q: %v", report.ErrPersistence, id, err)
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.Threshold = time.Duration(thresholdMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read runs: %v", report.ErrPersistence, err)
	}
	return runs, nil
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
