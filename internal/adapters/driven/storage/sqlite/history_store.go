package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// syncHistoryStore implements driven.SyncHistoryStore.
type syncHistoryStore struct {
	store *Store
}

var _ driven.SyncHistoryStore = (*syncHistoryStore)(nil)

// RecordRun stores a finished run.
func (s *syncHistoryStore) RecordRun(ctx context.Context, run domain.SyncRun) error {
	var report any
	if run.Report != nil {
		data, err := json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshalling report: %w", err)
		}
		report = string(data)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (collection, started_at, ended_at, success, error, report)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Collection,
		run.StartedAt.UTC().Format(timeLayout),
		run.EndedAt.UTC().Format(timeLayout),
		boolToInt(run.Success),
		nullString(run.Error),
		report)
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run, or nil if none exists.
func (s *syncHistoryStore) LastRun(ctx context.Context, collection string) (*domain.SyncRun, error) {
	runs, err := s.ListRuns(ctx, collection, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns recent runs, most recent first.
func (s *syncHistoryStore) ListRuns(ctx context.Context, collection string, limit int) ([]domain.SyncRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT collection, started_at, ended_at, success, error, report
		FROM sync_runs
		WHERE collection = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}

// PruneHistory keeps the most recent keep runs per collection.
func (s *syncHistoryStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sync_runs
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY collection ORDER BY started_at DESC, id DESC) as rn
				FROM sync_runs
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning sync history: %w", err)
	}
	return nil
}

func scanSyncRun(rows *sql.Rows) (*domain.SyncRun, error) {
	var (
		run                domain.SyncRun
		startedAt, endedAt string
		success            int
		errMsg, report     sql.NullString
	)
	if err := rows.Scan(&run.Collection, &startedAt, &endedAt, &success, &errMsg, &report); err != nil {
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = t
	}
	if t, err := time.Parse(timeLayout, endedAt); err == nil {
		run.EndedAt = t
	}
	run.Success = success == 1
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if report.Valid {
		var r domain.SyncReport
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return nil, fmt.Errorf("decoding sync report: %w", err)
		}
		run.Report = &r
	}
	return &run, nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
