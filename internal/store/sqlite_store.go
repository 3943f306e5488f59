// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/payflowd/payflow/internal/model"
	_ "modernc.org/sqlite" // pure Go driver
)

const schemaVersion = 1

// SqliteStore backs the schedule store and the idempotency ledger with
// SQLite in WAL mode. SQLite's per-key INSERT conflict semantics give the
// first-writer-wins guarantee the idempotency ledger requires.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqliteStore opens (and migrates) the database at dbPath.
func OpenSqliteStore(dbPath string) (*SqliteStore, error) {
	// PRAGMAs go into the DSN so they apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) Close() error { return s.db.Close() }

func (s *SqliteStore) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		job_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		draft_json TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		run_at_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		executed_at_ms INTEGER,
		external_reference_id TEXT,
		last_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_due ON scheduled_jobs(status, run_at_ms);

	CREATE TABLE IF NOT EXISTS idempotency (
		key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		reference_id TEXT,
		outcome TEXT,
		updated_at_ms INTEGER NOT NULL
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// --- IdempotencyStore ---

func (s *SqliteStore) Claim(ctx context.Context, key string) (IdemRecord, bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency (key, state, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, string(IdemPending), now.UnixMilli())
	if err != nil {
		return IdemRecord{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return IdemRecord{}, false, err
	}
	if n == 1 {
		return IdemRecord{Key: key, State: IdemPending, UpdatedAt: now}, true, nil
	}
	rec, ok, err := s.Get(ctx, key)
	if err != nil {
		return IdemRecord{}, false, err
	}
	if !ok {
		// Lost a race with a concurrent Release; treat as a fresh claim.
		return s.Claim(ctx, key)
	}
	return rec, false, nil
}

func (s *SqliteStore) Complete(ctx context.Context, key, referenceID, outcome string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE idempotency SET state = ?, reference_id = ?, outcome = ?, updated_at_ms = ? WHERE key = ?`,
		string(IdemSucceeded), referenceID, outcome, time.Now().UnixMilli(), key)
	return err
}

func (s *SqliteStore) Release(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency WHERE key = ? AND state = ?`, key, string(IdemPending))
	return err
}

func (s *SqliteStore) Get(ctx context.Context, key string) (IdemRecord, bool, error) {
	var (
		rec   IdemRecord
		state string
		ref   sql.NullString
		out   sql.NullString
		ms    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, state, reference_id, outcome, updated_at_ms FROM idempotency WHERE key = ?`, key).
		Scan(&rec.Key, &state, &ref, &out, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return IdemRecord{}, false, nil
	}
	if err != nil {
		return IdemRecord{}, false, err
	}
	rec.State = IdemState(state)
	rec.ReferenceID = ref.String
	rec.Outcome = out.String
	rec.UpdatedAt = time.UnixMilli(ms)
	return rec, true, nil
}

// --- ScheduleStore ---

func (s *SqliteStore) PersistJob(ctx context.Context, job *model.ScheduledJob) error {
	draftJSON, err := json.Marshal(job.Draft)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs
		 (job_id, session_id, draft_json, idempotency_key, run_at_ms, status, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.SessionID, string(draftJSON), job.IdempotencyKey,
		job.RunAt.UnixMilli(), string(job.Status), job.CreatedAt.UnixMilli())
	return err
}

func (s *SqliteStore) GetJob(ctx context.Context, jobID string) (*model.ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, session_id, draft_json, idempotency_key, run_at_ms, status,
		        created_at_ms, executed_at_ms, external_reference_id, last_error
		 FROM scheduled_jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

func (s *SqliteStore) CancelJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = ? WHERE job_id = ? AND status = ?`,
		string(model.JobCanceled), jobID, string(model.JobScheduled))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return err
		}
		return ErrJobNotCancelable
	}
	return nil
}

func (s *SqliteStore) ListDueJobs(ctx context.Context, now time.Time) ([]*model.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, session_id, draft_json, idempotency_key, run_at_ms, status,
		        created_at_ms, executed_at_ms, external_reference_id, last_error
		 FROM scheduled_jobs WHERE status = ? AND run_at_ms <= ? ORDER BY run_at_ms`,
		string(model.JobScheduled), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var due []*model.ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, job)
	}
	return due, rows.Err()
}

func (s *SqliteStore) MarkExecuted(ctx context.Context, jobID string, status model.JobStatus, referenceID, lastError string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = ?, executed_at_ms = ?, external_reference_id = ?, last_error = ?
		 WHERE job_id = ?`,
		string(status), at.UnixMilli(), referenceID, lastError, jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.ScheduledJob, error) {
	var (
		job        model.ScheduledJob
		draftJSON  string
		status     string
		runAtMs    int64
		createdMs  int64
		executedMs sql.NullInt64
		ref        sql.NullString
		lastErr    sql.NullString
	)
	if err := row.Scan(&job.JobID, &job.SessionID, &draftJSON, &job.IdempotencyKey,
		&runAtMs, &status, &createdMs, &executedMs, &ref, &lastErr); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(draftJSON), &job.Draft); err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	job.RunAt = time.UnixMilli(runAtMs)
	job.CreatedAt = time.UnixMilli(createdMs)
	if executedMs.Valid {
		t := time.UnixMilli(executedMs.Int64)
		job.ExecutedAt = &t
	}
	job.ExternalReferenceID = ref.String
	job.LastError = lastErr.String
	return &job, nil
}

var (
	_ IdempotencyStore = (*SqliteStore)(nil)
	_ ScheduleStore    = (*SqliteStore)(nil)
)
