package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"github.com/whoisalfaz/site-audit/internal/model"
)

// JobStatus is the lifecycle state of an outbox job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusDead    JobStatus = "dead"
)

var errNilResults = errors.New("notify: audit results are required")

// Job is a claimed unit of delivery work. Attempts counts earlier failed
// deliveries.
type Job struct {
	ID       string
	Kind     Kind
	Payload  Payload
	Attempts int
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id              TEXT PRIMARY KEY,
		dedupe_key      TEXT NOT NULL UNIQUE,
		kind            TEXT NOT NULL,
		payload         TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending',
		attempts        INTEGER NOT NULL DEFAULT 0,
		next_attempt_at INTEGER NOT NULL,
		last_error      TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_due ON jobs (status, next_attempt_at)`,
}

// Outbox is a durable SQLite-backed job queue. Delivery is at-least-once:
// a job claimed by a process that dies before finishing it is handed out
// again after the next OpenOutbox.
type Outbox struct {
	db  *sql.DB
	now func() time.Time
}

// OpenOutbox opens (creating if needed) the outbox database at path and
// returns jobs interrupted by a previous run to the pending state.
func OpenOutbox(ctx context.Context, path string) (*Outbox, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	// SQLite allows one writer; a single connection serializes access.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init outbox schema: %w", err)
		}
	}

	o := &Outbox{db: db, now: time.Now}
	if _, err := o.resetRunning(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

// Close releases the database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

func (o *Outbox) resetRunning(ctx context.Context) (int64, error) {
	res, err := o.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending, o.now().UnixMilli(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// EnqueueAudit durably queues one job per notification kind for an audit
// and returns how many were newly queued. Re-queuing the same audit for the
// same lead is a no-op.
func (o *Outbox) EnqueueAudit(ctx context.Context, lead Lead, results *model.AuditResults) (int, error) {
	if results == nil {
		return 0, errNilResults
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := o.now().UnixMilli()
	var queued int
	for _, kind := range Kinds {
		p := Payload{Lead: lead}
		if kind != KindContact {
			p.Results = results
		}
		body, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("encode %s payload: %w", kind, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (id, dedupe_key, kind, payload, status, next_attempt_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (dedupe_key) DO NOTHING`,
			uuid.NewString(), dedupeKey(kind, lead, results.Timestamp), kind, string(body), StatusPending, now, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert %s job: %w", kind, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			queued++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit enqueue: %w", err)
	}
	return queued, nil
}

// dedupeKey identifies a notification for one audit run.
func dedupeKey(kind Kind, lead Lead, ts time.Time) string {
	return fmt.Sprintf("%016x", xxh3.HashString(
		string(kind)+"\x00"+lead.Email+"\x00"+lead.URL+"\x00"+ts.UTC().Format(time.RFC3339Nano)))
}

// Claim marks up to limit due pending jobs as running and returns them,
// oldest first.
func (o *Outbox) Claim(ctx context.Context, limit int) ([]Job, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := o.now().UnixMilli()
	rows, err := tx.QueryContext(ctx,
		`SELECT id, kind, payload, attempts FROM jobs
		 WHERE status = ? AND next_attempt_at <= ?
		 ORDER BY next_attempt_at, created_at
		 LIMIT ?`,
		StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due jobs: %w", err)
	}

	var jobs []Job
	for rows.Next() {
		var (
			j    Job
			body string
		)
		if err := rows.Scan(&j.ID, &j.Kind, &body, &j.Attempts); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &j.Payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode job %s: %w", j.ID, err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, j := range jobs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
			StatusRunning, now, j.ID); err != nil {
			return nil, fmt.Errorf("claim job %s: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return jobs, nil
}

// Complete marks a job as delivered.
func (o *Outbox) Complete(ctx context.Context, id string) error {
	return o.finish(ctx, id, StatusDone, "", 0, 0)
}

// Retry records a failed attempt and schedules the job again at next.
func (o *Outbox) Retry(ctx context.Context, id string, cause error, next time.Time) error {
	return o.finish(ctx, id, StatusPending, cause.Error(), 1, next.UnixMilli())
}

// Bury records a failed attempt and stops retrying the job.
func (o *Outbox) Bury(ctx context.Context, id string, cause error) error {
	return o.finish(ctx, id, StatusDead, cause.Error(), 1, 0)
}

func (o *Outbox) finish(ctx context.Context, id string, status JobStatus, lastErr string, failed int, next int64) error {
	_, err := o.db.ExecContext(ctx,
		`UPDATE jobs SET
			status = ?,
			attempts = attempts + ?,
			last_error = CASE WHEN ? = '' THEN last_error ELSE ? END,
			next_attempt_at = CASE WHEN ? > 0 THEN ? ELSE next_attempt_at END,
			updated_at = ?
		 WHERE id = ?`,
		status, failed, lastErr, lastErr, next, next, o.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark job %s %s: %w", id, status, err)
	}
	return nil
}

// Pending returns how many jobs are waiting for or undergoing delivery.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status IN (?, ?)`,
		StatusPending, StatusRunning).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}
