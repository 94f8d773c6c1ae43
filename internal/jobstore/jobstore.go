// Package jobstore implements the build-job store named in the purpose
// statement as a sibling subsystem to the State Journal. Per Non-goals
// ("no build-data packaging") it does not package build data; it only
// tracks a job's identity and lifecycle state, persisted through the same
// modernc.org/sqlite index technology the chunk Persistence Sink uses
// (sqlitesink), following the teacher's config/sqlite migrate-once,
// single-writer-connection discipline.
package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// JobState is a job's position in its Queued -> Running -> Finished/Failed
// lifecycle.
type JobState int

const (
	Queued JobState = iota
	Running
	Finished
	Failed
)

func (s JobState) String() string {
	switch s {
	case Queued:
		return "Queued"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Job is one build's identity and lifecycle record.
type Job struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	State     JobState
}

// Store is the persistence interface the HTTP API and drivers share.
type Store interface {
	Create(ctx context.Context, name string) (Job, error)
	Transition(ctx context.Context, id uuid.UUID, state JobState) error
	Get(ctx context.Context, id uuid.UUID) (Job, error)
	List(ctx context.Context) ([]Job, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	state      INTEGER NOT NULL
);
`

// SQLiteStore is the production Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) a job store database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobstore: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, name string) (Job, error) {
	j := Job{ID: uuid.Must(uuid.NewV7()), Name: name, CreatedAt: time.Now().UTC(), State: Queued}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, created_at, state) VALUES (?, ?, ?, ?)`,
		j.ID.String(), j.Name, j.CreatedAt.UnixMicro(), int(j.State),
	)
	if err != nil {
		return Job{}, fmt.Errorf("jobstore: create %q: %w", name, err)
	}
	return j, nil
}

func (s *SQLiteStore) Transition(ctx context.Context, id uuid.UUID, state JobState) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET state = ? WHERE id = ?`, int(state), id.String())
	if err != nil {
		return fmt.Errorf("jobstore: transition %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobstore: transition %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("jobstore: transition %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, state FROM jobs WHERE id = ?`, id.String())
	return scanJob(row)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, state FROM jobs ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var idStr string
	var createdAtMicros int64
	var state int
	var j Job

	if err := row.Scan(&idStr, &j.Name, &createdAtMicros, &state); err != nil {
		return Job{}, fmt.Errorf("jobstore: scan: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Job{}, fmt.Errorf("jobstore: parse id %q: %w", idStr, err)
	}
	j.ID = id
	j.CreatedAt = time.UnixMicro(createdAtMicros).UTC()
	j.State = JobState(state)
	return j, nil
}
