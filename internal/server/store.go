package server

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// JobState describes the lifecycle of a build job.
type JobState string

const (
	StateQueued   JobState = "queued"
	StateRunning  JobState = "running"
	StateDone     JobState = "done"
	StateFailed   JobState = "failed"
	StateCanceled JobState = "canceled"
)

// Job is one build request tracked by the server.
type Job struct {
	ID        string    `json:"id"`
	State     JobState  `json:"state"`
	Stage     string    `json:"stage"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobStore persists jobs in a sqlite database so status survives restarts.
type JobStore struct {
	db *sql.DB
}

// OpenJobStore opens or creates the job database at path.
func OpenJobStore(path string) (*JobStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open job db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &JobStore{db: db}, nil
}

func (s *JobStore) Close() error {
	return s.db.Close()
}

// Create inserts a new job row.
func (s *JobStore) Create(job Job) error {
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, state, stage, output, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.State), job.Stage, job.Output, job.Error,
		job.CreatedAt.Unix(), job.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get returns one job by id.
func (s *JobStore) Get(id string) (Job, error) {
	row := s.db.QueryRow(
		`SELECT id, state, stage, output, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns all jobs, newest first.
func (s *JobStore) List() ([]Job, error) {
	rows, err := s.db.Query(
		`SELECT id, state, stage, output, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SetStage records pipeline progress for a running job.
func (s *JobStore) SetStage(id, stage string) error {
	return s.update(id, `UPDATE jobs SET stage = ?, updated_at = ? WHERE id = ?`,
		stage, time.Now().Unix(), id)
}

// SetState moves a job to a new lifecycle state, with an optional error
// message for failures.
func (s *JobStore) SetState(id string, state JobState, errMsg string) error {
	return s.update(id, `UPDATE jobs SET state = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(state), errMsg, time.Now().Unix(), id)
}

// SetOutput records the finished output path.
func (s *JobStore) SetOutput(id, output string) error {
	return s.update(id, `UPDATE jobs SET output = ?, updated_at = ? WHERE id = ?`,
		output, time.Now().Unix(), id)
}

func (s *JobStore) update(id, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job     Job
		state   string
		created int64
		updated int64
	)
	err := row.Scan(&job.ID, &state, &job.Stage, &job.Output, &job.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.State = JobState(state)
	job.CreatedAt = time.Unix(created, 0)
	job.UpdatedAt = time.Unix(updated, 0)
	return job, nil
}
