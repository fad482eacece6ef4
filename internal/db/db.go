package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
-- One row per training pass
CREATE TABLE IF NOT EXISTS training_runs (
    run_id TEXT PRIMARY KEY,
    history_len INTEGER NOT NULL,
    examples INTEGER NOT NULL,
    vocab_size INTEGER NOT NULL,
    classes TEXT NOT NULL,          -- comma separated, sorted
    trained_at TEXT NOT NULL
);

-- Prediction audit (submissions and ad-hoc queries)
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT,
    source TEXT NOT NULL,           -- "submit" or "query"
    entry_date TEXT,
    yesterday_mood TEXT,
    predicted_mood TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Scheduler job tracking
CREATE TABLE IF NOT EXISTS scheduler_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_type TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_training_runs_at ON training_runs(trained_at);
CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
CREATE INDEX IF NOT EXISTS idx_scheduler_job ON scheduler_runs(job_type);
`

// fixed-width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is alive
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// TrainingRun is an audit record of one training pass
type TrainingRun struct {
	RunID      string
	HistoryLen int
	Examples   int
	VocabSize  int
	Classes    []string
	TrainedAt  time.Time
}

// RecordTrainingRun stores a training pass
func (db *DB) RecordTrainingRun(run TrainingRun) error {
	_, err := db.conn.Exec(`
		INSERT INTO training_runs (run_id, history_len, examples, vocab_size, classes, trained_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.HistoryLen, run.Examples, run.VocabSize, strings.Join(run.Classes, ","), run.TrainedAt.UTC().Format(timeFormat))
	return err
}

// GetTrainingRuns returns the most recent training runs, newest first
func (db *DB) GetTrainingRuns(limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT run_id, history_len, examples, vocab_size, classes, trained_at
		FROM training_runs
		ORDER BY trained_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var r TrainingRun
		var classes, trainedStr string
		if err := rows.Scan(&r.RunID, &r.HistoryLen, &r.Examples, &r.VocabSize, &classes, &trainedStr); err != nil {
			return nil, err
		}
		r.Classes = []string{}
		if classes != "" {
			r.Classes = strings.Split(classes, ",")
		}
		r.TrainedAt, _ = time.Parse(timeFormat, trainedStr)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PredictionRecord is one logged prediction
type PredictionRecord struct {
	ID            int64
	RunID         string
	Source        string
	EntryDate     string
	YesterdayMood string
	PredictedMood string
	CreatedAt     time.Time
}

// RecordPrediction logs a prediction
func (db *DB) RecordPrediction(p PredictionRecord) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO predictions (run_id, source, entry_date, yesterday_mood, predicted_mood, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.RunID, p.Source, p.EntryDate, p.YesterdayMood, p.PredictedMood, created.UTC().Format(timeFormat))
	return err
}

// GetPredictions returns the most recent predictions, newest first
func (db *DB) GetPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, run_id, source, entry_date, yesterday_mood, predicted_mood, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []PredictionRecord
	for rows.Next() {
		var p PredictionRecord
		var runID, entryDate, yesterday sql.NullString
		var createdStr string
		if err := rows.Scan(&p.ID, &runID, &p.Source, &entryDate, &yesterday, &p.PredictedMood, &createdStr); err != nil {
			return nil, err
		}
		p.RunID = runID.String
		p.EntryDate = entryDate.String
		p.YesterdayMood = yesterday.String
		p.CreatedAt, _ = time.Parse(timeFormat, createdStr)
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// PrunePredictions deletes predictions created before the cutoff and
// returns how many were removed
func (db *DB) PrunePredictions(before time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		DELETE FROM predictions WHERE created_at < ?
	`, before.UTC().Format(timeFormat))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SchedulerRun tracks a scheduler job execution
type SchedulerRun struct {
	ID           int64
	JobType      string
	Status       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// StartSchedulerRun records the start of a scheduler job
func (db *DB) StartSchedulerRun(jobType string) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO scheduler_runs (job_type, status, started_at)
		VALUES (?, 'running', ?)
	`, jobType, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteSchedulerRun marks a scheduler job as completed
func (db *DB) CompleteSchedulerRun(runID int64, errMsg string) error {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	_, err := db.conn.Exec(`
		UPDATE scheduler_runs
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, time.Now().UTC().Format(timeFormat), errMsg, runID)
	return err
}

// GetLastSchedulerRun returns the last run for a job type
func (db *DB) GetLastSchedulerRun(jobType string) (*SchedulerRun, error) {
	var run SchedulerRun
	var startedStr string
	var completedStr, errMsg sql.NullString
	err := db.conn.QueryRow(`
		SELECT id, job_type, status, started_at, completed_at, error_message
		FROM scheduler_runs
		WHERE job_type = ?
		ORDER BY id DESC
		LIMIT 1
	`, jobType).Scan(&run.ID, &run.JobType, &run.Status, &startedStr, &completedStr, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(timeFormat, startedStr)
	if completedStr.Valid {
		t, _ := time.Parse(timeFormat, completedStr.String)
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.ErrorMessage = errMsg.String
	}
	return &run, nil
}
