// Package store persists diary history as a JSON array of entries.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mrwolf/mood-server/internal/models"
)

// ErrCorrupt is returned when the entry file cannot be decoded
var ErrCorrupt = errors.New("entry store corrupt")

// Store is a file-backed, append-only history. Load and Save always move the
// whole file; callers serialize read-modify-write cycles themselves.
type Store struct {
	path    string
	logPath string
	logLock sync.Mutex
}

// New creates a store backed by path. Submissions are logged next to it in
// submissions.jsonl.
func New(path string) *Store {
	return &Store{
		path:    path,
		logPath: filepath.Join(filepath.Dir(path), "submissions.jsonl"),
	}
}

// Path returns the entry file location
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the entry file has been created
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load returns the stored history. A missing file is created empty.
func (s *Store) Load() ([]models.Entry, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.replace([]byte("[]")); err != nil {
			return nil, fmt.Errorf("creating entry store: %w", err)
		}
		return []models.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry store: %w", err)
	}

	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return []models.Entry{}, nil
	}

	var entries []models.Entry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	for i, e := range entries {
		if !e.Mood.Valid() {
			return nil, fmt.Errorf("%w: entry %d has mood %q", ErrCorrupt, i, e.Mood)
		}
		if e.PredictedNextMood != nil && !e.PredictedNextMood.Valid() {
			return nil, fmt.Errorf("%w: entry %d has predicted mood %q", ErrCorrupt, i, *e.PredictedNextMood)
		}
	}
	return entries, nil
}

// Save rewrites the whole history
func (s *Store) Save(entries []models.Entry) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entries: %w", err)
	}
	if err := s.replace(content); err != nil {
		return fmt.Errorf("writing entry store: %w", err)
	}
	return nil
}

// replace swaps the entry file for content in one rename, so a crash leaves
// either the previous history or the new one. Transient failures such as a
// rename racing an external editor are retried twice.
func (s *Store) replace(content []byte) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if err = s.replaceOnce(content); err == nil {
			return nil
		}
	}
	return err
}

func (s *Store) replaceOnce(content []byte) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// SubmissionLog is one line of the submission audit trail
type SubmissionLog struct {
	TS                string `json:"ts"`
	Date              string `json:"date"`
	Mood              string `json:"mood"`
	PredictedNextMood string `json:"predicted_next_mood"`
	HistoryLen        int    `json:"history_len"`
}

// LogSubmission appends a submission record to the audit trail
func (s *Store) LogSubmission(entry models.Entry, historyLen int, at time.Time) error {
	s.logLock.Lock()
	defer s.logLock.Unlock()

	rec := SubmissionLog{
		TS:         at.UTC().Format(time.RFC3339),
		Date:       entry.Date,
		Mood:       string(entry.Mood),
		HistoryLen: historyLen,
	}
	if entry.PredictedNextMood != nil {
		rec.PredictedNextMood = string(*entry.PredictedNextMood)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling submission log: %w", err)
	}

	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening submission log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending submission log: %w", err)
	}
	return f.Sync()
}
