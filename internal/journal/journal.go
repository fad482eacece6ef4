// Package journal runs the submission cycle: load history, retrain, predict
// the next mood for the new entry and persist it.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/logger"
	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/pipeline"
	"github.com/mrwolf/mood-server/internal/store"
)

// Errors surfaced to callers
var (
	ErrNoEntries  = errors.New("no entries found")
	ErrValidation = errors.New("invalid entry")
)

// Auditor records training and prediction events. *db.DB implements it.
type Auditor interface {
	RecordTrainingRun(run db.TrainingRun) error
	RecordPrediction(p db.PredictionRecord) error
}

// Options configures a Service
type Options struct {
	Window int
	Clock  clockwork.Clock
}

// Service serializes every read-modify-write of the history behind one
// mutex and owns the model state produced by the latest training pass.
type Service struct {
	store  *store.Store
	audit  Auditor
	log    *logger.Logger
	clock  clockwork.Clock
	window int

	mu    sync.Mutex
	state *pipeline.ModelState
	runID string
}

// New creates a service. audit may be nil.
func New(st *store.Store, audit Auditor, log *logger.Logger, opts Options) *Service {
	if opts.Window < 1 {
		opts.Window = pipeline.DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:  st,
		audit:  audit,
		log:    log.Component("journal"),
		clock:  opts.Clock,
		window: opts.Window,
	}
}

// Window returns the training window size
func (s *Service) Window() int {
	return s.window
}

// StoreExists reports whether the entry file has been created
func (s *Service) StoreExists() bool {
	return s.store.Exists()
}

// SubmitResult is the outcome of one submission
type SubmitResult struct {
	Entry             models.Entry
	PredictedNextMood models.Mood
	HistoryLen        int
	WindowExamples    int
	RunID             string
}

// Submit appends a new entry, retrains on the full history including it,
// predicts the next mood from the entry's diary and the prediction stored
// on the entry before it, then saves the history with that prediction
// filled in.
func (s *Service) Submit(ctx context.Context, req models.EntryRequest) (*SubmitResult, error) {
	entry, err := validate(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	entries = append(entries, entry)

	state, err := pipeline.TrainAt(entries, s.window, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	// the new entry has no prediction yet, so chain from the one before it
	var yesterday *models.Mood
	if len(entries) > 1 {
		yesterday = entries[len(entries)-2].PredictedNextMood
	}

	predicted, err := pipeline.Predict(state, entry.Diary, yesterday)
	if err != nil {
		return nil, fmt.Errorf("predicting: %w", err)
	}
	last := len(entries) - 1
	entries[last].PredictedNextMood = models.MoodPtr(predicted)

	if err := s.store.Save(entries); err != nil {
		return nil, fmt.Errorf("saving history: %w", err)
	}

	runID := s.install(state)
	s.recordPrediction(runID, models.SourceSubmit, entry.Date, yesterday, predicted)
	if err := s.store.LogSubmission(entries[last], len(entries), s.clock.Now()); err != nil {
		s.log.Warn("failed to log submission", "date", entry.Date, "error", err)
	}

	s.log.Info("entry saved",
		"date", entry.Date,
		"mood", entry.Mood,
		"predicted_next_mood", predicted,
		"history_len", len(entries),
		"examples", state.Examples,
	)

	return &SubmitResult{
		Entry:             entries[last],
		PredictedNextMood: predicted,
		HistoryLen:        len(entries),
		WindowExamples:    state.Examples,
		RunID:             runID,
	}, nil
}

// Predict answers an ad-hoc query with the current model. It fails with
// ErrNoEntries when nothing has been stored or trained yet.
func (s *Service) Predict(ctx context.Context, diary string, yesterday *models.Mood) (models.Mood, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.store.Exists() {
		return "", ErrNoEntries
	}

	s.mu.Lock()
	state, runID := s.state, s.runID
	s.mu.Unlock()

	if !state.Trained() {
		return "", fmt.Errorf("%w: %w", ErrNoEntries, pipeline.ErrModelNotTrained)
	}

	predicted, err := pipeline.Predict(state, diary, yesterday)
	if err != nil {
		return "", err
	}
	s.recordPrediction(runID, models.SourceQuery, "", yesterday, predicted)
	return predicted, nil
}

// Bootstrap trains from the stored history at startup so the first request
// does not see an untrained model. An empty store is not an error.
func (s *Service) Bootstrap(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}

// Refresh reloads the history and retrains from scratch. It returns the
// number of entries loaded. An empty history clears the model.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return 0, fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		s.state, s.runID = nil, ""
		s.log.Info("history empty, model not trained")
		return 0, nil
	}

	state, err := pipeline.TrainAt(entries, s.window, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("training: %w", err)
	}
	s.install(state)
	s.log.Info("model trained", "history_len", len(entries), "examples", state.Examples)
	return len(entries), nil
}

// History returns the stored entries
func (s *Service) History(ctx context.Context) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// LatestPrediction returns the next-mood prediction stored on the newest
// entry, or nil when there are no entries.
func (s *Service) LatestPrediction(ctx context.Context) (*models.Mood, error) {
	entries, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1].PredictedNextMood, nil
}

// Status describes the installed model
func (s *Service) Status() models.ModelStatus {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return state.Status(s.window)
}

// install swaps in a new model state and audits it. Callers hold s.mu.
func (s *Service) install(state *pipeline.ModelState) string {
	runID := uuid.NewString()
	s.state, s.runID = state, runID

	if s.audit != nil {
		err := s.audit.RecordTrainingRun(db.TrainingRun{
			RunID:      runID,
			HistoryLen: state.HistoryLen,
			Examples:   state.Examples,
			VocabSize:  state.Vectorizer.Len(),
			Classes:    state.Classifier.Classes(),
			TrainedAt:  state.TrainedAt,
		})
		if err != nil {
			s.log.Warn("failed to record training run", "run_id", runID, "error", err)
		}
	}
	return runID
}

func (s *Service) recordPrediction(runID, source, date string, yesterday *models.Mood, predicted models.Mood) {
	if s.audit == nil {
		return
	}
	rec := db.PredictionRecord{
		RunID:         runID,
		Source:        source,
		EntryDate:     date,
		PredictedMood: string(predicted),
		CreatedAt:     s.clock.Now(),
	}
	if yesterday != nil {
		rec.YesterdayMood = string(*yesterday)
	}
	if err := s.audit.RecordPrediction(rec); err != nil {
		s.log.Warn("failed to record prediction", "source", source, "error", err)
	}
}

func validate(req models.EntryRequest) (models.Entry, error) {
	if strings.TrimSpace(req.Date) == "" {
		return models.Entry{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if strings.TrimSpace(req.Diary) == "" {
		return models.Entry{}, fmt.Errorf("%w: diary is required", ErrValidation)
	}
	if strings.TrimSpace(req.Mood) == "" {
		return models.Entry{}, fmt.Errorf("%w: mood is required", ErrValidation)
	}
	mood, err := models.ParseMood(req.Mood)
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return models.Entry{Date: req.Date, Diary: req.Diary, Mood: mood}, nil
}
