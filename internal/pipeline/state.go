// Package pipeline holds the sliding-window trainer and the chained
// predictor. Model state is an explicit value: Train returns it and Predict
// takes it, so nothing here is process-global.
package pipeline

import (
	"errors"
	"time"

	"github.com/mrwolf/mood-server/internal/classifier"
	"github.com/mrwolf/mood-server/internal/models"
)

// DefaultWindow is the number of most recent training pairs kept
const DefaultWindow = 7

// Errors returned by the pipeline
var (
	ErrEmptyHistory    = errors.New("history is empty")
	ErrInvalidWindow   = errors.New("window size must be at least 1")
	ErrModelNotTrained = errors.New("model not trained")
)

// ModelState pairs a fitted vocabulary with the classifier fitted on it.
// It is never mutated after Train returns it.
type ModelState struct {
	Vectorizer *classifier.Vectorizer
	Classifier *classifier.NaiveBayes
	Examples   int
	HistoryLen int
	TrainedAt  time.Time
}

// Trained reports whether s can serve predictions
func (s *ModelState) Trained() bool {
	return s != nil && s.Vectorizer != nil && s.Classifier != nil &&
		s.Vectorizer.Fitted() && s.Classifier.Fitted()
}

// Status summarizes the state for the API
func (s *ModelState) Status(window int) models.ModelStatus {
	if !s.Trained() {
		return models.ModelStatus{Window: window, Classes: []string{}}
	}
	return models.ModelStatus{
		Trained:        true,
		Examples:       s.Examples,
		VocabularySize: s.Vectorizer.Len(),
		Classes:        s.Classifier.Classes(),
		TrainedAt:      s.TrainedAt.UTC().Format(time.RFC3339),
		Window:         window,
	}
}
