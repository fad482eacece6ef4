package pipeline

import (
	"fmt"
	"time"

	"github.com/mrwolf/mood-server/internal/classifier"
	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/textproc"
)

// Example is one training pair: a composed feature string and the mood that
// actually followed it.
type Example struct {
	Feature string
	Label   models.Mood
}

// BuildExamples derives training pairs from history.
//
// A single entry yields one example built from its own text and mood. Longer
// histories yield one example per consecutive (yesterday, today) pair: the
// feature is yesterday's normalized diary plus yesterday's predicted mood
// (falling back to its actual mood), the label is today's actual mood. Only
// the last window pairs are kept.
func BuildExamples(history []models.Entry, window int) []Example {
	if len(history) == 0 {
		return nil
	}
	if len(history) < 2 {
		first := history[0]
		return []Example{{
			Feature: textproc.Compose(textproc.Normalize(first.Diary), &first.Mood),
			Label:   first.Mood,
		}}
	}

	examples := make([]Example, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		yesterday := history[i-1]
		today := history[i]

		aux := yesterday.Mood
		if yesterday.PredictedNextMood != nil && *yesterday.PredictedNextMood != "" {
			aux = *yesterday.PredictedNextMood
		}

		examples = append(examples, Example{
			Feature: textproc.Compose(textproc.Normalize(yesterday.Diary), &aux),
			Label:   today.Mood,
		})
	}

	if len(examples) > window {
		examples = examples[len(examples)-window:]
	}
	return examples
}

// Train rebuilds the vocabulary and refits the classifier on the most recent
// window of history. The returned state is independent of any earlier one.
func Train(history []models.Entry, window int) (*ModelState, error) {
	return TrainAt(history, window, time.Now())
}

// TrainAt is Train with an explicit training timestamp
func TrainAt(history []models.Entry, window int, now time.Time) (*ModelState, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}

	examples := BuildExamples(history, window)
	features := make([]string, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		features[i] = ex.Feature
		labels[i] = string(ex.Label)
	}

	vec := classifier.NewVectorizer()
	X, err := vec.FitTransform(features)
	if err != nil {
		return nil, fmt.Errorf("fitting vocabulary: %w", err)
	}

	nb := classifier.NewNaiveBayes(classifier.DefaultAlpha)
	if err := nb.Fit(X, labels); err != nil {
		return nil, fmt.Errorf("fitting classifier: %w", err)
	}

	return &ModelState{
		Vectorizer: vec,
		Classifier: nb,
		Examples:   len(examples),
		HistoryLen: len(history),
		TrainedAt:  now,
	}, nil
}
