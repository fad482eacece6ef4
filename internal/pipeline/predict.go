package pipeline

import (
	"fmt"

	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/textproc"
)

// Predict forecasts the next mood from today's diary text and yesterday's
// predicted mood, using the vocabulary and classifier in state.
func Predict(state *ModelState, diary string, yesterday *models.Mood) (models.Mood, error) {
	if !state.Trained() {
		return "", ErrModelNotTrained
	}

	feature := textproc.Compose(textproc.Normalize(diary), yesterday)
	label, err := state.Classifier.Predict(state.Vectorizer.Transform(feature))
	if err != nil {
		return "", fmt.Errorf("classifying: %w", err)
	}

	mood, err := models.ParseMood(label)
	if err != nil {
		return "", fmt.Errorf("classifier produced %w", err)
	}
	return mood, nil
}
