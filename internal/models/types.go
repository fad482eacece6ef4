package models

import (
	"errors"
	"fmt"
	"strings"
)

// Mood is one of the eight self-reported mood labels.
type Mood string

// Mood constants
const (
	MoodHappy   Mood = "happy"
	MoodUnsure  Mood = "unsure"
	MoodSad     Mood = "sad"
	MoodSick    Mood = "sick"
	MoodGlad    Mood = "glad"
	MoodNeutral Mood = "neutral"
	MoodCool    Mood = "cool"
	MoodRelaxed Mood = "relaxed"
)

// ErrUnknownMood is returned for labels outside the closed mood set
var ErrUnknownMood = errors.New("unknown mood")

var allMoods = []Mood{
	MoodHappy, MoodUnsure, MoodSad, MoodSick,
	MoodGlad, MoodNeutral, MoodCool, MoodRelaxed,
}

// AllMoods returns the mood set in display order
func AllMoods() []Mood {
	out := make([]Mood, len(allMoods))
	copy(out, allMoods)
	return out
}

// ParseMood normalizes s and checks it against the mood set
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
	}
	return m, nil
}

// Valid reports whether m belongs to the mood set
func (m Mood) Valid() bool {
	for _, known := range allMoods {
		if m == known {
			return true
		}
	}
	return false
}

func (m Mood) String() string {
	return string(m)
}

// MoodPtr is a small helper for optional mood fields
func MoodPtr(m Mood) *Mood {
	return &m
}

// Entry is one diary submission as persisted in the entry store.
// PredictedNextMood is nil until the submission that created the entry
// back-fills it, and is never rewritten afterwards.
type Entry struct {
	Date              string `json:"date"`
	Diary             string `json:"diary"`
	Mood              Mood   `json:"mood"`
	PredictedNextMood *Mood  `json:"predicted_next_mood"`
}

// EntryRequest is the body of a diary submission
type EntryRequest struct {
	Date  string `json:"date"`
	Diary string `json:"diary"`
	Mood  string `json:"mood"`
}

// EntryResponse is returned after a submission is saved
type EntryResponse struct {
	Message           string `json:"message"`
	PredictedNextMood Mood   `json:"predicted_next_mood"`
}

// PredictionResponse is returned by the query endpoint
type PredictionResponse struct {
	PredictedNextMood Mood `json:"predicted_next_mood"`
}

// EntriesResponse lists the stored history
type EntriesResponse struct {
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
}

// RootResponse is returned by GET /
type RootResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Model    string `json:"model"`
	Ollama   string `json:"ollama"`
	Version  string `json:"version"`
}

// ChatMessage is one turn of a companion conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the conversation so far, oldest first
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the assistant's next turn
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Model   string      `json:"model"`
}

// ModelStatus describes the currently installed classifier
type ModelStatus struct {
	Trained        bool     `json:"trained"`
	Examples       int      `json:"examples"`
	VocabularySize int      `json:"vocabulary_size"`
	Classes        []string `json:"classes"`
	TrainedAt      string   `json:"trained_at,omitempty"`
	Window         int      `json:"window"`
}

// TrainingRun is an audit record of one training pass
type TrainingRun struct {
	RunID      string   `json:"run_id"`
	HistoryLen int      `json:"history_len"`
	Examples   int      `json:"examples"`
	VocabSize  int      `json:"vocab_size"`
	Classes    []string `json:"classes"`
	TrainedAt  string   `json:"trained_at"`
}

// TrainingRunsResponse lists recent training runs
type TrainingRunsResponse struct {
	Runs []TrainingRun `json:"runs"`
}

// Prediction sources recorded in the audit log
const (
	SourceSubmit = "submit"
	SourceQuery  = "query"
)
