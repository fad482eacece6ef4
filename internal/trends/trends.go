// Package trends summarizes recent mood history: how often each mood shows
// up, which way it is moving, recurring diary terms and how often the stored
// forecasts turned out right.
package trends

import (
	"sort"
	"strings"

	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/textproc"
)

// Trend directions
const (
	Increasing = "increasing"
	Declining  = "declining"
	Steady     = "steady"
)

const (
	maxRecurringTerms = 10
	recurringMinDays  = 3
)

// Summary is the trend report over the most recent span of entries
type Summary struct {
	Span           int               `json:"span"`
	Entries        int               `json:"entries"`
	MoodCounts     map[string]int    `json:"mood_counts"`
	MoodTrend      map[string]string `json:"mood_trend"`
	RecurringTerms []string          `json:"recurring_terms"`
	DominantMood   string            `json:"dominant_mood"`
	Forecast       Forecast          `json:"forecast"`
}

// Forecast scores stored predictions against the mood actually reported
// on the following entry, over the whole history.
type Forecast struct {
	Scored  int     `json:"scored"`
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
}

// Build analyzes the last span entries of history. span < 1 means all.
func Build(history []models.Entry, span int) Summary {
	recent := history
	if span > 0 && len(recent) > span {
		recent = recent[len(recent)-span:]
	}

	s := Summary{
		Span:           span,
		Entries:        len(recent),
		MoodCounts:     make(map[string]int),
		MoodTrend:      make(map[string]string),
		RecurringTerms: []string{},
		DominantMood:   "none",
	}

	for _, e := range recent {
		s.MoodCounts[string(e.Mood)]++
	}
	s.MoodTrend = analyzeMoodTrends(recent)
	s.RecurringTerms = recurringTerms(recent)
	s.DominantMood = dominantMood(s.MoodCounts, len(recent))
	s.Forecast = scoreForecasts(history)
	return s
}

// analyzeMoodTrends compares the newer half of the span with the older half
func analyzeMoodTrends(recent []models.Entry) map[string]string {
	trends := make(map[string]string)
	if len(recent) < 2 {
		return trends
	}

	midpoint := len(recent) / 2
	newer := make(map[models.Mood]int)
	older := make(map[models.Mood]int)
	for i, e := range recent {
		if i >= len(recent)-midpoint {
			newer[e.Mood]++
		} else {
			older[e.Mood]++
		}
	}

	for _, mood := range models.AllMoods() {
		n, o := newer[mood], older[mood]
		switch {
		case n == 0 && o == 0:
			continue
		case n > o*2 && n >= 2:
			trends[string(mood)] = Increasing
		case o > n*2 && o >= 2:
			trends[string(mood)] = Declining
		default:
			trends[string(mood)] = Steady
		}
	}
	return trends
}

// recurringTerms returns normalized diary terms found in at least three
// entries, most frequent first
func recurringTerms(recent []models.Entry) []string {
	seen := make(map[string]int)
	for _, e := range recent {
		unique := make(map[string]bool)
		for _, term := range strings.Fields(textproc.Normalize(e.Diary)) {
			unique[term] = true
		}
		for term := range unique {
			seen[term]++
		}
	}

	terms := []string{}
	for term, n := range seen {
		if n >= recurringMinDays {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if seen[terms[i]] != seen[terms[j]] {
			return seen[terms[i]] > seen[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxRecurringTerms {
		terms = terms[:maxRecurringTerms]
	}
	return terms
}

// dominantMood names a mood holding more than 40% of the span, else "mixed"
func dominantMood(counts map[string]int, total int) string {
	if total == 0 {
		return "none"
	}

	var maxMood string
	var maxCount int
	for _, mood := range models.AllMoods() {
		if c := counts[string(mood)]; c > maxCount {
			maxMood, maxCount = string(mood), c
		}
	}

	if float64(maxCount)/float64(total) > 0.4 {
		return maxMood
	}
	return "mixed"
}

func scoreForecasts(history []models.Entry) Forecast {
	var f Forecast
	for i := 1; i < len(history); i++ {
		prev := history[i-1].PredictedNextMood
		if prev == nil {
			continue
		}
		f.Scored++
		if *prev == history[i].Mood {
			f.Hits++
		}
	}
	if f.Scored > 0 {
		f.HitRate = float64(f.Hits) / float64(f.Scored)
	}
	return f
}
