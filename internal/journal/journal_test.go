package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/logger"
	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/store"
)

type fakeAuditor struct {
	mu          sync.Mutex
	runs        []db.TrainingRun
	predictions []db.PredictionRecord
}

func (f *fakeAuditor) RecordTrainingRun(run db.TrainingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeAuditor) RecordPrediction(p db.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictions = append(f.predictions, p)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *fakeAuditor) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "entries.json"))
	audit := &fakeAuditor{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	svc := New(st, audit, logger.Nop(), Options{Window: 7, Clock: clock})
	return svc, st, audit
}

var diaries = []struct {
	diary string
	mood  string
}{
	{"rough day, felt sick", "sick"},
	{"slept well and went for a long walk", "relaxed"},
	{"deadline at work, lots of stress", "unsure"},
	{"dinner with friends, laughed a lot", "happy"},
	{"rainy and grey, stayed inside", "sad"},
	{"new sunglasses, summer vibes", "cool"},
	{"finished the puzzle finally", "glad"},
	{"ordinary tuesday", "neutral"},
	{"another long walk by the river", "relaxed"},
	{"headache again", "sick"},
}

func TestSubmitFirstEntry(t *testing.T) {
	svc, st, audit := newTestService(t)

	res, err := svc.Submit(context.Background(), models.EntryRequest{
		Date: "2024-01-01", Diary: "rough day, felt sick", Mood: "sick",
	})
	require.NoError(t, err)

	// a single entry trains on itself, so it predicts its own mood
	assert.Equal(t, models.MoodSick, res.PredictedNextMood)
	assert.Equal(t, 1, res.HistoryLen)
	assert.Equal(t, 1, res.WindowExamples)
	assert.NotEmpty(t, res.RunID)

	entries, err := st.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].PredictedNextMood)
	assert.Equal(t, models.MoodSick, *entries[0].PredictedNextMood)

	require.Len(t, audit.runs, 1)
	require.Len(t, audit.predictions, 1)
	assert.Equal(t, models.SourceSubmit, audit.predictions[0].Source)
	assert.Empty(t, audit.predictions[0].YesterdayMood)
}

func TestSubmitSequenceNeverRewritesPredictions(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	var seen []models.Mood
	for i, d := range diaries {
		res, err := svc.Submit(ctx, models.EntryRequest{
			Date: fmt.Sprintf("2024-01-%02d", i+1), Diary: d.diary, Mood: d.mood,
		})
		require.NoError(t, err)
		assert.True(t, res.PredictedNextMood.Valid())

		entries, err := st.Load()
		require.NoError(t, err)
		require.Len(t, entries, i+1)

		for j, e := range entries {
			require.NotNil(t, e.PredictedNextMood, "entry %d lost its prediction", j)
			if j < len(seen) {
				assert.Equal(t, seen[j], *e.PredictedNextMood, "entry %d prediction rewritten", j)
			}
		}
		seen = append(seen, *entries[i].PredictedNextMood)

		want := i
		if want > 7 {
			want = 7
		}
		if i == 0 {
			want = 1
		}
		assert.Equal(t, want, res.WindowExamples)
	}
}

func TestSubmitChainsFromSecondToLastPrediction(t *testing.T) {
	svc, st, audit := newTestService(t)
	ctx := context.Background()

	for i, d := range diaries[:4] {
		_, err := svc.Submit(ctx, models.EntryRequest{
			Date: fmt.Sprintf("2024-01-%02d", i+1), Diary: d.diary, Mood: d.mood,
		})
		require.NoError(t, err)
	}

	entries, err := st.Load()
	require.NoError(t, err)
	require.Len(t, audit.predictions, 4)

	assert.Empty(t, audit.predictions[0].YesterdayMood)
	for i := 1; i < 4; i++ {
		assert.Equal(t, string(*entries[i-1].PredictedNextMood), audit.predictions[i].YesterdayMood,
			"submission %d should chain from entry %d", i, i-1)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, st, _ := newTestService(t)

	tests := []struct {
		name string
		req  models.EntryRequest
	}{
		{"missing date", models.EntryRequest{Diary: "x", Mood: "happy"}},
		{"missing diary", models.EntryRequest{Date: "2024-01-01", Diary: "  ", Mood: "happy"}},
		{"missing mood", models.EntryRequest{Date: "2024-01-01", Diary: "x"}},
		{"unknown mood", models.EntryRequest{Date: "2024-01-01", Diary: "x", Mood: "furious"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := svc.Submit(context.Background(), tests[3].req)
	assert.ErrorIs(t, err, models.ErrUnknownMood)

	// rejected submissions never touch the store
	assert.False(t, st.Exists())
}

func TestSubmitCorruptStore(t *testing.T) {
	svc, st, _ := newTestService(t)
	require.NoError(t, os.WriteFile(st.Path(), []byte("{not json"), 0644))

	_, err := svc.Submit(context.Background(), models.EntryRequest{Date: "d", Diary: "x", Mood: "sad"})
	assert.ErrorIs(t, err, store.ErrCorrupt)

	content, _ := os.ReadFile(st.Path())
	assert.Equal(t, "{not json", string(content))
}

func TestPredictBeforeAnyEntry(t *testing.T) {
	svc, st, _ := newTestService(t)

	_, err := svc.Predict(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoEntries)

	// store exists but holds nothing: still not found
	_, err = st.Load()
	require.NoError(t, err)
	_, err = svc.Predict(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestPredictAfterSubmit(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, models.EntryRequest{Date: "2024-01-01", Diary: "I feel great today", Mood: "happy"})
	require.NoError(t, err)

	got, err := svc.Predict(ctx, "I feel great today", models.MoodPtr(models.MoodSad))
	require.NoError(t, err)
	assert.Equal(t, models.MoodHappy, got)

	last := audit.predictions[len(audit.predictions)-1]
	assert.Equal(t, models.SourceQuery, last.Source)
	assert.Equal(t, "sad", last.YesterdayMood)
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "entries.json"))
	require.NoError(t, st.Save([]models.Entry{
		{Date: "2024-01-01", Diary: "sunny walk", Mood: models.MoodHappy, PredictedNextMood: models.MoodPtr(models.MoodHappy)},
		{Date: "2024-01-02", Diary: "sunny park", Mood: models.MoodGlad, PredictedNextMood: models.MoodPtr(models.MoodGlad)},
	}))

	svc := New(st, nil, nil, Options{})
	assert.False(t, svc.Status().Trained)
	assert.Equal(t, 7, svc.Window())

	require.NoError(t, svc.Bootstrap(context.Background()))

	status := svc.Status()
	assert.True(t, status.Trained)
	assert.Equal(t, 1, status.Examples)
	assert.Equal(t, []string{"glad"}, status.Classes)

	got, err := svc.Predict(context.Background(), "sunny", nil)
	require.NoError(t, err)
	assert.Equal(t, models.MoodGlad, got)
}

func TestBootstrapEmptyStore(t *testing.T) {
	svc, st, audit := newTestService(t)

	require.NoError(t, svc.Bootstrap(context.Background()))
	assert.False(t, svc.Status().Trained)
	assert.True(t, st.Exists())
	assert.Empty(t, audit.runs)
}

func TestRefreshPicksUpExternalEdits(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, models.EntryRequest{Date: "2024-01-01", Diary: "sunny", Mood: "happy"})
	require.NoError(t, err)

	// history rewritten out of band
	require.NoError(t, st.Save([]models.Entry{{Date: "2024-01-01", Diary: "sunny", Mood: models.MoodSad}}))

	n, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Predict(ctx, "sunny", nil)
	require.NoError(t, err)
	assert.Equal(t, models.MoodSad, got)

	require.NoError(t, st.Save(nil))
	n, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, svc.Status().Trained)
}

func TestConcurrentSubmissionsAreSerialized(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, len(diaries))
	for i, d := range diaries {
		wg.Add(1)
		go func(i int, diary, mood string) {
			defer wg.Done()
			_, err := svc.Submit(ctx, models.EntryRequest{
				Date: fmt.Sprintf("2024-02-%02d", i+1), Diary: diary, Mood: mood,
			})
			errs <- err
		}(i, d.diary, d.mood)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := st.Load()
	require.NoError(t, err)
	assert.Len(t, entries, len(diaries))
	for _, e := range entries {
		assert.NotNil(t, e.PredictedNextMood)
	}
}

func TestHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entries, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = svc.Submit(ctx, models.EntryRequest{Date: "2024-01-01", Diary: "x y z walk", Mood: "cool"})
	require.NoError(t, err)

	entries, err = svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MoodCool, entries[0].Mood)
}

func TestCanceledContext(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, models.EntryRequest{Date: "d", Diary: "x", Mood: "sad"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatestPrediction(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mood, err := svc.LatestPrediction(ctx)
	require.NoError(t, err)
	assert.Nil(t, mood)

	res, err := svc.Submit(ctx, models.EntryRequest{Date: "2024-01-01", Diary: "rough day, felt sick", Mood: "sick"})
	require.NoError(t, err)

	mood, err = svc.LatestPrediction(ctx)
	require.NoError(t, err)
	require.NotNil(t, mood)
	assert.Equal(t, res.PredictedNextMood, *mood)
}
