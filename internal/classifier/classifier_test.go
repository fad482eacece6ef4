package classifier

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestVectorizerFit(t *testing.T) {
	v := NewVectorizer()
	if err := v.Fit([]string{"sunny walk happy", "rain Cold walk x"}); err != nil {
		t.Fatalf("fitting vectorizer: %v", err)
	}

	want := []string{"cold", "happy", "rain", "sunny", "walk"}
	if got := v.Vocabulary(); !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary() = %v, want %v", got, want)
	}
	if v.Len() != 5 {
		t.Errorf("Len() = %d, want 5", v.Len())
	}
}

func TestVectorizerTransform(t *testing.T) {
	v := NewVectorizer()
	if err := v.Fit([]string{"walk sunny", "rain"}); err != nil {
		t.Fatalf("fitting vectorizer: %v", err)
	}

	got := v.Transform("walk walk unknown rain")
	want := []float64{1, 0, 2} // rain, sunny, walk
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Transform() = %v, want %v", got, want)
	}

	if got := v.Transform(""); !reflect.DeepEqual(got, []float64{0, 0, 0}) {
		t.Errorf("Transform(\"\") = %v, want zeros", got)
	}
}

func TestVectorizerEmptyVocabulary(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"no docs", nil},
		{"empty docs", []string{"", " "}},
		{"single letters", []string{"a b c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVectorizer()
			if err := v.Fit(tt.docs); !errors.Is(err, ErrEmptyVocabulary) {
				t.Errorf("Fit(%v) error = %v, want ErrEmptyVocabulary", tt.docs, err)
			}
			if v.Fitted() {
				t.Error("vectorizer should not report fitted")
			}
		})
	}
}

func TestNaiveBayesPredict(t *testing.T) {
	v := NewVectorizer()
	X, err := v.FitTransform([]string{"sunny walk", "sunny park", "rain cold", "cold tired"})
	if err != nil {
		t.Fatalf("fit transform: %v", err)
	}
	y := []string{"happy", "happy", "sad", "sad"}

	nb := NewNaiveBayes(DefaultAlpha)
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("fitting: %v", err)
	}

	if got := nb.Classes(); !reflect.DeepEqual(got, []string{"happy", "sad"}) {
		t.Errorf("Classes() = %v", got)
	}

	tests := []struct {
		doc  string
		want string
	}{
		{"sunny", "happy"},
		{"park walk", "happy"},
		{"cold", "sad"},
		{"tired rain", "sad"},
	}
	for _, tt := range tests {
		got, err := nb.Predict(v.Transform(tt.doc))
		if err != nil {
			t.Fatalf("Predict(%q): %v", tt.doc, err)
		}
		if got != tt.want {
			t.Errorf("Predict(%q) = %q, want %q", tt.doc, got, tt.want)
		}
	}
}

func TestNaiveBayesLogProbabilities(t *testing.T) {
	// Two features, one class: counts [2, 0] with alpha 1 gives (3/4, 1/4)
	nb := NewNaiveBayes(1.0)
	if err := nb.Fit([][]float64{{2, 0}}, []string{"glad"}); err != nil {
		t.Fatalf("fitting: %v", err)
	}
	scores, err := nb.Scores([]float64{1, 1})
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	want := math.Log(0.75) + math.Log(0.25)
	if math.Abs(scores[0]-want) > 1e-12 {
		t.Errorf("score = %v, want %v", scores[0], want)
	}
}

func TestNaiveBayesSingleClass(t *testing.T) {
	nb := NewNaiveBayes(DefaultAlpha)
	if err := nb.Fit([][]float64{{1, 0}, {0, 1}}, []string{"neutral", "neutral"}); err != nil {
		t.Fatalf("fitting: %v", err)
	}
	for _, x := range [][]float64{{0, 0}, {5, 0}, {0, 3}} {
		got, err := nb.Predict(x)
		if err != nil {
			t.Fatalf("predicting: %v", err)
		}
		if got != "neutral" {
			t.Errorf("Predict(%v) = %q, want neutral", x, got)
		}
	}
}

func TestNaiveBayesTieBreaksToFirstClass(t *testing.T) {
	nb := NewNaiveBayes(DefaultAlpha)
	if err := nb.Fit([][]float64{{1, 0}, {0, 1}}, []string{"sad", "happy"}); err != nil {
		t.Fatalf("fitting: %v", err)
	}
	got, err := nb.Predict([]float64{0, 0})
	if err != nil {
		t.Fatalf("predicting: %v", err)
	}
	if got != "happy" {
		t.Errorf("tie should resolve to happy, got %q", got)
	}
}

func TestNaiveBayesErrors(t *testing.T) {
	nb := NewNaiveBayes(DefaultAlpha)

	if _, err := nb.Predict([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict before Fit: error = %v, want ErrNotFitted", err)
	}
	if err := nb.Fit(nil, nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("Fit(nil): error = %v, want ErrNoSamples", err)
	}
	if err := nb.Fit([][]float64{{1}}, []string{"a", "b"}); !errors.Is(err, ErrShapeMatch) {
		t.Errorf("Fit mismatch: error = %v, want ErrShapeMatch", err)
	}
	if err := nb.Fit([][]float64{{1, 2}}, []string{"a"}); err != nil {
		t.Fatalf("fitting: %v", err)
	}
	if _, err := nb.Predict([]float64{1}); !errors.Is(err, ErrShapeMatch) {
		t.Errorf("Predict wrong width: error = %v, want ErrShapeMatch", err)
	}
}
