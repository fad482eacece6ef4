// Package classifier implements the bag-of-words vectorizer and the
// multinomial naive Bayes model behind mood prediction.
package classifier

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyVocabulary is returned when a corpus contains no usable terms
var ErrEmptyVocabulary = errors.New("empty vocabulary; documents contain no terms")

// terms are runs of at least two word characters
var termRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

func analyze(doc string) []string {
	return termRegex.FindAllString(strings.ToLower(doc), -1)
}

// Vectorizer maps documents to term-count vectors over a fixed vocabulary.
// The vocabulary is sorted, so feature indices are stable for a given corpus.
type Vectorizer struct {
	vocab []string
	index map[string]int
}

// NewVectorizer returns an unfitted vectorizer
func NewVectorizer() *Vectorizer {
	return &Vectorizer{}
}

// Fit builds the vocabulary from scratch
func (v *Vectorizer) Fit(docs []string) error {
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, term := range analyze(doc) {
			seen[term] = true
		}
	}
	if len(seen) == 0 {
		return ErrEmptyVocabulary
	}

	vocab := make([]string, 0, len(seen))
	for term := range seen {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}
	v.vocab = vocab
	v.index = index
	return nil
}

// FitTransform fits the vocabulary and returns the count matrix for docs
func (v *Vectorizer) FitTransform(docs []string) ([][]float64, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	X := make([][]float64, len(docs))
	for i, doc := range docs {
		X[i] = v.Transform(doc)
	}
	return X, nil
}

// Transform counts vocabulary terms in doc. Unknown terms are ignored.
func (v *Vectorizer) Transform(doc string) []float64 {
	row := make([]float64, len(v.vocab))
	for _, term := range analyze(doc) {
		if i, ok := v.index[term]; ok {
			row[i]++
		}
	}
	return row
}

// Vocabulary returns the sorted feature names
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.vocab))
	copy(out, v.vocab)
	return out
}

// Len is the number of features
func (v *Vectorizer) Len() int {
	return len(v.vocab)
}

// Fitted reports whether Fit has succeeded
func (v *Vectorizer) Fitted() bool {
	return len(v.vocab) > 0
}
