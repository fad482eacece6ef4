package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Errors returned by NaiveBayes
var (
	ErrNoSamples  = errors.New("no training samples")
	ErrNotFitted  = errors.New("classifier not fitted")
	ErrShapeMatch = errors.New("feature and label counts differ")
)

// DefaultAlpha is the additive (Laplace) smoothing parameter
const DefaultAlpha = 1.0

// NaiveBayes is a multinomial naive Bayes classifier over count features
type NaiveBayes struct {
	alpha          float64
	classes        []string
	classLogPrior  []float64
	featureLogProb [][]float64
}

// NewNaiveBayes creates an unfitted classifier with the given smoothing
func NewNaiveBayes(alpha float64) *NaiveBayes {
	return &NaiveBayes{alpha: alpha}
}

// Fit estimates class priors and per-class feature probabilities.
// Classes are kept in sorted order.
func (nb *NaiveBayes) Fit(X [][]float64, y []string) error {
	if len(X) == 0 {
		return ErrNoSamples
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrShapeMatch, len(X), len(y))
	}
	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}

	classIndex := make(map[string]int)
	var classes []string
	for _, label := range y {
		if _, ok := classIndex[label]; !ok {
			classIndex[label] = 0
			classes = append(classes, label)
		}
	}
	sort.Strings(classes)
	for i, c := range classes {
		classIndex[c] = i
	}

	classCount := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, nFeatures)
	}
	for i, row := range X {
		ci := classIndex[y[i]]
		classCount[ci]++
		for j, v := range row {
			featureCount[ci][j] += v
		}
	}

	total := float64(len(y))
	logPrior := make([]float64, len(classes))
	logProb := make([][]float64, len(classes))
	for ci := range classes {
		logPrior[ci] = math.Log(classCount[ci] / total)

		smoothedTotal := nb.alpha * float64(nFeatures)
		for _, v := range featureCount[ci] {
			smoothedTotal += v
		}
		logProb[ci] = make([]float64, nFeatures)
		for j, v := range featureCount[ci] {
			logProb[ci][j] = math.Log((v + nb.alpha) / smoothedTotal)
		}
	}

	nb.classes = classes
	nb.classLogPrior = logPrior
	nb.featureLogProb = logProb
	return nil
}

// Scores returns the joint log likelihood of x for each class, in Classes() order
func (nb *NaiveBayes) Scores(x []float64) ([]float64, error) {
	if len(nb.classes) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != len(nb.featureLogProb[0]) {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShapeMatch, len(x), len(nb.featureLogProb[0]))
	}

	scores := make([]float64, len(nb.classes))
	for ci := range nb.classes {
		s := nb.classLogPrior[ci]
		for j, v := range x {
			if v != 0 {
				s += v * nb.featureLogProb[ci][j]
			}
		}
		scores[ci] = s
	}
	return scores, nil
}

// Predict returns the most likely class for x. Ties go to the first class
// in sorted order.
func (nb *NaiveBayes) Predict(x []float64) (string, error) {
	scores, err := nb.Scores(x)
	if err != nil {
		return "", err
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return nb.classes[best], nil
}

// Classes returns the sorted class labels seen during Fit
func (nb *NaiveBayes) Classes() []string {
	out := make([]string, len(nb.classes))
	copy(out, nb.classes)
	return out
}

// Fitted reports whether Fit has succeeded
func (nb *NaiveBayes) Fitted() bool {
	return len(nb.classes) > 0
}
