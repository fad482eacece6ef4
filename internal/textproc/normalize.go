// Package textproc turns raw diary text into the feature strings fed to the
// vectorizer.
package textproc

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/mrwolf/mood-server/internal/models"
)

// Normalize lowercases text, tokenizes it, keeps purely alphabetic tokens
// that are not stopwords and joins them with single spaces.
// Normalize(Normalize(x)) == Normalize(x) for any x.
func Normalize(text string) string {
	// cases.Caser is stateful, so one per call
	lowered := norm.NFC.String(cases.Lower(language.English).String(norm.NFC.String(text)))

	tokens := Tokenize(lowered)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isAlpha(tok) || IsStopword(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func isAlpha(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Compose appends the auxiliary mood label to normalized text.
// A nil or empty label leaves the text unchanged.
func Compose(normalized string, aux *models.Mood) string {
	if aux == nil {
		return normalized
	}
	return ComposeLabel(normalized, string(*aux))
}

// ComposeLabel is Compose for a raw label string
func ComposeLabel(normalized, label string) string {
	if label == "" {
		return normalized
	}
	return normalized + " " + label
}
