package textproc

import (
	"sync"

	"github.com/jdkato/prose/tokenize"
)

var (
	sentenceOnce sync.Once
	sentences    *tokenize.PunktSentenceTokenizer
	words        = tokenize.NewTreebankWordTokenizer()
)

func sentenceTokenizer() *tokenize.PunktSentenceTokenizer {
	sentenceOnce.Do(func() {
		sentences = tokenize.NewPunktSentenceTokenizer()
	})
	return sentences
}

// Tokenize splits text into sentences with the English punkt model and each
// sentence into Penn Treebank word tokens. Punctuation becomes its own token
// except a period inside a sentence, so abbreviations such as "mr." stay
// whole. Contractions are split ("can't" -> "ca", "n't"; "cannot" -> "can",
// "not").
func Tokenize(text string) []string {
	var tokens []string
	for _, sentence := range sentenceTokenizer().Tokenize(text) {
		tokens = append(tokens, words.Tokenize(sentence)...)
	}
	return tokens
}
