package textproc

// Stopwords is the fixed English stop-word set removed during normalization.
// Entries with apostrophes never survive the alphabetic filter; they are kept
// so the set matches the standard English list word for word.
var Stopwords = map[string]bool{
	// Pronouns
	"i": true, "me": true, "my": true, "myself": true,
	"we": true, "our": true, "ours": true, "ourselves": true,
	"you": true, "you're": true, "you've": true, "you'll": true, "you'd": true,
	"your": true, "yours": true, "yourself": true, "yourselves": true,
	"he": true, "him": true, "his": true, "himself": true,
	"she": true, "she's": true, "her": true, "hers": true, "herself": true,
	"it": true, "it's": true, "its": true, "itself": true,
	"they": true, "them": true, "their": true, "theirs": true, "themselves": true,
	"what": true, "which": true, "who": true, "whom": true,
	"this": true, "that": true, "that'll": true, "these": true, "those": true,

	// Be / have / do
	"am": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "having": true,
	"do": true, "does": true, "did": true, "doing": true,

	// Articles and conjunctions
	"a": true, "an": true, "the": true,
	"and": true, "but": true, "if": true, "or": true, "because": true,
	"as": true, "until": true, "while": true,

	// Prepositions
	"of": true, "at": true, "by": true, "for": true, "with": true,
	"about": true, "against": true, "between": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true,
	"down": true, "in": true, "out": true, "on": true, "off": true,
	"over": true, "under": true,

	// Adverbs and determiners
	"again": true, "further": true, "then": true, "once": true,
	"here": true, "there": true, "when": true, "where": true, "why": true,
	"how": true, "all": true, "any": true, "both": true, "each": true,
	"few": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "no": true, "nor": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "can": true, "will": true, "just": true,
	"should": true, "should've": true, "now": true,

	// Contraction fragments
	"s": true, "t": true, "d": true, "ll": true, "m": true, "o": true,
	"re": true, "ve": true, "y": true, "ma": true,
	"don": true, "don't": true, "ain": true,
	"aren": true, "aren't": true, "couldn": true, "couldn't": true,
	"didn": true, "didn't": true, "doesn": true, "doesn't": true,
	"hadn": true, "hadn't": true, "hasn": true, "hasn't": true,
	"haven": true, "haven't": true, "isn": true, "isn't": true,
	"mightn": true, "mightn't": true, "mustn": true, "mustn't": true,
	"needn": true, "needn't": true, "shan": true, "shan't": true,
	"shouldn": true, "shouldn't": true, "wasn": true, "wasn't": true,
	"weren": true, "weren't": true, "won": true, "won't": true,
	"wouldn": true, "wouldn't": true,
}

// IsStopword returns true if the word is a stopword
func IsStopword(word string) bool {
	return Stopwords[word]
}
