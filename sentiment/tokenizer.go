package sentiment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Terms shorter than this many runes carry no sentiment signal and are dropped.
const minTermRunes = 3

var lowercase = cases.Lower(language.Und)

// Tokenize normalizes text into terms: the text is lower-cased, every rune
// that is not a letter, digit, or whitespace is stripped, and the remainder is
// split on whitespace runs. Terms shorter than three runes are discarded.
// Duplicates are kept in source order since term frequency matters to the
// classifier. Degenerate input yields no terms.
func Tokenize(text string) []string {
	lowered := lowercase.String(text)

	var cleaned strings.Builder
	cleaned.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			cleaned.WriteRune(r)
		}
	}

	var terms []string
	for _, field := range strings.Fields(cleaned.String()) {
		if utf8.RuneCountInString(field) >= minTermRunes {
			terms = append(terms, field)
		}
	}
	return terms
}

// StemmingTokenizer returns a tokenizer that reduces Tokenize's terms to their
// snowball stems for the named language. A term the stemmer rejects is kept
// as-is, so the output length always matches the unstemmed tokenization.
func StemmingTokenizer(lang string) func(string) []string {
	return func(text string) []string {
		terms := Tokenize(text)
		for i, term := range terms {
			if stemmed, err := snowball.Stem(term, lang, false); err == nil && stemmed != "" {
				terms[i] = stemmed
			}
		}
		return terms
	}
}
