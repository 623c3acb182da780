package skilltax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const minTokenRunes = 2

// Tokenizer turns text into terms: NFC-normalised, lower-cased words of at
// least two letters, digits or underscores, stop words removed, joined into
// n-grams of NGramMin..NGramMax words. The zero range yields unigrams;
// NamingConfig.Validate rejects it before a tokenizer is built.
type Tokenizer struct {
	NGramMin  int
	NGramMax  int
	StopWords map[string]struct{}
}

// Words returns the filtered unigrams of text.
func (t Tokenizer) Words(text string) []string {
	lower := cases.Lower(language.Und).String(norm.NFC.String(text))
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenRunes {
			continue
		}
		if _, stop := t.StopWords[f]; stop {
			continue
		}
		words = append(words, f)
	}
	return words
}

// Terms returns every n-gram of the filtered words, shortest first.
func (t Tokenizer) Terms(text string) []string {
	words := t.Words(text)
	lo, hi := t.NGramMin, t.NGramMax
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	if lo == 1 && hi == 1 {
		return words
	}
	var terms []string
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(words); i++ {
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}
