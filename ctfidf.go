package skilltax

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

const (
	defaultTopN = 20

	StopWordsEnglish = "english"
	StopWordsNone    = "none"
)

// NamingConfig configures class-TF-IDF term extraction.
type NamingConfig struct {
	TopN           int      `mapstructure:"top_n" yaml:"top_n"`
	NGramMin       int      `mapstructure:"ngram_min" yaml:"ngram_min"`
	NGramMax       int      `mapstructure:"ngram_max" yaml:"ngram_max"`
	StopWords      string   `mapstructure:"stop_words" yaml:"stop_words"`
	ExtraStopWords []string `mapstructure:"extra_stop_words" yaml:"extra_stop_words"`
	// TotalItems is the IDF numerator. Zero means the number of texts.
	TotalItems int `mapstructure:"-" yaml:"-"`
}

// DefaultNamingConfig returns top 20 English unigrams.
func DefaultNamingConfig() NamingConfig {
	return NamingConfig{
		TopN:      defaultTopN,
		NGramMin:  1,
		NGramMax:  1,
		StopWords: StopWordsEnglish,
	}
}

// Validate rejects a negative top_n, an n-gram range starting below one
// and an inverted n-gram range.
func (c NamingConfig) Validate() error {
	switch {
	case c.TopN < 0:
		return fmt.Errorf("top_n must not be negative: %w", ErrConfiguration)
	case c.NGramMin < 1:
		return fmt.Errorf("ngram_min must be at least 1, got %d: %w", c.NGramMin, ErrConfiguration)
	case c.NGramMax < c.NGramMin:
		return fmt.Errorf("ngram range (%d, %d) is inverted: %w", c.NGramMin, c.NGramMax, ErrConfiguration)
	case c.TotalItems < 0:
		return fmt.Errorf("total items must not be negative: %w", ErrConfiguration)
	}
	switch c.StopWords {
	case "", StopWordsEnglish, StopWordsNone:
	default:
		return fmt.Errorf("unknown stop word list %q: %w", c.StopWords, ErrConfiguration)
	}
	return nil
}

func (c NamingConfig) tokenizer() Tokenizer {
	stop := make(map[string]struct{})
	if c.StopWords != StopWordsNone {
		for w := range englishStopWords {
			stop[w] = struct{}{}
		}
	}
	for _, w := range c.ExtraStopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return Tokenizer{NGramMin: c.NGramMin, NGramMax: c.NGramMax, StopWords: stop}
}

// TermScore is one discriminative term of a group.
// It is encoded in JSON as a [term, score] pair.
type TermScore struct {
	Term  string
	Score float64
}

func (t TermScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Term, t.Score})
}

func (t *TermScore) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("term score must be a [term, score] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &t.Term); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &t.Score)
}

func cmpTermScore(a, b TermScore) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Term, b.Term)
}

// TopTerms computes class-TF-IDF over one pseudo-document per group and
// returns the highest scoring terms of every group.
//
// texts[i] belongs to groups[i]. Term frequency is normalised by the group's
// term count; the inverse document frequency is
// log(total items / occurrences of the term across all groups), where the
// total is the corpus item count rather than the group count. Negative IDF
// values are clamped to zero. Terms are ranked over the whole vocabulary,
// by score descending then lexicographically.
func TopTerms[K comparable](texts []string, groups []K, cfg NamingConfig) (map[K][]TermScore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(texts) != len(groups) {
		return nil, fmt.Errorf("%d texts for %d group ids: %w", len(texts), len(groups), ErrConfiguration)
	}
	if len(texts) == 0 {
		return map[K][]TermScore{}, nil
	}
	topN := cfg.TopN
	if topN == 0 {
		topN = defaultTopN
	}
	totalItems := cfg.TotalItems
	if totalItems == 0 {
		totalItems = len(texts)
	}

	order, docs := pseudoDocuments(texts, groups)

	tok := cfg.tokenizer()
	counts := make([]map[string]int, len(order))
	totals := make([]int, len(order))
	occurrences := make(map[string]int)
	for gi, g := range order {
		terms := tok.Terms(docs[gi])
		if len(terms) == 0 {
			return nil, fmt.Errorf("group %v has no terms: %w", g, ErrEmptyGroup)
		}
		counts[gi] = make(map[string]int)
		for _, term := range terms {
			counts[gi][term]++
			occurrences[term]++
		}
		totals[gi] = len(terms)
	}

	vocab := make([]string, 0, len(occurrences))
	for term := range occurrences {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	idf := make([]float64, len(vocab))
	for wi, term := range vocab {
		idf[wi] = math.Max(0, math.Log(float64(totalItems)/float64(occurrences[term])))
	}

	result := make(map[K][]TermScore, len(order))
	for gi, g := range order {
		scores := make([]TermScore, len(vocab))
		for wi, term := range vocab {
			tf := float64(counts[gi][term]) / float64(totals[gi])
			scores[wi] = TermScore{Term: term, Score: tf * idf[wi]}
		}
		slices.SortStableFunc(scores, cmpTermScore)
		if len(scores) > topN {
			scores = scores[:topN]
		}
		result[g] = scores
	}
	return result, nil
}

// pseudoDocuments joins the texts of each group with single spaces, keeping
// groups in order of first appearance.
func pseudoDocuments[K comparable](texts []string, groups []K) ([]K, []string) {
	index := make(map[K]int)
	var order []K
	var parts [][]string
	for i, g := range groups {
		gi, ok := index[g]
		if !ok {
			gi = len(order)
			index[g] = gi
			order = append(order, g)
			parts = append(parts, nil)
		}
		parts[gi] = append(parts[gi], texts[i])
	}
	docs := make([]string, len(parts))
	for i, p := range parts {
		docs[i] = strings.Join(p, " ")
	}
	return order, docs
}

// SortedGroups returns the keys of a TopTerms result ordered by compare.
func SortedGroups[K comparable](terms map[K][]TermScore, compare func(a, b K) int) []K {
	keys := make([]K, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}
