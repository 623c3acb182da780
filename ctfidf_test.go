package skilltax

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func scoreOf(t *testing.T, terms []TermScore, term string) float64 {
	t.Helper()
	for _, ts := range terms {
		if ts.Term == term {
			return ts.Score
		}
	}
	t.Fatalf("term %q not ranked", term)
	return 0
}

func TestTopTermsSharedTermRanksLower(t *testing.T) {
	texts := []string{"python python java", "python ruby ruby"}
	groups := []int{0, 1}

	cfg := DefaultNamingConfig()
	top, err := TopTerms(texts, groups, cfg)
	require.NoError(t, err)
	require.Len(t, top, 2)
	// python occurs three times across two items: log(2/3) is clamped to zero.
	require.Zero(t, scoreOf(t, top[0], "python"))
	require.InDelta(t, math.Log(2)/3, scoreOf(t, top[0], "java"), 1e-12)
	require.Equal(t, "java", top[0][0].Term)

	cfg.TotalItems = 4
	top, err = TopTerms(texts, groups, cfg)
	require.NoError(t, err)
	require.Greater(t, scoreOf(t, top[0], "java"), scoreOf(t, top[0], "python"))
	require.Greater(t, scoreOf(t, top[1], "ruby"), scoreOf(t, top[1], "python"))
	require.InDelta(t, 2.0/3*math.Log(2), scoreOf(t, top[1], "ruby"), 1e-12)
	require.Equal(t, []string{"ruby", "python", "java"}, termsOf(top[1]))
}

func termsOf(scores []TermScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Term
	}
	return out
}

func TestTopTermsTermInEveryGroupScoresZero(t *testing.T) {
	top, err := TopTerms([]string{"data science", "data art"}, []string{"a", "b"}, DefaultNamingConfig())
	require.NoError(t, err)
	for _, g := range []string{"a", "b"} {
		require.Zero(t, scoreOf(t, top[g], "data"))
		for _, ts := range top[g] {
			require.GreaterOrEqual(t, ts.Score, 0.0)
		}
	}
	require.Equal(t, "science", top["a"][0].Term)
	require.Equal(t, "art", top["b"][0].Term)
}

func TestTopTermsGroupsItemsAndTruncates(t *testing.T) {
	texts := []string{
		"manage budgets", "negotiate contracts",
		"write software", "debug software", "review code",
	}
	groups := []Label{{0, 0}, {0, 0}, {1, 0}, {1, 0}, {1, 1}}
	cfg := DefaultNamingConfig()
	cfg.TopN = 2

	top, err := TopTerms(texts, groups, cfg)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for _, terms := range top {
		require.LessOrEqual(t, len(terms), 2)
		require.GreaterOrEqual(t, terms[0].Score, terms[1].Score)
	}
	require.Equal(t, "software", top[Label{1, 0}][0].Term)
	require.Equal(t, []Label{{0, 0}, {1, 0}, {1, 1}}, SortedGroups(top, Label.Compare))
}

func TestTopTermsTiesFollowVocabularyOrder(t *testing.T) {
	top, err := TopTerms([]string{"zebra yak xylophone", "other words"}, []int{0, 1}, NamingConfig{TopN: 3, NGramMin: 1, NGramMax: 1, TotalItems: 8})
	require.NoError(t, err)
	require.Equal(t, []string{"xylophone", "yak", "zebra"}, termsOf(top[0]))
}

func TestTopTermsBigrams(t *testing.T) {
	cfg := DefaultNamingConfig()
	cfg.NGramMax = 2
	top, err := TopTerms([]string{"machine learning models", "cooking recipes"}, []int{0, 1}, cfg)
	require.NoError(t, err)
	require.Contains(t, termsOf(top[0]), "machine learning")
}

func TestTopTermsErrors(t *testing.T) {
	_, err := TopTerms([]string{"the and of", "python"}, []int{0, 1}, DefaultNamingConfig())
	require.ErrorIs(t, err, ErrEmptyGroup)

	_, err = TopTerms([]string{"python"}, []int{0, 1}, DefaultNamingConfig())
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = TopTerms([]string{"python"}, []int{0}, NamingConfig{NGramMin: 2, NGramMax: 1})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = TopTerms([]string{"python"}, []int{0}, NamingConfig{NGramMin: 0, NGramMax: 1})
	require.ErrorContains(t, err, "ngram_min must be at least 1")
	require.ErrorIs(t, err, ErrConfiguration)

	cfg := DefaultNamingConfig()
	cfg.StopWords = "french"
	_, err = TopTerms([]string{"python"}, []int{0}, cfg)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestTermScoreJSON(t *testing.T) {
	data, err := json.Marshal([]TermScore{{Term: "python", Score: 0.5}})
	require.NoError(t, err)
	require.JSONEq(t, `[["python", 0.5]]`, string(data))

	var decoded []TermScore
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, []TermScore{{Term: "python", Score: 0.5}}, decoded)

	var bad TermScore
	require.Error(t, json.Unmarshal([]byte(`["python"]`), &bad))
}
