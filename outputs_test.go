package skilltax

import (
	"cmp"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONKeepsGroupOrder(t *testing.T) {
	dir := t.TempDir()
	classes := map[int][]TermScore{
		10: {{Term: "swim", Score: 0.3}},
		2:  {{Term: "bake", Score: 0.2}},
		1:  {{Term: "code", Score: 0.1}},
	}
	require.NoError(t, writeJSON(dir, classWordsPath, orderedTerms(classes, cmp.Compare[int])))
	data, err := os.ReadFile(filepath.Join(dir, classWordsPath))
	require.NoError(t, err)
	text := string(data)
	require.Less(t, strings.Index(text, `"1"`), strings.Index(text, `"2"`))
	require.Less(t, strings.Index(text, `"2"`), strings.Index(text, `"10"`))

	var decoded map[int][]TermScore
	require.NoError(t, readJSON(dir, classWordsPath, &decoded))
	require.Equal(t, classes, decoded)

	subclasses := map[Label][]TermScore{
		{ClassID: 1, SubclassID: 10}: {{Term: "a", Score: 1}},
		{ClassID: 1, SubclassID: 2}:  {{Term: "b", Score: 1}},
	}
	require.NoError(t, writeJSON(dir, subclassWordsPath, orderedTerms(subclasses, Label.Compare)))
	data, err = os.ReadFile(filepath.Join(dir, subclassWordsPath))
	require.NoError(t, err)
	require.Less(t, strings.Index(string(data), `"1.2"`), strings.Index(string(data), `"1.10"`))
}
