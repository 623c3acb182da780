package skilltax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizerWords(t *testing.T) {
	tok := DefaultNamingConfig().tokenizer()
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases", "Manage PROJECT Budgets", []string{"manage", "project", "budgets"}},
		{"drops stop words", "the art of the deal", []string{"art", "deal"}},
		{"drops single characters", "a b c++ go", []string{}},
		{"keeps digits and underscores", "iso 9001 snake_case", []string{"iso", "9001", "snake_case"}},
		{"splits punctuation", "design, build; test.", []string{"design", "build", "test"}},
		{"unicode letters", "Ärzte über Öl", []string{"ärzte", "über", "öl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tok.Words(tt.input))
		})
	}
}

func TestTokenizerTerms(t *testing.T) {
	tok := Tokenizer{NGramMin: 1, NGramMax: 2}
	require.Equal(t,
		[]string{"data", "science", "skills", "data science", "science skills"},
		tok.Terms("data science skills"))

	tok = Tokenizer{NGramMin: 2, NGramMax: 2}
	require.Empty(t, tok.Terms("data"))
}
