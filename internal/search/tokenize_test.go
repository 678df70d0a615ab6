package search_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowledge-engine/docsearch/internal/search"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Punctuation and digits", "Hello,\tWorld!\n123 l'été", "hello world l'été"},
		{"Collapses whitespace", "  a \r\n\t  b  ", "a b"},
		{"Keeps accented letters", "Œuvre NAÏVE Çà", "œuvre naïve çà"},
		{"Drops other scripts", "naïve Ωmega", "naïve mega"},
		{"Composes decomposed accents", "E\u0301te\u0301", "\u00e9t\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, search.Normalize(tt.input))
		})
	}
}

func TestTokenize(t *testing.T) {
	tokens := search.Tokenize("Don't STOP -- it's 42 cafés!")
	assert.Equal(t, []string{"don't", "stop", "it's", "cafés"}, tokens)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, search.Tokenize(""))
	assert.Empty(t, search.Tokenize("   "))
	assert.Empty(t, search.Tokenize("12 34 !!"))
	assert.Empty(t, search.Tokenize(" ' '' "))
}

func TestTokenizer_CustomNormalizer(t *testing.T) {
	tok := search.NewTokenizer(strings.ToLower)
	assert.Equal(t, []string{"hello", "world"}, tok.Tokenize("Hello-World"))
}

func TestTokenizer_NilNormalizerFallsBack(t *testing.T) {
	tok := search.NewTokenizer(nil)
	assert.Equal(t, search.Tokenize("A b, C"), tok.Tokenize("A b, C"))
}
