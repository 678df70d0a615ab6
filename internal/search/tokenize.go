package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeFunc turns raw text into the normalized form tokens are cut from
type NormalizeFunc func(string) string

// accented holds the Latin letters kept alongside a-z
const accented = "àâçéèêëîïôûùüÿñæœ"

var tokenPattern = regexp.MustCompile(`[a-z` + accented + `']+`)

func isKept(r rune) bool {
	return (r >= 'a' && r <= 'z') || r == '\'' || strings.ContainsRune(accented, r)
}

// Normalize lowercases text, turns every character other than a-z, the
// accented letters above and the apostrophe into a space, collapses runs of
// whitespace and trims. Text is NFC-composed first so an "e" followed by a
// combining acute accent is kept as "é".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(lower))
	space := true
	for _, r := range lower {
		if isKept(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokenizer cuts normalized text into word tokens. The same instance is
// used for documents and queries so both land in one term space.
type Tokenizer struct {
	normalize NormalizeFunc
}

// NewTokenizer returns a tokenizer using fn, or Normalize when fn is nil
func NewTokenizer(fn NormalizeFunc) *Tokenizer {
	if fn == nil {
		fn = Normalize
	}
	return &Tokenizer{normalize: fn}
}

// Tokenize returns the maximal runs of letters and apostrophes in the
// normalized text. Runs made only of apostrophes are dropped.
func (t *Tokenizer) Tokenize(text string) []string {
	normalized := t.normalize(text)
	if normalized == "" {
		return nil
	}
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(normalized, -1) {
		if strings.Trim(tok, "'") == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Tokenize splits text with the default normalizer
func Tokenize(text string) []string {
	return defaultTokenizer.Tokenize(text)
}

var defaultTokenizer = NewTokenizer(nil)
