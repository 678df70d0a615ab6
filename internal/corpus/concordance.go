package corpus

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// ErrPattern is returned when a concordance motif is not a valid pattern
var ErrPattern = errors.New("invalid pattern")

// Match is one occurrence of a motif with its surrounding text
type Match struct {
	DocumentID int    `json:"document_id"`
	Left       string `json:"left"`
	Match      string `json:"match"`
	Right      string `json:"right"`
}

// ConcordanceOptions controls how a motif is interpreted
type ConcordanceOptions struct {
	// Regex treats the motif as a regular expression instead of a literal
	Regex           bool
	CaseInsensitive bool
}

// Concordance finds every occurrence of motif in every document, returning
// up to width runes of context on each side. Documents are scanned one at a
// time in id order, so each match already knows its document.
func (s *Snapshot) Concordance(motif string, width int, opts ConcordanceOptions) ([]Match, error) {
	if motif == "" {
		return nil, nil
	}
	if width < 0 {
		width = 0
	}

	pattern := motif
	if !opts.Regex {
		pattern = regexp.QuoteMeta(motif)
	}
	if opts.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPattern, err)
	}

	var matches []Match
	for _, doc := range s.docs {
		for _, loc := range re.FindAllStringIndex(doc.Text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			matches = append(matches, Match{
				DocumentID: doc.ID,
				Left:       lastRunes(doc.Text[:loc[0]], width),
				Match:      doc.Text[loc[0]:loc[1]],
				Right:      firstRunes(doc.Text[loc[1]:], width),
			})
		}
	}
	return matches, nil
}

func firstRunes(s string, n int) string {
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}

func lastRunes(s string, n int) string {
	i := len(s)
	for count := 0; count < n && i > 0; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
