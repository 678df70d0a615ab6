package corpus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

func TestConcordance_Literal(t *testing.T) {
	snap := corpus.NewSnapshot("c", []corpus.Document{
		{ID: 1, Text: "Basketball is fun. I love basketball!"},
		{ID: 2, Text: "Nothing here"},
		{ID: 3, Text: "un café au basketball"},
	})

	matches, err := snap.Concordance("basketball", 5, corpus.ConcordanceOptions{CaseInsensitive: true})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, corpus.Match{DocumentID: 1, Left: "", Match: "Basketball", Right: " is f"}, matches[0])
	assert.Equal(t, corpus.Match{DocumentID: 1, Left: "love ", Match: "basketball", Right: "!"}, matches[1])
	assert.Equal(t, corpus.Match{DocumentID: 3, Left: "é au ", Match: "basketball", Right: ""}, matches[2])
}

func TestConcordance_CaseSensitive(t *testing.T) {
	snap := corpus.NewSnapshot("c", []corpus.Document{{ID: 1, Text: "Go go GO"}})

	matches, err := snap.Concordance("go", 0, corpus.ConcordanceOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "go", matches[0].Match)
}

func TestConcordance_LiteralEscapesMetacharacters(t *testing.T) {
	snap := corpus.NewSnapshot("c", []corpus.Document{{ID: 1, Text: "cost (a+b) total"}})

	matches, err := snap.Concordance("(a+b)", 2, corpus.ConcordanceOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "t ", matches[0].Left)
}

func TestConcordance_Regex(t *testing.T) {
	snap := corpus.NewSnapshot("c", []corpus.Document{{ID: 4, Text: "player players playing"}})

	matches, err := snap.Concordance(`play\w*`, 0, corpus.ConcordanceOptions{Regex: true})
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	_, err = snap.Concordance(`play(`, 0, corpus.ConcordanceOptions{Regex: true})
	assert.ErrorIs(t, err, corpus.ErrPattern)
}

func TestConcordance_EmptyMotif(t *testing.T) {
	snap := corpus.NewSnapshot("c", []corpus.Document{{ID: 1, Text: "text"}})
	matches, err := snap.Concordance("", 3, corpus.ConcordanceOptions{})
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"RFC3339 Zulu", "2024-03-01T10:20:30Z", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"No zone", "2024-03-01T10:20:30", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"Space separated", "2024-03-01 10:20:30", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"Date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"Unix seconds", "1709288430", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := corpus.ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %v", got)
		})
	}

	_, err := corpus.ParseDate("")
	assert.Error(t, err)
	_, err = corpus.ParseDate("yesterday")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", corpus.FormatDate(time.Time{}))
	assert.Equal(t, "2024-03-01T10:20:30Z", corpus.FormatDate(time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)))
}
