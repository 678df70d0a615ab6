package search

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// SearchResult holds a matching document and its score
type SearchResult struct {
	DocumentID int         `json:"document_id"`
	Score      float64     `json:"score"`
	Title      string      `json:"title"`
	Source     corpus.Kind `json:"source"`
	URL        string      `json:"url,omitempty"`
	Snippet    string      `json:"snippet,omitempty"`
}

type searchConfig struct {
	snippetWidth int
}

// SearchOption adjusts a single search call
type SearchOption func(*searchConfig)

// WithSnippets attaches to each result the first occurrence of the query
// text in the document, with width runes of context on both sides
func WithSnippets(width int) SearchOption {
	return func(c *searchConfig) {
		c.snippetWidth = width
	}
}

// Search ranks documents against a free-text query and returns at most
// maxResults of them, best first. Documents scoring zero are never
// returned, so the result can be shorter than maxResults.
func (ix *Index) Search(query string, maxResults int, opts ...SearchOption) []SearchResult {
	return ix.search(ix.Vectorize(query), query, maxResults, opts)
}

// SearchKeywords is Search for a query given as separate keywords
func (ix *Index) SearchKeywords(keywords []string, maxResults int, opts ...SearchOption) []SearchResult {
	return ix.search(ix.VectorizeKeywords(keywords), strings.Join(keywords, " "), maxResults, opts)
}

// Scores returns the cosine score of every indexed document for query,
// keyed by document id. Documents sharing no weighted term score 0.
func (ix *Index) Scores(query string) map[int]float64 {
	q := ix.Vectorize(query)
	qnorm := q.Norm()
	scores := make(map[int]float64, len(ix.docs))
	for row, doc := range ix.docs {
		scores[doc.ID] = ix.cosine(q, qnorm, row)
	}
	return scores
}

type scoredRow struct {
	row   int
	score float64
}

func (ix *Index) search(q QueryVector, motif string, maxResults int, opts []SearchOption) []SearchResult {
	var cfg searchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ranked := ix.rank(q, maxResults)
	if len(ranked) == 0 {
		return []SearchResult{}
	}

	var snippets map[int]string
	if cfg.snippetWidth > 0 {
		motifs := append([]string{motif}, ix.tokenizer.Tokenize(motif)...)
		snippets = ix.buildSnippets(motifs, cfg.snippetWidth)
	}

	results := make([]SearchResult, len(ranked))
	for i, s := range ranked {
		doc := ix.docs[s.row]
		results[i] = SearchResult{
			DocumentID: doc.ID,
			Score:      s.score,
			Title:      doc.Title,
			Source:     doc.Kind,
			URL:        doc.URL,
			Snippet:    snippets[doc.ID],
		}
	}
	return results
}

// rank scores only the rows sharing at least one term with q, keeps those
// scoring above zero and orders them by score, then by row.
func (ix *Index) rank(q QueryVector, maxResults int) []scoredRow {
	if maxResults <= 0 || len(q) == 0 {
		return nil
	}
	qnorm := q.Norm()
	if qnorm == 0 {
		return nil
	}

	postings := make([]*roaring.Bitmap, len(q))
	for i, e := range q {
		postings[i] = ix.vocab.postings[e.Col]
	}
	candidates := roaring.FastOr(postings...)

	ranked := make([]scoredRow, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		row := int(it.Next())
		if score := ix.cosine(q, qnorm, row); score > 0 {
			ranked = append(ranked, scoredRow{row: row, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].row < ranked[j].row
	})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}

// cosine merges the sorted query entries with the sorted cells of row
func (ix *Index) cosine(q QueryVector, qnorm float64, row int) float64 {
	dnorm := ix.weights.Norms[row]
	if qnorm == 0 || dnorm == 0 {
		return 0
	}

	var dot float64
	if ix.useTFIDF {
		cols, vals := ix.weights.TFIDF.Row(row)
		dot = mergeDot(q, cols, vals)
	} else {
		cols, vals := ix.tf.Row(row)
		dot = mergeDot(q, cols, vals)
	}

	score := dot / (qnorm * dnorm)
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

func mergeDot[T Number](q QueryVector, cols []int, vals []T) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(q) && j < len(cols) {
		switch {
		case q[i].Col == cols[j]:
			dot += q[i].Weight * float64(vals[j])
			i++
			j++
		case q[i].Col < cols[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// buildSnippets keeps, per document, the first match of the earliest motif
// that occurs in it. A motif the concordancer rejects is skipped.
func (ix *Index) buildSnippets(motifs []string, width int) map[int]string {
	snippets := make(map[int]string)
	for _, motif := range motifs {
		matches, err := ix.snippets.Concordance(motif, width, corpus.ConcordanceOptions{CaseInsensitive: true})
		if err != nil {
			ix.logger.WithError(err).WithField("motif", motif).Debug("Snippet lookup failed")
			continue
		}
		for _, m := range matches {
			if _, ok := snippets[m.DocumentID]; ok {
				continue
			}
			snippets[m.DocumentID] = m.Left + m.Match + m.Right
		}
	}
	return snippets
}
