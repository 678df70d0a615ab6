package search

import (
	"math"
	"sort"
)

// Entry is one non-zero cell of a query vector
type Entry struct {
	Col    int
	Weight float64
}

// QueryVector is a sparse row over the index's term space, sorted by
// column. The zero vector is empty.
type QueryVector []Entry

// Norm returns the Euclidean norm of q
func (q QueryVector) Norm() float64 {
	var sum float64
	for _, e := range q {
		sum += e.Weight * e.Weight
	}
	return math.Sqrt(sum)
}

// Vectorize maps a free-text query into the index's term space
func (ix *Index) Vectorize(query string) QueryVector {
	return ix.vectorizeTokens(ix.tokenizer.Tokenize(query))
}

// VectorizeKeywords maps a list of keywords into the index's term space.
// Each keyword goes through the same normalization as document text.
func (ix *Index) VectorizeKeywords(keywords []string) QueryVector {
	var tokens []string
	for _, kw := range keywords {
		tokens = append(tokens, ix.tokenizer.Tokenize(kw)...)
	}
	return ix.vectorizeTokens(tokens)
}

// vectorizeTokens counts in-vocabulary tokens and weights them by IDF when
// TF-IDF ranking is on. Unknown tokens and zero weights are dropped.
func (ix *Index) vectorizeTokens(tokens []string) QueryVector {
	if len(tokens) == 0 || ix.vocab.Len() == 0 {
		return nil
	}

	counts := make(map[int]int)
	for _, t := range tokens {
		if col, ok := ix.vocab.Index(t); ok {
			counts[col]++
		}
	}

	q := make(QueryVector, 0, len(counts))
	for col, n := range counts {
		w := float64(n)
		if ix.useTFIDF {
			w *= ix.weights.IDF[col]
		}
		if w == 0 {
			continue
		}
		q = append(q, Entry{Col: col, Weight: w})
	}
	sort.Slice(q, func(i, j int) bool {
		return q[i].Col < q[j].Col
	})
	return q
}
