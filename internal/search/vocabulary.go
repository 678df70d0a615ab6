package search

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// Vocabulary maps terms to dense column indices in lexical order and keeps,
// per term, the total occurrence count and the set of rows containing it.
type Vocabulary struct {
	terms    []string
	index    map[string]int
	total    []int
	postings []*roaring.Bitmap
}

// Len returns the number of terms
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Index returns the column of term
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at column i
func (v *Vocabulary) Term(i int) string {
	return v.terms[i]
}

// Terms returns all terms in column order
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// DocFreq returns the number of documents containing the term at column i
func (v *Vocabulary) DocFreq(i int) int {
	return int(v.postings[i].GetCardinality())
}

// TotalCount returns the occurrences of the term at column i across all
// documents
func (v *Vocabulary) TotalCount(i int) int {
	return v.total[i]
}

// termCounts is the token multiset of one document
type termCounts map[string]int

// countDocuments tokenizes every document. With more than one worker the
// documents are processed concurrently; each result lands in its own slot
// so the output does not depend on scheduling.
func countDocuments(docs []corpus.Document, tok *Tokenizer, workers int) ([]termCounts, error) {
	counts := make([]termCounts, len(docs))
	count := func(i int) {
		tc := make(termCounts)
		for _, t := range tok.Tokenize(docs[i].Text) {
			tc[t]++
		}
		counts[i] = tc
	}

	if workers <= 1 {
		for i := range docs {
			count(i)
		}
		return counts, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range docs {
		g.Go(func() error {
			count(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// buildVocabulary merges per-document counts into a vocabulary. Row i of
// the postings is document i of counts.
func buildVocabulary(counts []termCounts) *Vocabulary {
	totals := make(map[string]int)
	for _, tc := range counts {
		for term, n := range tc {
			totals[term] += n
		}
	}

	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vocabulary{
		terms:    terms,
		index:    make(map[string]int, len(terms)),
		total:    make([]int, len(terms)),
		postings: make([]*roaring.Bitmap, len(terms)),
	}
	for i, term := range terms {
		v.index[term] = i
		v.total[i] = totals[term]
		v.postings[i] = roaring.New()
	}

	for row, tc := range counts {
		for term := range tc {
			v.postings[v.index[term]].Add(uint32(row))
		}
	}
	for _, p := range v.postings {
		p.RunOptimize()
	}
	return v
}
