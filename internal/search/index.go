package search

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// ErrNilCollection is returned when an index is built without a collection
var ErrNilCollection = errors.New("search: nil collection")

// Options configures index construction
type Options struct {
	// UseTFIDF ranks on TF-IDF weighted vectors; when false, raw term
	// counts are ranked instead.
	UseTFIDF bool
	IDF      IDFMode
	// Normalize is applied to document and query text before tokenizing.
	// Nil selects Normalize.
	Normalize NormalizeFunc
	// Workers bounds the number of documents tokenized concurrently
	Workers int
	Logger  *logrus.Entry
}

// DefaultOptions returns TF-IDF ranking with the plain IDF formula
func DefaultOptions() Options {
	return Options{
		UseTFIDF: true,
		IDF:      IDFPlain,
		Workers:  1,
	}
}

// Concordancer finds a motif in the indexed documents and returns its
// surrounding context
type Concordancer interface {
	Concordance(motif string, width int, opts corpus.ConcordanceOptions) ([]corpus.Match, error)
}

// Index ranks the documents of one snapshot against free-text queries.
// Every structure is built in NewIndex and never modified afterwards, so an
// Index is safe for concurrent use. A changed collection needs a new Index.
type Index struct {
	docs      []corpus.Document
	tokenizer *Tokenizer
	vocab     *Vocabulary
	tf        *Matrix[int]
	weights   *Weights
	useTFIDF  bool
	idfMode   IDFMode
	snippets  Concordancer
	logger    *logrus.Entry
}

// NewIndex builds the vocabulary, term-frequency matrix, IDF vector and
// TF-IDF matrix of snap, in that order. An empty snapshot yields an index
// that never returns results.
func NewIndex(snap *corpus.Snapshot, opts Options) (*Index, error) {
	if snap == nil {
		return nil, fmt.Errorf("failed to build index: %w", ErrNilCollection)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "search_index")
	}

	start := time.Now()
	ix := &Index{
		docs:      snap.Documents(),
		tokenizer: NewTokenizer(opts.Normalize),
		useTFIDF:  opts.UseTFIDF,
		idfMode:   opts.IDF,
		snippets:  snap,
		logger:    logger,
	}

	counts, err := countDocuments(ix.docs, ix.tokenizer, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize documents: %w", err)
	}
	ix.vocab = buildVocabulary(counts)
	ix.tf = buildTF(ix.vocab, counts)
	ix.weights = buildWeights(ix.vocab, ix.tf, opts.IDF, opts.UseTFIDF)

	logger.WithFields(logrus.Fields{
		"documents": len(ix.docs),
		"terms":     ix.vocab.Len(),
		"nnz":       ix.tf.NNZ(),
		"tfidf":     opts.UseTFIDF,
		"idf":       opts.IDF.String(),
		"elapsed":   time.Since(start),
	}).Debug("Search index built")

	return ix, nil
}

// Len returns the number of indexed documents
func (ix *Index) Len() int {
	return len(ix.docs)
}

// DocumentIDs returns document ids in row order
func (ix *Index) DocumentIDs() []int {
	ids := make([]int, len(ix.docs))
	for i, doc := range ix.docs {
		ids[i] = doc.ID
	}
	return ids
}

// Vocabulary returns the term dictionary
func (ix *Index) Vocabulary() *Vocabulary {
	return ix.vocab
}

// TF returns the documents x terms count matrix
func (ix *Index) TF() *Matrix[int] {
	return ix.tf
}

// Weights returns the IDF vector, TF-IDF matrix and ranking norms
func (ix *Index) Weights() *Weights {
	return ix.weights
}

// UsesTFIDF reports whether ranking uses TF-IDF weighting
func (ix *Index) UsesTFIDF() bool {
	return ix.useTFIDF
}

// IDFMode returns the IDF formula the index was built with
func (ix *Index) IDFMode() IDFMode {
	return ix.idfMode
}

// TermStat describes one vocabulary term
type TermStat struct {
	Term       string  `json:"term"`
	TotalCount int     `json:"total_count"`
	DocFreq    int     `json:"doc_freq"`
	IDF        float64 `json:"idf"`
}

// TermStats returns up to limit terms ordered by total count, most frequent
// first, ties broken lexically. A negative limit returns every term.
func (ix *Index) TermStats(limit int) []TermStat {
	stats := make([]TermStat, ix.vocab.Len())
	for i := range stats {
		stats[i] = TermStat{
			Term:       ix.vocab.Term(i),
			TotalCount: ix.vocab.TotalCount(i),
			DocFreq:    ix.vocab.DocFreq(i),
			IDF:        ix.weights.IDF[i],
		}
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalCount > stats[j].TotalCount
	})
	if limit >= 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}
