package search

import (
	"fmt"
	"math"
	"strings"
)

// IDFMode selects the inverse document frequency formula
type IDFMode int

const (
	// IDFPlain is ln(N/df)
	IDFPlain IDFMode = iota
	// IDFSmoothed is ln(N/df) + 1
	IDFSmoothed
)

func (m IDFMode) String() string {
	if m == IDFSmoothed {
		return "smoothed"
	}
	return "plain"
}

// ParseIDFMode accepts "plain" or "smoothed"
func ParseIDFMode(s string) (IDFMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return IDFPlain, nil
	case "smoothed":
		return IDFSmoothed, nil
	default:
		return IDFPlain, fmt.Errorf("unknown idf mode %q", s)
	}
}

// Weights holds the IDF vector, the TF-IDF matrix and the row norms used
// for ranking
type Weights struct {
	IDF   []float64
	TFIDF *Matrix[float64]
	// Norms are the Euclidean norms of the rows that get ranked: TF-IDF
	// rows when TF-IDF is enabled, raw TF rows otherwise.
	Norms []float64
}

func computeIDF(vocab *Vocabulary, n int, mode IDFMode) []float64 {
	idf := make([]float64, vocab.Len())
	for i := range idf {
		w := math.Log(float64(n) / float64(vocab.DocFreq(i)))
		if mode == IDFSmoothed {
			w++
		}
		idf[i] = w
	}
	return idf
}

func buildWeights(vocab *Vocabulary, tf *Matrix[int], mode IDFMode, useTFIDF bool) *Weights {
	idf := computeIDF(vocab, tf.Rows(), mode)
	w := &Weights{
		IDF:   idf,
		TFIDF: scaleColumns(tf, idf),
		Norms: make([]float64, tf.Rows()),
	}
	for r := range w.Norms {
		if useTFIDF {
			_, vals := w.TFIDF.Row(r)
			w.Norms[r] = l2Norm(vals)
		} else {
			_, counts := tf.Row(r)
			w.Norms[r] = l2Norm(counts)
		}
	}
	return w
}

func l2Norm[T Number](vals []T) float64 {
	var sum float64
	for _, v := range vals {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum)
}
