package search

import "sort"

// Number is the element type of a sparse matrix
type Number interface {
	~int | ~float64
}

// Matrix is a compressed sparse row matrix. Within a row, column indices
// are strictly increasing. Only non-zero cells are stored.
type Matrix[T Number] struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	values     []T
}

// Rows returns the number of rows
func (m *Matrix[T]) Rows() int { return m.rows }

// Cols returns the number of columns
func (m *Matrix[T]) Cols() int { return m.cols }

// NNZ returns the number of stored cells
func (m *Matrix[T]) NNZ() int { return len(m.values) }

// Row returns the column indices and values of row r. The slices alias the
// matrix storage and must not be modified.
func (m *Matrix[T]) Row(r int) ([]int, []T) {
	if r < 0 || r >= m.rows {
		return nil, nil
	}
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	return m.colIdx[lo:hi], m.values[lo:hi]
}

// At returns the value at (r, c), zero when the cell is not stored
func (m *Matrix[T]) At(r, c int) T {
	cols, vals := m.Row(r)
	i := sort.SearchInts(cols, c)
	if i < len(cols) && cols[i] == c {
		return vals[i]
	}
	var zero T
	return zero
}

// matrixBuilder appends rows in order
type matrixBuilder[T Number] struct {
	m *Matrix[T]
}

func newMatrixBuilder[T Number](rows, cols, nnzHint int) *matrixBuilder[T] {
	m := &Matrix[T]{
		cols:   cols,
		rowPtr: make([]int, 1, rows+1),
		colIdx: make([]int, 0, nnzHint),
		values: make([]T, 0, nnzHint),
	}
	return &matrixBuilder[T]{m: m}
}

// appendRow adds the next row. cols must be strictly increasing; zero
// values are skipped.
func (b *matrixBuilder[T]) appendRow(cols []int, vals []T) {
	for i, c := range cols {
		if vals[i] == 0 {
			continue
		}
		b.m.colIdx = append(b.m.colIdx, c)
		b.m.values = append(b.m.values, vals[i])
	}
	b.m.rows++
	b.m.rowPtr = append(b.m.rowPtr, len(b.m.values))
}

func (b *matrixBuilder[T]) build() *Matrix[T] {
	return b.m
}

// buildTF lays the per-document counts out as a sparse row per document
func buildTF(vocab *Vocabulary, counts []termCounts) *Matrix[int] {
	nnz := 0
	for _, tc := range counts {
		nnz += len(tc)
	}

	b := newMatrixBuilder[int](len(counts), vocab.Len(), nnz)
	var cols []int
	var vals []int
	for _, tc := range counts {
		cols = cols[:0]
		for term := range tc {
			cols = append(cols, vocab.index[term])
		}
		sort.Ints(cols)
		vals = vals[:0]
		for _, c := range cols {
			vals = append(vals, tc[vocab.terms[c]])
		}
		b.appendRow(cols, vals)
	}
	return b.build()
}

// scaleColumns returns m with every column c multiplied by scale[c]
func scaleColumns(m *Matrix[int], scale []float64) *Matrix[float64] {
	b := newMatrixBuilder[float64](m.rows, m.cols, m.NNZ())
	vals := make([]float64, 0)
	for r := 0; r < m.rows; r++ {
		cols, counts := m.Row(r)
		vals = vals[:0]
		for i, c := range cols {
			vals = append(vals, float64(counts[i])*scale[c])
		}
		b.appendRow(cols, vals)
	}
	return b.build()
}
