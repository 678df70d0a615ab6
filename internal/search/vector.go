package search

import "math"

// CosineSimilarity calculates the cosine similarity between two dense
// vectors. Vectors of different length, or with a zero norm, score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Dense expands q into a dense vector of length n
func (q QueryVector) Dense(n int) []float64 {
	v := make([]float64, n)
	for _, e := range q {
		if e.Col < n {
			v[e.Col] = e.Weight
		}
	}
	return v
}

// DenseRow expands row r of m into a dense vector
func DenseRow[T Number](m *Matrix[T], r int) []float64 {
	v := make([]float64, m.Cols())
	cols, vals := m.Row(r)
	for i, c := range cols {
		v[c] = float64(vals[i])
	}
	return v
}
