package recommend

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cosineSimilarities scores q against every row of m. rowNorms are the
// precomputed L2 norms of m's rows. A zero-norm row or query scores 0.
// Results are clipped to [-1, 1] against rounding.
func cosineSimilarities(m *mat.Dense, rowNorms, q []float64) []float64 {
	var dots mat.VecDense
	dots.MulVec(m, mat.NewVecDense(len(q), q))

	qNorm := floats.Norm(q, 2)
	sims := make([]float64, len(rowNorms))
	if qNorm == 0 {
		return sims
	}
	for i, n := range rowNorms {
		if n == 0 {
			continue
		}
		sims[i] = clip(dots.AtVec(i)/(n*qNorm), -1, 1)
	}
	return sims
}

// topIndices returns the indices of the k largest similarities in descending
// order. Equal similarities keep ascending index order.
func topIndices(sims []float64, k int) []int {
	idx := make([]int, len(sims))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return sims[idx[a]] > sims[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
