package far

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// accumulator merges weighted contributions by coarse index. values is
// dense over the coarse points and touched lists the live slots, so a merge
// costs O(entries) and reset is O(touched).
type accumulator struct {
	values  []float64
	live    []bool
	touched []Index
}

func newAccumulator(numCoarse int) *accumulator {
	return &accumulator{
		values: make([]float64, numCoarse),
		live:   make([]bool, numCoarse),
	}
}

func (a *accumulator) add(i Index, w float64) {
	if !a.live[i] {
		a.live[i] = true
		a.touched = append(a.touched, i)
	}
	a.values[i] += w
}

// emit appends the merged entries in ascending index order, dropping exact
// zeros, and clears the accumulator. It returns the entry count and the
// float64 weight sum of what was appended.
func (a *accumulator) emit(indices []Index, weights []float64) ([]Index, []float64, int, float64) {
	slices.Sort(a.touched)
	var (
		start = len(weights)
	)
	for _, i := range a.touched {
		if w := a.values[i]; w != 0 {
			indices = append(indices, i)
			weights = append(weights, w)
		}
		a.values[i] = 0
		a.live[i] = false
	}
	a.touched = a.touched[:0]
	n := len(weights) - start
	return indices, weights, n, floats.Sum(weights[start:])
}
