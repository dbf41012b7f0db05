// Package far builds and stores stencil tables: flattened sparse operators
// mapping coarse control vertices to refined or limit points.
//
// A StencilTable is immutable once Create returns it and may be read from
// any number of goroutines. Slices handed out by its accessors alias the
// table's storage, are capacity-clipped, and must be treated as read-only.
package far

import (
	"fmt"
	"sync"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats/scalar"
)

// StencilTable owns the four flattened stencil arrays.
type StencilTable struct {
	numControlVertices int
	mode               InterpolationMode

	sizes   []int32
	indices []Index
	weights []float32

	// offsets is set at construction when materialized, otherwise derived
	// once from sizes by deriveOffsets.
	offsets       []Index
	hasOffsets    bool
	deriveOffsets sync.Once
}

// newStencilTable takes ownership of the arrays. offsets may be nil.
func newStencilTable(numControlVertices int, mode InterpolationMode,
	sizes []int32, offsets []Index, indices []Index, weights []float32) *StencilTable {
	return &StencilTable{
		numControlVertices: numControlVertices,
		mode:               mode,
		sizes:              sizes,
		indices:            indices,
		weights:            weights,
		offsets:            offsets,
		hasOffsets:         offsets != nil,
	}
}

// NumStencils is the number of stencils in the table.
func (st *StencilTable) NumStencils() int { return len(st.sizes) }

// NumControlVertices is the exclusive upper bound on every control index,
// i.e. the length of the value buffer an evaluator must supply.
func (st *StencilTable) NumControlVertices() int { return st.numControlVertices }

// InterpolationMode is the channel the table was built for.
func (st *StencilTable) InterpolationMode() InterpolationMode { return st.mode }

// Sizes returns the per-stencil entry counts.
func (st *StencilTable) Sizes() []int32 { return clip(st.sizes) }

// HasOffsets reports whether offsets were materialized by the factory or
// read from a file, rather than derived on demand.
func (st *StencilTable) HasOffsets() bool { return st.hasOffsets }

// Offsets returns the exclusive prefix sum of Sizes. When the factory did
// not materialize it, it is derived on the first call and cached. The result
// is empty only for a table without stencils.
func (st *StencilTable) Offsets() []Index {
	if !st.hasOffsets {
		st.deriveOffsets.Do(func() {
			st.offsets = prefixOffsets(st.sizes)
		})
	}
	return clip(st.offsets)
}

// ControlIndices returns the flattened control-vertex indices.
func (st *StencilTable) ControlIndices() []Index { return clip(st.indices) }

// Weights returns the flattened weights, parallel to ControlIndices.
func (st *StencilTable) Weights() []float32 { return clip(st.weights) }

// NumEntries is len(ControlIndices()), the sum of all sizes.
func (st *StencilTable) NumEntries() int { return len(st.indices) }

// Stencil returns the view of stencil i. ok is false when i is out of
// range; that is not an error.
func (st *StencilTable) Stencil(i int) (s Stencil, ok bool) {
	if i < 0 || i >= len(st.sizes) {
		return
	}
	var (
		off = int(st.Offsets()[i])
		end = off + int(st.sizes[i])
	)
	s = Stencil{
		indices: st.indices[off:end:end],
		weights: st.weights[off:end:end],
	}
	return s, true
}

// Stencils calls fn for each stencil in order until fn returns false.
func (st *StencilTable) Stencils(fn func(i int, s Stencil) bool) {
	var (
		offsets = st.Offsets()
	)
	for i, n := range st.sizes {
		off := int(offsets[i])
		end := off + int(n)
		if !fn(i, Stencil{indices: st.indices[off:end:end], weights: st.weights[off:end:end]}) {
			return
		}
	}
}

// UpdateValues evaluates every stencil against src, an interleaved buffer
// of NumControlVertices() elements of width floats each, writing
// NumStencils() elements of the same width into dst.
func (st *StencilTable) UpdateValues(src, dst []float32, width int) error {
	if width < 1 {
		return fmt.Errorf("%w: width %d", ErrUnsupportedWidth, width)
	}
	if len(src) < st.numControlVertices*width {
		return fmt.Errorf("%w: source holds %d floats, need %d",
			ErrBufferSize, len(src), st.numControlVertices*width)
	}
	if len(dst) < len(st.sizes)*width {
		return fmt.Errorf("%w: destination holds %d floats, need %d",
			ErrBufferSize, len(dst), len(st.sizes)*width)
	}
	var (
		offsets = st.Offsets()
	)
	for i, n := range st.sizes {
		off := int(offsets[i])
		end := off + int(n)
		Stencil{indices: st.indices[off:end], weights: st.weights[off:end]}.
			Eval(src, width, dst[i*width:(i+1)*width])
	}
	return nil
}

// Matrix returns the table as a NumStencils x NumControlVertices CSR
// operator. The returned matrix owns copies of the table data.
func (st *StencilTable) Matrix() *sparse.CSR {
	var (
		offsets = st.Offsets()
		indptr  = make([]int, len(st.sizes)+1)
		ind     = make([]int, len(st.indices))
		data    = make([]float64, len(st.weights))
	)
	for i := range st.sizes {
		indptr[i] = int(offsets[i])
	}
	indptr[len(st.sizes)] = len(st.indices)
	for j, idx := range st.indices {
		ind[j] = int(idx)
		data[j] = float64(st.weights[j])
	}
	return sparse.NewCSR(len(st.sizes), st.numControlVertices, indptr, ind, data)
}

// Validate re-checks the layout invariants and that every stencil's weights
// sum to 1 within tol (tol <= 0 selects DefaultWeightTolerance).
func (st *StencilTable) Validate(tol float64) error {
	if tol <= 0 {
		tol = DefaultWeightTolerance
	}
	if err := st.checkLayout(); err != nil {
		return err
	}
	var (
		offsets = st.Offsets()
	)
	for i, n := range st.sizes {
		var sum float64
		for j := int(offsets[i]); j < int(offsets[i])+int(n); j++ {
			sum += float64(st.weights[j])
		}
		if !scalar.EqualWithinAbs(sum, 1, tol) {
			return fmt.Errorf("%w: stencil %d weights sum to %v", ErrInvariantViolation, i, sum)
		}
	}
	return nil
}

// checkLayout verifies array lengths, offsets and index bounds.
func (st *StencilTable) checkLayout() error {
	if len(st.indices) != len(st.weights) {
		return fmt.Errorf("%w: %d indices but %d weights",
			ErrInvariantViolation, len(st.indices), len(st.weights))
	}
	var total int
	for i, n := range st.sizes {
		if n < 0 {
			return fmt.Errorf("%w: stencil %d has negative size %d", ErrInvariantViolation, i, n)
		}
		if st.hasOffsets && int(st.offsets[i]) != total {
			return fmt.Errorf("%w: offset[%d] = %d, expected %d",
				ErrInvariantViolation, i, st.offsets[i], total)
		}
		total += int(n)
	}
	if st.hasOffsets && len(st.offsets) != len(st.sizes) {
		return fmt.Errorf("%w: %d offsets for %d stencils",
			ErrInvariantViolation, len(st.offsets), len(st.sizes))
	}
	if total != len(st.indices) {
		return fmt.Errorf("%w: sizes sum to %d, %d entries stored",
			ErrInvariantViolation, total, len(st.indices))
	}
	for j, idx := range st.indices {
		if idx < 0 || int(idx) >= st.numControlVertices {
			return fmt.Errorf("%w: entry %d references control vertex %d, bound %d",
				ErrInvariantViolation, j, idx, st.numControlVertices)
		}
	}
	return nil
}

func (st *StencilTable) String() string {
	return fmt.Sprintf("StencilTable{mode: %v, stencils: %d, controlVertices: %d, entries: %d}",
		st.mode, len(st.sizes), st.numControlVertices, len(st.indices))
}

func prefixOffsets(sizes []int32) []Index {
	var (
		offsets = make([]Index, len(sizes))
		total   Index
	)
	for i, n := range sizes {
		offsets[i] = total
		total += Index(n)
	}
	return offsets
}

func clip[T any](s []T) []T { return s[:len(s):len(s)] }
