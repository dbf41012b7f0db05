package far

// Stencil is a read-only view of one stencil's index and weight slices. It
// borrows the table's storage.
type Stencil struct {
	indices []Index
	weights []float32
}

// Size is the number of (index, weight) pairs.
func (s Stencil) Size() int { return len(s.indices) }

// Indices returns the control-vertex indices, in ascending order.
func (s Stencil) Indices() []Index { return s.indices }

// Weights returns the weights parallel to Indices.
func (s Stencil) Weights() []float32 { return s.weights }

// Eval writes sum(w * values[idx]) for one element of width floats into
// dst[:width]. values is interleaved with stride width.
func (s Stencil) Eval(values []float32, width int, dst []float32) {
	for c := 0; c < width; c++ {
		dst[c] = 0
	}
	for k, idx := range s.indices {
		var (
			w    = s.weights[k]
			base = int(idx) * width
		)
		for c := 0; c < width; c++ {
			dst[c] += w * values[base+c]
		}
	}
}
