package topology

import "fmt"

// Descriptor is a polygonal control mesh: vertex count, per-face vertex
// loops in counter-clockwise order, and optional face-varying channels.
type Descriptor struct {
	NumVertices  int
	FaceVerts    [][]int
	FVarChannels []FVarChannel
}

// FVarChannel assigns a value index to every face corner, parallel to
// Descriptor.FaceVerts. Corners sharing a vertex may use distinct values,
// which is how seams are described.
type FVarChannel struct {
	NumValues  int
	FaceValues [][]int
}

// Validate checks index ranges and that every fvar channel matches the
// face layout.
func (d Descriptor) Validate() error {
	if d.NumVertices <= 0 {
		return fmt.Errorf("%w: %d vertices", ErrInvalidTopology, d.NumVertices)
	}
	for f, verts := range d.FaceVerts {
		if len(verts) < 3 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidTopology, f, len(verts))
		}
		for i, v := range verts {
			if v < 0 || v >= d.NumVertices {
				return fmt.Errorf("%w: face %d vertex %d out of range [0,%d)",
					ErrInvalidTopology, f, v, d.NumVertices)
			}
			for _, w := range verts[:i] {
				if w == v {
					return fmt.Errorf("%w: face %d repeats vertex %d", ErrInvalidTopology, f, v)
				}
			}
		}
	}
	for c, ch := range d.FVarChannels {
		if ch.NumValues <= 0 {
			return fmt.Errorf("%w: fvar channel %d has %d values", ErrInvalidTopology, c, ch.NumValues)
		}
		if len(ch.FaceValues) != len(d.FaceVerts) {
			return fmt.Errorf("%w: fvar channel %d has %d faces, mesh has %d",
				ErrInvalidTopology, c, len(ch.FaceValues), len(d.FaceVerts))
		}
		for f, values := range ch.FaceValues {
			if len(values) != len(d.FaceVerts[f]) {
				return fmt.Errorf("%w: fvar channel %d face %d has %d values for %d corners",
					ErrInvalidTopology, c, f, len(values), len(d.FaceVerts[f]))
			}
			for _, v := range values {
				if v < 0 || v >= ch.NumValues {
					return fmt.Errorf("%w: fvar channel %d face %d value %d out of range [0,%d)",
						ErrInvalidTopology, c, f, v, ch.NumValues)
				}
			}
		}
	}
	return nil
}
