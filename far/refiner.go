package far

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Mask is a one-level subdivision mask: the point it describes is
// sum(Weights[k] * parent[Indices[k]]) over points of the previous level.
type Mask struct {
	Indices []Index
	Weights []float32
}

// Size is the number of parent contributions.
func (m Mask) Size() int { return len(m.Indices) }

// TopologyRefiner supplies refined point counts and one-level parent masks.
// Implementations must not change after they are handed to Create.
type TopologyRefiner interface {
	// MaxLevel is the finest refined level; 0 means unrefined.
	MaxLevel() int
	// NumVertices is the vertex count at level, level 0 being the control mesh.
	NumVertices(level int) int
	NumFVarChannels() int
	// NumFVarValues is the value count of a face-varying channel at level.
	NumFVarValues(level, channel int) int
	// VertexMask combines level-1 vertices into vertex at level (level >= 1).
	// varying selects the linear varying rules instead of the scheme rules.
	VertexMask(level int, vertex Index, varying bool) Mask
	// FVarMask combines level-1 values of channel into value at level.
	FVarMask(level, channel int, value Index) Mask
}

// FaceRefiner is implemented by refiners that track which parent face each
// refined face came from. It is needed for uniform (per-face) data.
type FaceRefiner interface {
	NumFaces(level int) int
	// FaceParent is the level-1 face containing face at level.
	FaceParent(level int, face Index) Index
}

// pointSource binds a refiner to one interpolation channel.
type pointSource struct {
	refiner TopologyRefiner
	mode    InterpolationMode
	channel int
}

func (ps pointSource) count(level int) int {
	if ps.mode == FaceVarying {
		return ps.refiner.NumFVarValues(level, ps.channel)
	}
	return ps.refiner.NumVertices(level)
}

func (ps pointSource) mask(level int, i Index) Mask {
	switch ps.mode {
	case Varying:
		return ps.refiner.VertexMask(level, i, true)
	case FaceVarying:
		return ps.refiner.FVarMask(level, ps.channel, i)
	}
	return ps.refiner.VertexMask(level, i, false)
}

// checkMask validates a mask against the parent level's point count and the
// partition-of-unity tolerance.
func checkMask(m Mask, parentCount int, tol float64) error {
	if len(m.Indices) != len(m.Weights) {
		return fmt.Errorf("mask has %d indices and %d weights", len(m.Indices), len(m.Weights))
	}
	if len(m.Indices) == 0 {
		return fmt.Errorf("empty mask")
	}
	var sum float64
	for k, p := range m.Indices {
		if p < 0 || int(p) >= parentCount {
			return fmt.Errorf("parent index %d out of range [0,%d)", p, parentCount)
		}
		w := float64(m.Weights[k])
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("non-finite weight for parent %d", p)
		}
		sum += w
	}
	if !scalar.EqualWithinAbs(sum, 1, tol) {
		return fmt.Errorf("mask weights sum to %v", sum)
	}
	return nil
}
