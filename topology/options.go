package topology

import (
	"fmt"
	"strings"
)

// Scheme selects the subdivision rules used for vertex masks.
type Scheme uint8

const (
	CatmullClark Scheme = iota
	Bilinear
)

func (s Scheme) String() string {
	switch s {
	case CatmullClark:
		return "CatmullClark"
	case Bilinear:
		return "Bilinear"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "catmark", "catmullclark", "catmull-clark":
		return CatmullClark, nil
	case "bilinear":
		return Bilinear, nil
	}
	return CatmullClark, fmt.Errorf("%w: unknown scheme %q", ErrInvalidTopology, s)
}

// BoundaryInterpolation selects how boundary vertices are treated by the
// Catmull-Clark rules.
type BoundaryInterpolation uint8

const (
	// EdgeOnly applies the crease rule to every boundary vertex.
	EdgeOnly BoundaryInterpolation = iota
	// EdgeAndCorner additionally pins vertices incident to a single face.
	EdgeAndCorner
)

func (b BoundaryInterpolation) String() string {
	switch b {
	case EdgeOnly:
		return "EdgeOnly"
	case EdgeAndCorner:
		return "EdgeAndCorner"
	}
	return fmt.Sprintf("BoundaryInterpolation(%d)", uint8(b))
}

func ParseBoundaryInterpolation(s string) (BoundaryInterpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "edge", "edgeonly", "edge-only":
		return EdgeOnly, nil
	case "corner", "edgeandcorner", "edge-and-corner":
		return EdgeAndCorner, nil
	}
	return EdgeOnly, fmt.Errorf("%w: unknown boundary interpolation %q", ErrInvalidTopology, s)
}

// Options configures a Refiner. The zero value is Catmull-Clark with
// edge-only boundary interpolation.
type Options struct {
	Scheme                Scheme
	BoundaryInterpolation BoundaryInterpolation
}
