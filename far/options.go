package far

import (
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Index addresses a control vertex, a refined vertex or a face-varying value.
type Index int32

// InterpolationMode selects which attribute channel's subdivision rules the
// refiner applies when it supplies parent masks.
type InterpolationMode uint8

const (
	Vertex InterpolationMode = iota
	Varying
	FaceVarying
)

func (m InterpolationMode) String() string {
	switch m {
	case Vertex:
		return "Vertex"
	case Varying:
		return "Varying"
	case FaceVarying:
		return "FaceVarying"
	}
	return fmt.Sprintf("InterpolationMode(%d)", uint8(m))
}

// ParseInterpolationMode accepts the String() forms, case-insensitively.
func ParseInterpolationMode(s string) (InterpolationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vertex":
		return Vertex, nil
	case "varying":
		return Varying, nil
	case "facevarying", "face-varying", "fvar":
		return FaceVarying, nil
	}
	return Vertex, fmt.Errorf("%w: unknown interpolation mode %q", ErrInvalidOptions, s)
}

// LevelScope selects which refined points receive a stencil.
type LevelScope uint8

const (
	// LastLevelOnly emits stencils for the finest level only. With an
	// unrefined refiner the finest level is the base level.
	LastLevelOnly LevelScope = iota
	// AllLevelsCumulative emits the base level followed by every refined
	// level, in level order.
	AllLevelsCumulative
)

func (s LevelScope) String() string {
	switch s {
	case LastLevelOnly:
		return "LastLevelOnly"
	case AllLevelsCumulative:
		return "AllLevelsCumulative"
	}
	return fmt.Sprintf("LevelScope(%d)", uint8(s))
}

// ParseLevelScope accepts the String() forms plus "last" and "all".
func ParseLevelScope(s string) (LevelScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last", "lastlevelonly":
		return LastLevelOnly, nil
	case "all", "alllevels", "alllevelscumulative":
		return AllLevelsCumulative, nil
	}
	return LastLevelOnly, fmt.Errorf("%w: unknown level scope %q", ErrInvalidOptions, s)
}

// DefaultWeightTolerance bounds the drift of a stencil's weight sum from 1.
// Weights are stored as float32, so the bound sits well above float32
// rounding of typical masks.
const DefaultWeightTolerance = 1e-5

// Options configures Create. The zero value is usable: vertex interpolation,
// last level only, unfactorized construction, offsets derived on demand.
// DefaultOptions returns the recommended settings.
type Options struct {
	// InterpolationMode selects vertex, varying or face-varying masks.
	InterpolationMode InterpolationMode

	// LevelScope selects finest-level-only or cumulative output.
	LevelScope LevelScope

	// FactorizeIntermediateLevels keeps every intermediate level's flattened
	// stencils and composes the next level from them. When false each output
	// stencil is expanded through the mask chain down to the base level and
	// no intermediate tables are retained. Both produce the same table.
	FactorizeIntermediateLevels bool

	// GenerateOffsets materializes the offsets array during construction.
	// When false, StencilTable.Offsets derives it from the sizes on first use.
	GenerateOffsets bool

	// FVarChannel is the face-varying channel used in FaceVarying mode.
	FVarChannel int

	// WeightTolerance bounds |sum(weights)-1| for every mask and every
	// flattened stencil. Zero selects DefaultWeightTolerance.
	WeightTolerance float64

	// Workers is the number of goroutines flattening a level. Zero selects
	// GOMAXPROCS. Output does not depend on this value.
	Workers int
}

// DefaultOptions returns vertex interpolation of the finest level with
// factorized construction and offsets derived on demand.
func DefaultOptions() Options {
	return Options{
		InterpolationMode:           Vertex,
		LevelScope:                  LastLevelOnly,
		FactorizeIntermediateLevels: true,
		GenerateOffsets:             false,
		WeightTolerance:             DefaultWeightTolerance,
	}
}

// Validate reports the first out-of-range field.
func (o Options) Validate() error {
	if o.InterpolationMode > FaceVarying {
		return fmt.Errorf("%w: interpolation mode %d", ErrInvalidOptions, o.InterpolationMode)
	}
	if o.LevelScope > AllLevelsCumulative {
		return fmt.Errorf("%w: level scope %d", ErrInvalidOptions, o.LevelScope)
	}
	if o.FVarChannel < 0 {
		return fmt.Errorf("%w: negative face-varying channel %d", ErrInvalidOptions, o.FVarChannel)
	}
	if o.WeightTolerance < 0 || math.IsNaN(o.WeightTolerance) || math.IsInf(o.WeightTolerance, 0) {
		return fmt.Errorf("%w: weight tolerance %v", ErrInvalidOptions, o.WeightTolerance)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

func (o Options) tolerance() float64 {
	if o.WeightTolerance == 0 {
		return DefaultWeightTolerance
	}
	return o.WeightTolerance
}

func (o Options) workers() int {
	if o.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}
