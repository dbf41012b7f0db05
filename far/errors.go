package far

import "errors"

// Every message is prefixed with "far: ". Callers match with errors.Is; the
// factory and reader wrap these with context using %w.
var (
	// ErrConstruction is returned by Create when the refiner is empty or its
	// level/parent data is inconsistent. No table is produced.
	ErrConstruction = errors.New("far: stencil table construction failed")

	// ErrInvariantViolation marks a table whose assembled arrays break the
	// layout or partition-of-unity invariants. Create aborts rather than
	// returning such a table.
	ErrInvariantViolation = errors.New("far: stencil table invariant violated")

	// ErrInvalidOptions is returned when an Options value is out of range.
	ErrInvalidOptions = errors.New("far: invalid options")

	// ErrCorruptTable is returned by ReadStencilTable for malformed input.
	ErrCorruptTable = errors.New("far: corrupt stencil table data")

	// ErrUnsupportedWidth is returned by the primvar and table evaluators
	// when the element width is outside the supported range.
	ErrUnsupportedWidth = errors.New("far: unsupported primvar width")

	// ErrBufferSize is returned when a source or destination buffer is too
	// small for the requested interpolation.
	ErrBufferSize = errors.New("far: buffer size mismatch")

	// ErrLevel is returned for a refinement level the refiner does not have.
	ErrLevel = errors.New("far: refinement level out of range")

	// ErrNoFaceRefiner is returned when uniform face interpolation is
	// requested from a refiner without face parentage.
	ErrNoFaceRefiner = errors.New("far: refiner does not expose face parents")
)
