package topology

import "errors"

var (
	// ErrInvalidTopology is returned for malformed descriptors: short faces,
	// out-of-range or repeated vertex indices, inconsistent fvar channels.
	ErrInvalidTopology = errors.New("topology: invalid mesh topology")

	// ErrNonManifold is returned for an edge shared by more than two faces.
	ErrNonManifold = errors.New("topology: non-manifold edge")

	// ErrAlreadyRefined is returned when RefineUniform is called twice.
	ErrAlreadyRefined = errors.New("topology: refiner already refined")

	// ErrInvalidLevel is returned for a negative refinement level.
	ErrInvalidLevel = errors.New("topology: invalid refinement level")
)
