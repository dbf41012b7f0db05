package osd

import "errors"

var (
	// ErrInvalidDescriptor is returned for a descriptor with a negative
	// offset or a length outside 1..stride.
	ErrInvalidDescriptor = errors.New("osd: invalid buffer descriptor")

	// ErrBufferTooSmall is returned when a buffer cannot hold every element
	// its descriptor addresses.
	ErrBufferTooSmall = errors.New("osd: buffer too small")

	// ErrNilTable is returned when no stencil table is supplied.
	ErrNilTable = errors.New("osd: nil stencil table")
)
