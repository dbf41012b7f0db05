package osd

import "fmt"

// BufferDescriptor locates the primvar elements inside an interleaved float
// buffer: element i occupies [Offset+i*Stride, Offset+i*Stride+Length).
type BufferDescriptor struct {
	Offset int
	Length int
	Stride int
}

// NewBufferDescriptor describes a tightly packed buffer of width floats per
// element.
func NewBufferDescriptor(width int) BufferDescriptor {
	return BufferDescriptor{Offset: 0, Length: width, Stride: width}
}

// IsValid reports whether the descriptor addresses a non-empty range that
// fits in one stride.
func (d BufferDescriptor) IsValid() bool {
	return d.Offset >= 0 && d.Length > 0 && d.Stride >= d.Length
}

func (d BufferDescriptor) String() string {
	return fmt.Sprintf("BufferDescriptor{Offset: %d, Length: %d, Stride: %d}", d.Offset, d.Length, d.Stride)
}

// required is the float count a buffer needs to hold n elements.
func (d BufferDescriptor) required(n int) int {
	if n == 0 {
		return 0
	}
	return d.Offset + (n-1)*d.Stride + d.Length
}
