package far

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	tableMagic   = "STBL"
	tableVersion = 1

	flagOffsets = 1 << 0
)

// WriteTo serializes the table little-endian: magic "STBL", version,
// flags (bit 0 = offsets present), interpolation mode, then
// {controlVertexCount, stencilCount, sizes, [offsets], indices, weights}
// with u32 integers and f32 weights. Offsets are written only when
// HasOffsets reports true.
func (st *StencilTable) WriteTo(w io.Writer) (n int64, err error) {
	var (
		bw    = bufio.NewWriter(w)
		cw    = &countingWriter{w: bw}
		flags uint32
	)
	if st.hasOffsets {
		flags |= flagOffsets
	}
	header := []uint32{
		tableVersion,
		flags,
		uint32(st.mode),
		uint32(st.numControlVertices),
		uint32(len(st.sizes)),
	}
	if _, err = cw.Write([]byte(tableMagic)); err != nil {
		return cw.n, err
	}
	if err = binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, err
	}
	if err = writeU32s(cw, st.sizes); err != nil {
		return cw.n, err
	}
	if st.hasOffsets {
		if err = writeU32s(cw, st.offsets); err != nil {
			return cw.n, err
		}
	}
	if err = writeU32s(cw, st.indices); err != nil {
		return cw.n, err
	}
	if err = binary.Write(cw, binary.LittleEndian, st.weights); err != nil {
		return cw.n, err
	}
	if err = bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadStencilTable reads a table written by WriteTo and validates its
// layout and weight sums. Malformed input yields an error wrapping
// ErrCorruptTable.
func ReadStencilTable(r io.Reader) (*StencilTable, error) {
	var (
		br     = bufio.NewReader(r)
		magic  = make([]byte, len(tableMagic))
		header [5]uint32
	)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrCorruptTable, err)
	}
	if string(magic) != tableMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptTable, magic)
	}
	if err := binary.Read(br, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorruptTable, err)
	}
	var (
		version, flags, mode = header[0], header[1], header[2]
		numControlVertices   = header[3]
		numStencils          = header[4]
	)
	if version != tableVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptTable, version)
	}
	if flags&^flagOffsets != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrCorruptTable, flags)
	}
	if InterpolationMode(mode) > FaceVarying {
		return nil, fmt.Errorf("%w: interpolation mode %d", ErrCorruptTable, mode)
	}
	if numControlVertices > math.MaxInt32 || numStencils > math.MaxInt32 {
		return nil, fmt.Errorf("%w: counts exceed index range", ErrCorruptTable)
	}
	sizes, err := readU32s[int32](br, int(numStencils))
	if err != nil {
		return nil, fmt.Errorf("%w: reading sizes: %v", ErrCorruptTable, err)
	}
	var offsets []Index
	if flags&flagOffsets != 0 {
		if offsets, err = readU32s[Index](br, int(numStencils)); err != nil {
			return nil, fmt.Errorf("%w: reading offsets: %v", ErrCorruptTable, err)
		}
	}
	var total int64
	for _, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative stencil size", ErrCorruptTable)
		}
		total += int64(n)
	}
	if total > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d entries exceed index range", ErrCorruptTable, total)
	}
	indices, err := readU32s[Index](br, int(total))
	if err != nil {
		return nil, fmt.Errorf("%w: reading indices: %v", ErrCorruptTable, err)
	}
	weights := make([]float32, total)
	if err = binary.Read(br, binary.LittleEndian, weights); err != nil {
		return nil, fmt.Errorf("%w: reading weights: %v", ErrCorruptTable, err)
	}
	st := newStencilTable(int(numControlVertices), InterpolationMode(mode), sizes, offsets, indices, weights)
	if err = st.Validate(DefaultWeightTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	return st, nil
}

type u32Like interface{ ~int32 | ~uint32 }

func writeU32s[T u32Like](w io.Writer, values []T) error {
	buf := make([]uint32, len(values))
	for i, v := range values {
		buf[i] = uint32(v)
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

// readU32s reads n values in chunks so a corrupt count fails on EOF
// instead of allocating the claimed size up front.
func readU32s[T u32Like](r io.Reader, n int) ([]T, error) {
	const chunk = 1 << 16
	var (
		out = make([]T, 0, min(n, chunk))
		buf = make([]uint32, min(n, chunk))
	)
	for len(out) < n {
		m := min(n-len(out), chunk)
		if err := binary.Read(r, binary.LittleEndian, buf[:m]); err != nil {
			return nil, err
		}
		for _, v := range buf[:m] {
			if v > math.MaxInt32 {
				return nil, fmt.Errorf("value %d exceeds index range", v)
			}
			out = append(out, T(v))
		}
	}
	return out, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
