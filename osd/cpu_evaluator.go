// Package osd evaluates stencil tables against primvar buffers on the CPU.
// Each output element i is sum_j w_j * src[idx_j] over stencil i.
package osd

import (
	"fmt"
	"runtime"

	"github.com/notargets/gosubdiv/far"
	"github.com/notargets/gosubdiv/utils"
	"gonum.org/v1/gonum/mat"
)

// EvalStencils evaluates every stencil of table serially. src holds
// table.NumControlVertices() elements and dst receives table.NumStencils()
// elements; src and dst must not overlap. Only min(srcDesc.Length,
// dstDesc.Length) components are written.
func EvalStencils(src []float32, srcDesc BufferDescriptor,
	dst []float32, dstDesc BufferDescriptor, table *far.StencilTable) error {
	if err := checkBuffers(src, srcDesc, dst, dstDesc, table); err != nil {
		return err
	}
	evalRange(src, srcDesc, dst, dstDesc, table, 0, table.NumStencils())
	return nil
}

// ParallelEvalStencils is EvalStencils split over workers goroutines, each
// owning a contiguous range of stencils. workers <= 0 selects GOMAXPROCS.
func ParallelEvalStencils(src []float32, srcDesc BufferDescriptor,
	dst []float32, dstDesc BufferDescriptor, table *far.StencilTable, workers int) error {
	if err := checkBuffers(src, srcDesc, dst, dstDesc, table); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := table.NumStencils()
	if n == 0 {
		return nil
	}
	pm := utils.NewPartitionMap(min(workers, n), n)
	pm.ForEachBucket(func(_, kMin, kMax int) {
		evalRange(src, srcDesc, dst, dstDesc, table, kMin, kMax)
	})
	return nil
}

func evalRange(src []float32, srcDesc BufferDescriptor,
	dst []float32, dstDesc BufferDescriptor, table *far.StencilTable, kMin, kMax int) {
	var (
		length  = min(srcDesc.Length, dstDesc.Length)
		sizes   = table.Sizes()
		offsets = table.Offsets()
		indices = table.ControlIndices()
		weights = table.Weights()
	)
	for i := kMin; i < kMax; i++ {
		var (
			out = dst[dstDesc.Offset+i*dstDesc.Stride:][:length]
			off = int(offsets[i])
		)
		for c := range out {
			out[c] = 0
		}
		for j := off; j < off+int(sizes[i]); j++ {
			var (
				w  = weights[j]
				in = src[srcDesc.Offset+int(indices[j])*srcDesc.Stride:][:length]
			)
			for c := range out {
				out[c] += w * in[c]
			}
		}
	}
}

func checkBuffers(src []float32, srcDesc BufferDescriptor,
	dst []float32, dstDesc BufferDescriptor, table *far.StencilTable) error {
	if table == nil {
		return ErrNilTable
	}
	if !srcDesc.IsValid() {
		return fmt.Errorf("%w: source %v", ErrInvalidDescriptor, srcDesc)
	}
	if !dstDesc.IsValid() {
		return fmt.Errorf("%w: destination %v", ErrInvalidDescriptor, dstDesc)
	}
	if need := srcDesc.required(table.NumControlVertices()); len(src) < need {
		return fmt.Errorf("%w: source holds %d floats, need %d", ErrBufferTooSmall, len(src), need)
	}
	if need := dstDesc.required(table.NumStencils()); len(dst) < need {
		return fmt.Errorf("%w: destination holds %d floats, need %d", ErrBufferTooSmall, len(dst), need)
	}
	return nil
}

// EvalStencilsDense multiplies the table's sparse operator with src, a
// NumControlVertices x components matrix, returning NumStencils x
// components.
func EvalStencilsDense(table *far.StencilTable, src mat.Matrix) (*mat.Dense, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	r, c := src.Dims()
	if r != table.NumControlVertices() {
		return nil, fmt.Errorf("%w: source has %d rows, table needs %d",
			ErrBufferTooSmall, r, table.NumControlVertices())
	}
	if table.NumStencils() == 0 {
		return nil, fmt.Errorf("%w: table has no stencils", ErrBufferTooSmall)
	}
	dst := mat.NewDense(table.NumStencils(), c, nil)
	dst.Mul(table.Matrix(), src)
	return dst, nil
}
