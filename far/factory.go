package far

import (
	"fmt"
	"math"

	"github.com/notargets/gosubdiv/utils"
	"gonum.org/v1/gonum/floats/scalar"
)

// block is one level's flattened stencils, kept in float64 while further
// levels are composed from it.
type block struct {
	sizes   []int32
	offsets []int
	indices []Index
	weights []float64
}

func identityBlock(n int) *block {
	b := &block{
		sizes:   make([]int32, n),
		offsets: make([]int, n),
		indices: make([]Index, n),
		weights: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b.sizes[i] = 1
		b.offsets[i] = i
		b.indices[i] = Index(i)
		b.weights[i] = 1
	}
	return b
}

func (b *block) stencil(i Index) ([]Index, []float64) {
	off := b.offsets[i]
	end := off + int(b.sizes[i])
	return b.indices[off:end], b.weights[off:end]
}

func (b *block) len() int { return len(b.sizes) }

func concatBlocks(parts []*block) *block {
	var (
		nStencils, nEntries int
	)
	for _, p := range parts {
		nStencils += p.len()
		nEntries += len(p.indices)
	}
	out := &block{
		sizes:   make([]int32, 0, nStencils),
		offsets: make([]int, 0, nStencils),
		indices: make([]Index, 0, nEntries),
		weights: make([]float64, 0, nEntries),
	}
	for _, p := range parts {
		for _, off := range p.offsets {
			out.offsets = append(out.offsets, off+len(out.indices))
		}
		out.sizes = append(out.sizes, p.sizes...)
		out.indices = append(out.indices, p.indices...)
		out.weights = append(out.weights, p.weights...)
	}
	return out
}

// factory carries the state shared by every level of one Create call.
type factory struct {
	ps        pointSource
	counts    []int // point count per level
	tol       float64
	workers   int
	factorize bool
}

// Create builds a stencil table from a refiner. Base-level points get
// identity stencils; each refined point's stencil is its parent mask with
// every parent replaced by that parent's own flattened stencil, merged so
// each control vertex appears at most once. Indices within a stencil are
// emitted in ascending order.
//
// Errors wrap ErrInvalidOptions, ErrConstruction or ErrInvariantViolation.
// On error no table is returned.
func Create(refiner TopologyRefiner, opts Options) (*StencilTable, error) {
	if refiner == nil {
		return nil, fmt.Errorf("%w: nil refiner", ErrConstruction)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var (
		log      = Logger()
		maxLevel = refiner.MaxLevel()
	)
	if maxLevel < 0 {
		return nil, fmt.Errorf("%w: refiner reports max level %d", ErrConstruction, maxLevel)
	}
	if opts.InterpolationMode == FaceVarying && opts.FVarChannel >= refiner.NumFVarChannels() {
		return nil, fmt.Errorf("%w: face-varying channel %d requested, refiner has %d",
			ErrConstruction, opts.FVarChannel, refiner.NumFVarChannels())
	}
	f := &factory{
		ps: pointSource{
			refiner: refiner,
			mode:    opts.InterpolationMode,
			channel: opts.FVarChannel,
		},
		counts:    make([]int, maxLevel+1),
		tol:       opts.tolerance(),
		workers:   opts.workers(),
		factorize: opts.FactorizeIntermediateLevels,
	}
	for level := range f.counts {
		if f.counts[level] = f.ps.count(level); f.counts[level] <= 0 {
			return nil, fmt.Errorf("%w: refiner reports %d %v points at level %d",
				ErrConstruction, f.counts[level], opts.InterpolationMode, level)
		}
	}

	var (
		tb      = &tableBuilder{}
		emit    = func(level int) bool { return opts.LevelScope == AllLevelsCumulative || level == maxLevel }
		prev    = identityBlock(f.counts[0])
		cur     *block
		err     error
		nCoarse = f.counts[0]
	)
	if emit(0) {
		tb.append(prev)
	}
	for level := 1; level <= maxLevel; level++ {
		switch {
		case f.factorize:
			if cur, err = f.flattenLevel(level, prev); err != nil {
				log.Warn("far: stencil construction failed", "level", level, "err", err)
				return nil, err
			}
			prev = cur
		case emit(level):
			if cur, err = f.flattenLevel(level, nil); err != nil {
				log.Warn("far: stencil construction failed", "level", level, "err", err)
				return nil, err
			}
		default:
			continue
		}
		log.Debug("far: flattened level", "level", level,
			"stencils", cur.len(), "entries", len(cur.indices))
		if emit(level) {
			tb.append(cur)
		}
	}

	if err = checkEntryCount(len(tb.indices)); err != nil {
		return nil, err
	}
	var offsets []Index
	if opts.GenerateOffsets {
		offsets = prefixOffsets(tb.sizes)
	}
	st := newStencilTable(nCoarse, opts.InterpolationMode, tb.sizes, offsets, tb.indices, tb.weights)
	if err = st.checkLayout(); err != nil {
		return nil, err
	}
	log.Info("far: stencil table built", "mode", opts.InterpolationMode,
		"levels", maxLevel, "stencils", st.NumStencils(), "entries", st.NumEntries())
	return st, nil
}

// flattenLevel computes every stencil of level. With prev set the stencils
// are composed from prev, the flattened level-1 stencils; with prev nil each
// is expanded recursively down to level 0.
func (f *factory) flattenLevel(level int, prev *block) (*block, error) {
	var (
		count   = f.counts[level]
		workers = min(f.workers, count)
		pm      = utils.NewPartitionMap(max(workers, 1), count)
		parts   = make([]*block, pm.ParallelDegree)
		errs    = make([]error, pm.ParallelDegree)
	)
	pm.ForEachBucket(func(np, kMin, kMax int) {
		parts[np], errs[np] = f.flattenRange(level, kMin, kMax, prev)
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return concatBlocks(parts), nil
}

func (f *factory) flattenRange(level, kMin, kMax int, prev *block) (*block, error) {
	var (
		acc = newAccumulator(f.counts[0])
		b   = &block{
			sizes:   make([]int32, 0, kMax-kMin),
			offsets: make([]int, 0, kMax-kMin),
		}
		n   int
		sum float64
	)
	for k := kMin; k < kMax; k++ {
		point := Index(k)
		if prev != nil {
			m := f.ps.mask(level, point)
			if err := checkMask(m, f.counts[level-1], f.tol); err != nil {
				return nil, fmt.Errorf("%w: level %d point %d: %v", ErrConstruction, level, point, err)
			}
			for j, p := range m.Indices {
				w := float64(m.Weights[j])
				indices, weights := prev.stencil(p)
				for e, idx := range indices {
					acc.add(idx, w*weights[e])
				}
			}
		} else if err := f.expand(level, point, 1, acc); err != nil {
			return nil, err
		}
		b.offsets = append(b.offsets, len(b.indices))
		b.indices, b.weights, n, sum = acc.emit(b.indices, b.weights)
		if !scalar.EqualWithinAbs(sum, 1, f.tol) {
			return nil, fmt.Errorf("%w: level %d point %d weights sum to %v",
				ErrInvariantViolation, level, point, sum)
		}
		b.sizes = append(b.sizes, int32(n))
	}
	return b, nil
}

// expand adds scale times the base-level expansion of point at level.
func (f *factory) expand(level int, point Index, scale float64, acc *accumulator) error {
	if level == 0 {
		acc.add(point, scale)
		return nil
	}
	m := f.ps.mask(level, point)
	if err := checkMask(m, f.counts[level-1], f.tol); err != nil {
		return fmt.Errorf("%w: level %d point %d: %v", ErrConstruction, level, point, err)
	}
	for j, p := range m.Indices {
		if err := f.expand(level-1, p, scale*float64(m.Weights[j]), acc); err != nil {
			return err
		}
	}
	return nil
}

// checkEntryCount rejects tables whose offsets would not fit in an Index.
func checkEntryCount(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("%w: %d entries exceed index range", ErrConstruction, n)
	}
	return nil
}

// tableBuilder concatenates emitted levels into the final float32 arrays.
type tableBuilder struct {
	sizes   []int32
	indices []Index
	weights []float32
}

func (tb *tableBuilder) append(b *block) {
	tb.sizes = append(tb.sizes, b.sizes...)
	tb.indices = append(tb.indices, b.indices...)
	for _, w := range b.weights {
		tb.weights = append(tb.weights, float32(w))
	}
}
