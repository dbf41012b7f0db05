package far

import "fmt"

// MaxPrimvarWidth is the widest element PrimvarRefiner interpolates.
const MaxPrimvarWidth = 4

// PrimvarRefiner applies a refiner's masks one level at a time to
// interleaved float32 primvar buffers. It is the level-by-level counterpart
// of a stencil table: interpolating level after level must agree with
// evaluating the table built for the same refiner and mode.
type PrimvarRefiner struct {
	refiner TopologyRefiner
}

func NewPrimvarRefiner(refiner TopologyRefiner) *PrimvarRefiner {
	return &PrimvarRefiner{refiner: refiner}
}

// TopologyRefiner returns the refiner the masks come from.
func (pr *PrimvarRefiner) TopologyRefiner() TopologyRefiner { return pr.refiner }

// Interpolate computes vertex data at level from level-1 data using the
// vertex masks. src and dst hold width floats per vertex.
func (pr *PrimvarRefiner) Interpolate(level, width int, src, dst []float32) error {
	return pr.interpolate(pointSource{refiner: pr.refiner, mode: Vertex}, level, width, src, dst)
}

// InterpolateVarying is Interpolate with the linear varying masks.
func (pr *PrimvarRefiner) InterpolateVarying(level, width int, src, dst []float32) error {
	return pr.interpolate(pointSource{refiner: pr.refiner, mode: Varying}, level, width, src, dst)
}

// InterpolateFaceVarying interpolates the values of a face-varying channel.
func (pr *PrimvarRefiner) InterpolateFaceVarying(level, channel, width int, src, dst []float32) error {
	if channel < 0 || channel >= pr.refiner.NumFVarChannels() {
		return fmt.Errorf("%w: face-varying channel %d, refiner has %d",
			ErrInvalidOptions, channel, pr.refiner.NumFVarChannels())
	}
	return pr.interpolate(pointSource{refiner: pr.refiner, mode: FaceVarying, channel: channel},
		level, width, src, dst)
}

// InterpolateFaceUniform copies per-face data from each parent face to the
// faces refined from it. The refiner must implement FaceRefiner.
func (pr *PrimvarRefiner) InterpolateFaceUniform(level, width int, src, dst []float32) error {
	fr, ok := pr.refiner.(FaceRefiner)
	if !ok {
		return ErrNoFaceRefiner
	}
	if err := pr.checkLevel(level, width); err != nil {
		return err
	}
	var (
		nParent = fr.NumFaces(level - 1)
		nChild  = fr.NumFaces(level)
	)
	if len(src) < nParent*width || len(dst) < nChild*width {
		return fmt.Errorf("%w: need %d source and %d destination floats",
			ErrBufferSize, nParent*width, nChild*width)
	}
	for f := 0; f < nChild; f++ {
		p := int(fr.FaceParent(level, Index(f)))
		if p < 0 || p >= nParent {
			return fmt.Errorf("%w: level %d face %d has parent %d, parent level has %d faces",
				ErrConstruction, level, f, p, nParent)
		}
		copy(dst[f*width:(f+1)*width], src[p*width:(p+1)*width])
	}
	return nil
}

func (pr *PrimvarRefiner) checkLevel(level, width int) error {
	if width < 1 || width > MaxPrimvarWidth {
		return fmt.Errorf("%w: %d, supported 1..%d", ErrUnsupportedWidth, width, MaxPrimvarWidth)
	}
	if level < 1 || level > pr.refiner.MaxLevel() {
		return fmt.Errorf("%w: %d, refiner has levels 1..%d", ErrLevel, level, pr.refiner.MaxLevel())
	}
	return nil
}

func (pr *PrimvarRefiner) interpolate(ps pointSource, level, width int, src, dst []float32) error {
	if err := pr.checkLevel(level, width); err != nil {
		return err
	}
	var (
		nParent = ps.count(level - 1)
		nChild  = ps.count(level)
		sum     [MaxPrimvarWidth]float32
	)
	if len(src) < nParent*width || len(dst) < nChild*width {
		return fmt.Errorf("%w: need %d source and %d destination floats",
			ErrBufferSize, nParent*width, nChild*width)
	}
	for i := 0; i < nChild; i++ {
		m := ps.mask(level, Index(i))
		if err := checkMask(m, nParent, DefaultWeightTolerance); err != nil {
			return fmt.Errorf("%w: level %d point %d: %v", ErrConstruction, level, i, err)
		}
		sum = [MaxPrimvarWidth]float32{}
		for k, p := range m.Indices {
			w := m.Weights[k]
			for c := 0; c < width; c++ {
				sum[c] += w * src[int(p)*width+c]
			}
		}
		copy(dst[i*width:(i+1)*width], sum[:width])
	}
	return nil
}
