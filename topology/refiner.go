// Package topology refines polygonal control meshes uniformly and exposes,
// per refined level, the one-level masks that produce every new vertex and
// face-varying value. A Refiner satisfies far.TopologyRefiner.
package topology

import (
	"fmt"

	"github.com/notargets/gosubdiv/far"
)

// Refiner holds the base level and, after RefineUniform, every refined
// level. Once refined it is immutable and safe for concurrent reads.
type Refiner struct {
	opts    Options
	levels  []*level
	refined bool
}

var (
	_ far.TopologyRefiner = (*Refiner)(nil)
	_ far.FaceRefiner     = (*Refiner)(nil)
)

// NewRefiner validates desc and builds the base level.
func NewRefiner(desc Descriptor, opts Options) (*Refiner, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	faceVerts := make([][]far.Index, len(desc.FaceVerts))
	for f, verts := range desc.FaceVerts {
		faceVerts[f] = toIndices(verts)
	}
	base, err := newLevel(desc.NumVertices, faceVerts)
	if err != nil {
		return nil, err
	}
	for _, ch := range desc.FVarChannels {
		fv := &fvarLevel{
			numValues:  ch.NumValues,
			faceValues: make([][]far.Index, len(ch.FaceValues)),
		}
		for f, values := range ch.FaceValues {
			fv.faceValues[f] = toIndices(values)
		}
		base.fvar = append(base.fvar, fv)
	}
	return &Refiner{
		opts:   opts,
		levels: []*level{base},
	}, nil
}

// RefineUniform subdivides every face maxLevel times. Each level orders its
// vertices as face points, then edge points, then vertex points; every
// n-sided parent face becomes n quads. A refiner can be refined once.
func (r *Refiner) RefineUniform(maxLevel int) error {
	if r.refined {
		return ErrAlreadyRefined
	}
	if maxLevel < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, maxLevel)
	}
	log := far.Logger()
	for l := 1; l <= maxLevel; l++ {
		child, err := r.refineLevel(r.levels[l-1])
		if err != nil {
			return fmt.Errorf("refining level %d: %w", l, err)
		}
		r.levels = append(r.levels, child)
		log.Debug("topology: refined level", "level", l, "vertices", child.numVerts,
			"faces", child.numFaces(), "edges", child.numEdges())
	}
	r.refined = true
	return nil
}

func (r *Refiner) refineLevel(p *level) (*level, error) {
	var (
		nF, nE, nV = p.numFaces(), p.numEdges(), p.numVerts
		nChild     int
		linear     = r.opts.Scheme == Bilinear
		mb         = &maskBuilder{}
	)
	edgePoint := func(e int) far.Index { return far.Index(nF + e) }
	vertPoint := func(v far.Index) far.Index { return far.Index(nF+nE) + v }

	for _, verts := range p.faceVerts {
		nChild += len(verts)
	}
	var (
		childFaces = make([][]far.Index, 0, nChild)
		faceParent = make([]far.Index, 0, nChild)
	)
	for f, verts := range p.faceVerts {
		n := len(verts)
		for i := range verts {
			childFaces = append(childFaces, []far.Index{
				vertPoint(verts[i]),
				edgePoint(p.faceEdges[f][i]),
				far.Index(f),
				edgePoint(p.faceEdges[f][(i+n-1)%n]),
			})
			faceParent = append(faceParent, far.Index(f))
		}
	}
	c, err := newLevel(nF+nE+nV, childFaces)
	if err != nil {
		return nil, err
	}
	c.faceParent = faceParent
	c.vertexMasks = make([]far.Mask, c.numVerts)
	c.varyingMasks = make([]far.Mask, c.numVerts)
	for f := 0; f < nF; f++ {
		c.vertexMasks[f] = p.facePointMask(mb, f)
		c.varyingMasks[f] = c.vertexMasks[f]
	}
	for e := 0; e < nE; e++ {
		c.vertexMasks[nF+e] = p.edgePointMask(mb, e, linear)
		c.varyingMasks[nF+e] = p.edgePointMask(mb, e, true)
	}
	for v := 0; v < nV; v++ {
		c.vertexMasks[nF+nE+v] = p.vertexPointMask(mb, far.Index(v), linear, r.opts.BoundaryInterpolation)
		c.varyingMasks[nF+nE+v] = p.vertexPointMask(mb, far.Index(v), true, r.opts.BoundaryInterpolation)
	}
	for _, pf := range p.fvar {
		c.fvar = append(c.fvar, refineFVar(p, pf, mb))
	}
	return c, nil
}

// refineFVar interpolates a face-varying channel linearly. Values on the two
// sides of an edge are shared only when both faces agree on the endpoint
// values, so seams survive refinement.
func refineFVar(p *level, pf *fvarLevel, mb *maskBuilder) *fvarLevel {
	var (
		nF        = p.numFaces()
		masks     = make([]far.Mask, 0, nF+p.numEdges()+pf.numValues)
		sideValue = make([][]far.Index, nF)
	)
	for f := 0; f < nF; f++ {
		mb.addFace(pf.faceValues[f], 1)
		masks = append(masks, mb.mask())
		sideValue[f] = make([]far.Index, len(p.faceVerts[f]))
	}
	type side struct {
		key   edgeKey
		value far.Index
	}
	for e := range p.edges {
		var sides []side
		for _, f := range p.edgeFaces[e] {
			var (
				verts  = p.faceVerts[f]
				values = pf.faceValues[f]
				n      = len(verts)
				i      = indexOf(p.faceEdges[f], e)
				key    edgeKey
			)
			// Key by the value at the lower then the higher edge vertex.
			if verts[i] == p.edges[e][0] {
				key = edgeKey{values[i], values[(i+1)%n]}
			} else {
				key = edgeKey{values[(i+1)%n], values[i]}
			}
			found := false
			for _, s := range sides {
				if s.key == key {
					sideValue[f][i] = s.value
					found = true
					break
				}
			}
			if !found {
				value := far.Index(len(masks))
				mb.add(key[0], 0.5)
				mb.add(key[1], 0.5)
				masks = append(masks, mb.mask())
				sides = append(sides, side{key: key, value: value})
				sideValue[f][i] = value
			}
		}
	}
	base := far.Index(len(masks))
	for v := 0; v < pf.numValues; v++ {
		mb.add(far.Index(v), 1)
		masks = append(masks, mb.mask())
	}
	cf := &fvarLevel{
		numValues: len(masks),
		masks:     masks,
	}
	for f, values := range pf.faceValues {
		n := len(values)
		for i := range values {
			cf.faceValues = append(cf.faceValues, []far.Index{
				base + values[i],
				sideValue[f][i],
				far.Index(f),
				sideValue[f][(i+n-1)%n],
			})
		}
	}
	return cf
}

// Options returns the options the refiner was built with.
func (r *Refiner) Options() Options { return r.opts }

// IsRefined reports whether RefineUniform has been called.
func (r *Refiner) IsRefined() bool { return r.refined }

func (r *Refiner) MaxLevel() int { return len(r.levels) - 1 }

func (r *Refiner) level(l int) *level {
	if l < 0 || l >= len(r.levels) {
		return nil
	}
	return r.levels[l]
}

// NumVertices returns 0 for a level that does not exist.
func (r *Refiner) NumVertices(l int) int {
	if lv := r.level(l); lv != nil {
		return lv.numVerts
	}
	return 0
}

func (r *Refiner) NumFaces(l int) int {
	if lv := r.level(l); lv != nil {
		return lv.numFaces()
	}
	return 0
}

func (r *Refiner) NumEdges(l int) int {
	if lv := r.level(l); lv != nil {
		return lv.numEdges()
	}
	return 0
}

// NumVerticesTotal sums the vertex counts of every level.
func (r *Refiner) NumVerticesTotal() (total int) {
	for _, lv := range r.levels {
		total += lv.numVerts
	}
	return
}

// FaceVertices returns the vertex loop of a face. The slice must not be
// modified.
func (r *Refiner) FaceVertices(l int, face far.Index) []far.Index {
	lv := r.level(l)
	if lv == nil || face < 0 || int(face) >= lv.numFaces() {
		return nil
	}
	return lv.faceVerts[face]
}

// FaceParent returns -1 for the base level or an invalid face.
func (r *Refiner) FaceParent(l int, face far.Index) far.Index {
	lv := r.level(l)
	if l < 1 || lv == nil || face < 0 || int(face) >= len(lv.faceParent) {
		return -1
	}
	return lv.faceParent[face]
}

func (r *Refiner) NumFVarChannels() int { return len(r.levels[0].fvar) }

func (r *Refiner) NumFVarValues(l, channel int) int {
	lv := r.level(l)
	if lv == nil || channel < 0 || channel >= len(lv.fvar) {
		return 0
	}
	return lv.fvar[channel].numValues
}

// FVarFaceValues returns the value indices of a face's corners.
func (r *Refiner) FVarFaceValues(l, channel int, face far.Index) []far.Index {
	lv := r.level(l)
	if lv == nil || channel < 0 || channel >= len(lv.fvar) || face < 0 || int(face) >= lv.numFaces() {
		return nil
	}
	return lv.fvar[channel].faceValues[face]
}

// VertexMask returns an empty mask for the base level or an invalid vertex.
func (r *Refiner) VertexMask(l int, vertex far.Index, varying bool) far.Mask {
	lv := r.level(l)
	if l < 1 || lv == nil || vertex < 0 || int(vertex) >= lv.numVerts {
		return far.Mask{}
	}
	if varying {
		return lv.varyingMasks[vertex]
	}
	return lv.vertexMasks[vertex]
}

// FVarMask returns an empty mask for the base level or an invalid value.
func (r *Refiner) FVarMask(l, channel int, value far.Index) far.Mask {
	lv := r.level(l)
	if l < 1 || lv == nil || channel < 0 || channel >= len(lv.fvar) {
		return far.Mask{}
	}
	fv := lv.fvar[channel]
	if value < 0 || int(value) >= len(fv.masks) {
		return far.Mask{}
	}
	return fv.masks[value]
}

func toIndices(values []int) []far.Index {
	out := make([]far.Index, len(values))
	for i, v := range values {
		out[i] = far.Index(v)
	}
	return out
}

func indexOf(values []int, x int) int {
	for i, v := range values {
		if v == x {
			return i
		}
	}
	return -1
}
