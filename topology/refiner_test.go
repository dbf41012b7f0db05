package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosubdiv/far"
)

func newRefined(t *testing.T, desc Descriptor, opts Options, levels int) *Refiner {
	t.Helper()
	r, err := NewRefiner(desc, opts)
	require.NoError(t, err)
	require.NoError(t, r.RefineUniform(levels))
	return r
}

// weightsOf maps parent index to weight.
func weightsOf(m far.Mask) map[far.Index]float64 {
	out := make(map[far.Index]float64, m.Size())
	for k, i := range m.Indices {
		out[i] += float64(m.Weights[k])
	}
	return out
}

func assertMask(t *testing.T, want map[far.Index]float64, m far.Mask) {
	t.Helper()
	got := weightsOf(m)
	require.Len(t, got, len(want), "mask %v", m)
	for i, w := range want {
		assert.InDelta(t, w, got[i], 1e-7, "parent %d", i)
	}
}

func edgeIndex(t *testing.T, lv *level, a, b far.Index) int {
	t.Helper()
	key := newEdgeKey(a, b)
	for e, k := range lv.edges {
		if edgeKey(k) == key {
			return e
		}
	}
	t.Fatalf("no edge (%d,%d)", a, b)
	return -1
}

func TestRefineCounts(t *testing.T) {
	{ // 3x3 grid
		desc, _ := Grid(3, 3)
		r := newRefined(t, desc, Options{}, 2)
		assert.Equal(t, 2, r.MaxLevel())
		assert.Equal(t, 16, r.NumVertices(0))
		assert.Equal(t, 9, r.NumFaces(0))
		assert.Equal(t, 24, r.NumEdges(0))
		assert.Equal(t, 9+24+16, r.NumVertices(1))
		assert.Equal(t, 36, r.NumFaces(1))
		assert.Equal(t, 144, r.NumFaces(2))
		assert.Equal(t, 13*13, r.NumVertices(2))
		assert.Equal(t, 16+49+169, r.NumVerticesTotal())
		assert.Equal(t, 0, r.NumVertices(3))
		assert.Equal(t, 0, r.NumFaces(-1))
	}
	{ // Cube
		desc, _ := Cube()
		r := newRefined(t, desc, Options{}, 2)
		assert.Equal(t, 12, r.NumEdges(0))
		assert.Equal(t, 6+12+8, r.NumVertices(1))
		assert.Equal(t, 24, r.NumFaces(1))
		assert.Equal(t, 48, r.NumEdges(1))
		assert.Equal(t, 24+48+26, r.NumVertices(2))
	}
	{ // A triangle becomes three quads
		r := newRefined(t, Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 2}}}, Options{}, 1)
		assert.Equal(t, 3, r.NumFaces(1))
		assert.Equal(t, 1+3+3, r.NumVertices(1))
		for f := 0; f < 3; f++ {
			assert.Len(t, r.FaceVertices(1, far.Index(f)), 4)
		}
	}
}

func TestRefineChildFaces(t *testing.T) {
	desc, _ := Grid(3, 3)
	r := newRefined(t, desc, Options{}, 1)
	base := r.levels[0]
	var (
		nF = far.Index(base.numFaces())
		nE = far.Index(base.numEdges())
	)
	for f := 0; f < base.numFaces(); f++ {
		verts := base.faceVerts[f]
		for i := range verts {
			child := far.Index(4*f + i)
			assert.Equal(t, far.Index(f), r.FaceParent(1, child))
			assert.Equal(t, []far.Index{
				nF + nE + verts[i],
				nF + far.Index(base.faceEdges[f][i]),
				far.Index(f),
				nF + far.Index(base.faceEdges[f][(i+3)%4]),
			}, r.FaceVertices(1, child))
		}
	}
	assert.Equal(t, far.Index(-1), r.FaceParent(0, 0))
	assert.Equal(t, far.Index(-1), r.FaceParent(1, 36))
	assert.Nil(t, r.FaceVertices(1, 36))
}

func TestCatmullClarkMasks(t *testing.T) {
	desc, _ := Grid(3, 3)
	r := newRefined(t, desc, Options{}, 1)
	var (
		base   = r.levels[0]
		nF, nE = base.numFaces(), base.numEdges()
		vPoint = func(v int) far.Index { return far.Index(nF + nE + v) }
		ePoint = func(a, b far.Index) far.Index { return far.Index(nF + edgeIndex(t, base, a, b)) }
	)
	{ // Face point of face 4 (vertices 5, 6, 10, 9)
		assertMask(t, map[far.Index]float64{5: 0.25, 6: 0.25, 10: 0.25, 9: 0.25},
			r.VertexMask(1, 4, false))
	}
	{ // Interior edge (5,6)
		assertMask(t, map[far.Index]float64{
			5: 3. / 8, 6: 3. / 8,
			1: 1. / 16, 2: 1. / 16, 9: 1. / 16, 10: 1. / 16,
		}, r.VertexMask(1, ePoint(5, 6), false))
	}
	{ // Boundary edge (0,1) is a midpoint
		assertMask(t, map[far.Index]float64{0: 0.5, 1: 0.5}, r.VertexMask(1, ePoint(0, 1), false))
	}
	{ // Smooth interior vertex of valence 4
		assertMask(t, map[far.Index]float64{
			5: 9. / 16,
			1: 3. / 32, 4: 3. / 32, 6: 3. / 32, 9: 3. / 32,
			0: 1. / 64, 2: 1. / 64, 8: 1. / 64, 10: 1. / 64,
		}, r.VertexMask(1, vPoint(5), false))
	}
	{ // Boundary vertex follows the crease rule
		assertMask(t, map[far.Index]float64{1: 0.75, 0: 0.125, 2: 0.125}, r.VertexMask(1, vPoint(1), false))
	}
	{ // Corner under edge-only interpolation also follows the crease rule
		assertMask(t, map[far.Index]float64{0: 0.75, 1: 0.125, 4: 0.125}, r.VertexMask(1, vPoint(0), false))
	}
	{ // Varying masks are linear
		assertMask(t, map[far.Index]float64{5: 1}, r.VertexMask(1, vPoint(5), true))
		assertMask(t, map[far.Index]float64{5: 0.5, 6: 0.5}, r.VertexMask(1, ePoint(5, 6), true))
	}
	{ // Invalid requests give empty masks
		assert.Zero(t, r.VertexMask(0, 0, false).Size())
		assert.Zero(t, r.VertexMask(1, far.Index(r.NumVertices(1)), false).Size())
		assert.Zero(t, r.VertexMask(2, 0, false).Size())
	}
}

func TestBoundaryInterpolation(t *testing.T) {
	desc, _ := Grid(3, 3)
	r := newRefined(t, desc, Options{BoundaryInterpolation: EdgeAndCorner}, 1)
	nFE := r.NumFaces(0) + r.NumEdges(0)
	// Corners are pinned, other boundary vertices still crease
	assertMask(t, map[far.Index]float64{0: 1}, r.VertexMask(1, far.Index(nFE), false))
	assertMask(t, map[far.Index]float64{15: 1}, r.VertexMask(1, far.Index(nFE+15), false))
	assertMask(t, map[far.Index]float64{1: 0.75, 0: 0.125, 2: 0.125}, r.VertexMask(1, far.Index(nFE+1), false))
}

func TestNonManifoldVertex(t *testing.T) {
	// Two triangles touching at vertex 0 only
	desc := Descriptor{NumVertices: 5, FaceVerts: [][]int{{0, 1, 2}, {0, 3, 4}}}
	r := newRefined(t, desc, Options{}, 1)
	nFE := r.NumFaces(0) + r.NumEdges(0)
	assertMask(t, map[far.Index]float64{0: 1}, r.VertexMask(1, far.Index(nFE), false))
}

func TestCubesSharingVertex(t *testing.T) {
	// Second cube shifted by (1,1,1): its vertex 0 is the first cube's vertex 6
	desc, _ := Cube()
	var (
		joined = Descriptor{NumVertices: 15}
		remap  = func(v int) int {
			if v == 0 {
				return 6
			}
			return 7 + v
		}
	)
	for _, verts := range desc.FaceVerts {
		joined.FaceVerts = append(joined.FaceVerts, verts)
		shifted := make([]int, len(verts))
		for i, v := range verts {
			shifted[i] = remap(v)
		}
		joined.FaceVerts = append(joined.FaceVerts, shifted)
	}
	r := newRefined(t, joined, Options{}, 1)
	nFE := r.NumFaces(0) + r.NumEdges(0)
	// The shared vertex is held fixed, the other corners stay smooth
	assertMask(t, map[far.Index]float64{6: 1}, r.VertexMask(1, far.Index(nFE+6), false))
	assert.Equal(t, 1+3+3, r.VertexMask(1, far.Index(nFE+5), false).Size())

	st, err := far.Create(r, far.DefaultOptions())
	require.NoError(t, err)
	assert.NoError(t, st.Validate(0))
}

func TestBilinearScheme(t *testing.T) {
	desc, pos := Grid(2, 2)
	r := newRefined(t, desc, Options{Scheme: Bilinear}, 1)
	for v := 0; v < r.NumVertices(1); v++ {
		assert.Equal(t, r.VertexMask(1, far.Index(v), true), r.VertexMask(1, far.Index(v), false))
	}
	st, err := far.Create(r, far.DefaultOptions())
	require.NoError(t, err)
	dst := make([]float32, 3*st.NumStencils())
	require.NoError(t, st.UpdateValues(pos, dst, 3))
	// Level 1 of a bilinear 2x2 grid is the 4x4 grid at half spacing
	seen := make(map[[2]float32]bool)
	for i := 0; i < st.NumStencils(); i++ {
		p := dst[3*i : 3*i+3]
		assert.Zero(t, p[2])
		assert.Zero(t, float32(int(2*p[0]))-2*p[0])
		assert.Zero(t, float32(int(2*p[1]))-2*p[1])
		seen[[2]float32{p[0], p[1]}] = true
	}
	assert.Len(t, seen, 25)
}

func TestRefinerErrors(t *testing.T) {
	testCases := []struct {
		name   string
		desc   Descriptor
		target error
	}{
		{"no vertices", Descriptor{}, ErrInvalidTopology},
		{"short face", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1}}}, ErrInvalidTopology},
		{"index range", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 3}}}, ErrInvalidTopology},
		{"repeated vertex", Descriptor{NumVertices: 4, FaceVerts: [][]int{{0, 1, 1, 2}}}, ErrInvalidTopology},
		{"non-manifold edge", Descriptor{NumVertices: 5,
			FaceVerts: [][]int{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}}}, ErrNonManifold},
		{"fvar face count", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 2}},
			FVarChannels: []FVarChannel{{NumValues: 3}}}, ErrInvalidTopology},
		{"fvar corner count", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 2}},
			FVarChannels: []FVarChannel{{NumValues: 3, FaceValues: [][]int{{0, 1}}}}}, ErrInvalidTopology},
		{"fvar value range", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 2}},
			FVarChannels: []FVarChannel{{NumValues: 2, FaceValues: [][]int{{0, 1, 2}}}}}, ErrInvalidTopology},
		{"fvar no values", Descriptor{NumVertices: 3, FaceVerts: [][]int{{0, 1, 2}},
			FVarChannels: []FVarChannel{{FaceValues: [][]int{{0, 1, 2}}}}}, ErrInvalidTopology},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRefiner(tc.desc, Options{})
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
			assert.Nil(t, r)
		})
	}

	desc, _ := Cube()
	r, err := NewRefiner(desc, Options{})
	require.NoError(t, err)
	assert.True(t, errors.Is(r.RefineUniform(-1), ErrInvalidLevel))
	assert.False(t, r.IsRefined())
	require.NoError(t, r.RefineUniform(1))
	assert.True(t, r.IsRefined())
	assert.True(t, errors.Is(r.RefineUniform(2), ErrAlreadyRefined))
	assert.Equal(t, 1, r.MaxLevel())
}

func TestParseOptions(t *testing.T) {
	for _, s := range []Scheme{CatmullClark, Bilinear} {
		got, err := ParseScheme(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, b := range []BoundaryInterpolation{EdgeOnly, EdgeAndCorner} {
		got, err := ParseBoundaryInterpolation(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseScheme("loop")
	assert.True(t, errors.Is(err, ErrInvalidTopology))
	_, err = ParseBoundaryInterpolation("none")
	assert.True(t, errors.Is(err, ErrInvalidTopology))
	assert.Equal(t, "Scheme(9)", Scheme(9).String())

	desc, _ := Cube()
	r, err := NewRefiner(desc, Options{Scheme: Bilinear})
	require.NoError(t, err)
	assert.Equal(t, Bilinear, r.Options().Scheme)
}
