package far

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkTable asserts the layout, partition of unity and evaluation
// properties every table must have.
func checkTable(t *testing.T, st *StencilTable) {
	t.Helper()
	var (
		sizes   = st.Sizes()
		offsets = st.Offsets()
		indices = st.ControlIndices()
		weights = st.Weights()
		total   int
	)
	require.Len(t, offsets, st.NumStencils())
	require.Len(t, indices, len(weights))
	for i, n := range sizes {
		assert.Equal(t, Index(total), offsets[i], "offset %d", i)
		s, ok := st.Stencil(i)
		require.True(t, ok)
		assert.Len(t, s.Indices(), int(n))
		assert.Len(t, s.Weights(), int(n))
		var sum float64
		for _, w := range s.Weights() {
			sum += float64(w)
		}
		assert.InDelta(t, 1, sum, DefaultWeightTolerance, "stencil %d", i)
		total += int(n)
	}
	assert.Equal(t, total, len(indices))
	for j, idx := range indices {
		assert.True(t, idx >= 0 && int(idx) < st.NumControlVertices(), "entry %d index %d", j, idx)
	}
	_, ok := st.Stencil(st.NumStencils())
	assert.False(t, ok)
	_, ok = st.Stencil(st.NumStencils() + 10)
	assert.False(t, ok)
	if st.NumStencils() > 0 {
		_, ok = st.Stencil(0)
		assert.True(t, ok)
	}

	// Evaluating V[k] = k reproduces the weighted index sums
	var (
		src = make([]float32, st.NumControlVertices())
		dst = make([]float32, st.NumStencils())
	)
	for k := range src {
		src[k] = float32(k)
	}
	require.NoError(t, st.UpdateValues(src, dst, 1))
	for i, n := range sizes {
		var want float64
		for j := int(offsets[i]); j < int(offsets[i])+int(n); j++ {
			want += float64(weights[j]) * float64(indices[j])
		}
		assert.InDelta(t, want, dst[i], 1e-4, "stencil %d", i)
	}
	assert.NoError(t, st.Validate(0))
}

func TestCreateBaseLevel(t *testing.T) {
	r := &chainRefiner{counts: []int{6}}
	for _, scope := range []LevelScope{LastLevelOnly, AllLevelsCumulative} {
		opts := DefaultOptions()
		opts.LevelScope = scope
		st, err := Create(r, opts)
		require.NoError(t, err)
		checkTable(t, st)
		assert.Equal(t, 6, st.NumStencils())
		assert.Equal(t, 6, st.NumControlVertices())
		for i := 0; i < 6; i++ {
			s, ok := st.Stencil(i)
			require.True(t, ok)
			assert.Equal(t, []Index{Index(i)}, s.Indices())
			assert.Equal(t, []float32{1}, s.Weights())
		}
	}
}

func TestCreateMerge(t *testing.T) {
	for _, factorize := range []bool{true, false} {
		opts := DefaultOptions()
		opts.FactorizeIntermediateLevels = factorize
		st, err := Create(mergeRefiner(), opts)
		require.NoError(t, err)
		checkTable(t, st)
		require.Equal(t, 1, st.NumStencils())
		s, _ := st.Stencil(0)
		// Coarse vertex 1 is reached through both level-1 parents and
		// appears once with the summed weight
		assert.Equal(t, []Index{0, 1, 2}, s.Indices())
		assert.Equal(t, []float32{0.25, 0.5, 0.25}, s.Weights())
	}
}

func TestCreateLevelScope(t *testing.T) {
	r := ladderRefiner()
	{ // Finest level only
		st, err := Create(r, DefaultOptions())
		require.NoError(t, err)
		checkTable(t, st)
		assert.Equal(t, 33, st.NumStencils())
		assert.Equal(t, 5, st.NumControlVertices())
		assert.Equal(t, Vertex, st.InterpolationMode())
	}
	{ // Every level, base first
		opts := DefaultOptions()
		opts.LevelScope = AllLevelsCumulative
		st, err := Create(r, opts)
		require.NoError(t, err)
		checkTable(t, st)
		assert.Equal(t, 5+9+17+33, st.NumStencils())
		for i := 0; i < 5; i++ {
			s, _ := st.Stencil(i)
			assert.Equal(t, []Index{Index(i)}, s.Indices())
		}
		// The finest level matches the last-level-only table
		last, err := Create(r, DefaultOptions())
		require.NoError(t, err)
		for i := 0; i < 33; i++ {
			a, _ := st.Stencil(5 + 9 + 17 + i)
			b, _ := last.Stencil(i)
			assert.Equal(t, b.Indices(), a.Indices())
			assert.Equal(t, b.Weights(), a.Weights())
		}
	}
}

func TestCreateSortedIndices(t *testing.T) {
	st, err := Create(ladderRefiner(), DefaultOptions())
	require.NoError(t, err)
	st.Stencils(func(i int, s Stencil) bool {
		idx := s.Indices()
		for k := 1; k < len(idx); k++ {
			assert.Less(t, idx[k-1], idx[k], "stencil %d", i)
		}
		for _, w := range s.Weights() {
			assert.NotZero(t, w)
		}
		return true
	})
}

func TestCreateFactorizationEquivalence(t *testing.T) {
	for _, scope := range []LevelScope{LastLevelOnly, AllLevelsCumulative} {
		opts := DefaultOptions()
		opts.LevelScope = scope
		opts.FactorizeIntermediateLevels = true
		factorized, err := Create(ladderRefiner(), opts)
		require.NoError(t, err)
		opts.FactorizeIntermediateLevels = false
		expanded, err := Create(ladderRefiner(), opts)
		require.NoError(t, err)
		checkTable(t, expanded)

		assert.Equal(t, factorized.Sizes(), expanded.Sizes())
		assert.Equal(t, factorized.ControlIndices(), expanded.ControlIndices())
		assert.InDeltaSlice(t, factorized.Weights(), expanded.Weights(), 1e-6)
	}
}

func TestCreateWorkerIndependence(t *testing.T) {
	opts := DefaultOptions()
	opts.LevelScope = AllLevelsCumulative
	opts.Workers = 1
	serial, err := Create(ladderRefiner(), opts)
	require.NoError(t, err)
	for _, workers := range []int{2, 3, 7, 64} {
		opts.Workers = workers
		st, err := Create(ladderRefiner(), opts)
		require.NoError(t, err)
		assert.Equal(t, serial.Sizes(), st.Sizes(), "workers %d", workers)
		assert.Equal(t, serial.ControlIndices(), st.ControlIndices(), "workers %d", workers)
		assert.Equal(t, serial.Weights(), st.Weights(), "workers %d", workers)
	}
}

func TestCreateOffsets(t *testing.T) {
	{
		opts := DefaultOptions()
		opts.GenerateOffsets = true
		st, err := Create(ladderRefiner(), opts)
		require.NoError(t, err)
		assert.True(t, st.HasOffsets())
		checkTable(t, st)
	}
	{
		st, err := Create(ladderRefiner(), DefaultOptions())
		require.NoError(t, err)
		assert.False(t, st.HasOffsets())
		// Derived on demand, never empty for a non-empty table
		assert.Len(t, st.Offsets(), st.NumStencils())
		assert.False(t, st.HasOffsets())
	}
}

func TestCreateVarying(t *testing.T) {
	opts := DefaultOptions()
	opts.InterpolationMode = Varying
	st, err := Create(ladderRefiner(), opts)
	require.NoError(t, err)
	checkTable(t, st)
	assert.Equal(t, Varying, st.InterpolationMode())
	// Varying masks pick a single parent, so every stencil has one entry
	for _, n := range st.Sizes() {
		assert.Equal(t, int32(1), n)
	}
}

func TestCreateFaceVarying(t *testing.T) {
	r := &chainRefiner{
		counts:     []int{3, 2},
		masks:      [][]Mask{nil, {avg(0, 1), avg(1, 2)}},
		fvarCounts: []int{4, 3},
		fvar:       [][]Mask{nil, {avg(0, 1), avg(2, 3), avg(0, 3)}},
	}
	opts := DefaultOptions()
	opts.InterpolationMode = FaceVarying
	st, err := Create(r, opts)
	require.NoError(t, err)
	checkTable(t, st)
	assert.Equal(t, FaceVarying, st.InterpolationMode())
	assert.Equal(t, 4, st.NumControlVertices())
	assert.Equal(t, 3, st.NumStencils())

	opts.FVarChannel = 1
	_, err = Create(r, opts)
	assert.True(t, errors.Is(err, ErrConstruction))
}

func TestCreateErrors(t *testing.T) {
	good := func() *chainRefiner { return mergeRefiner() }
	testCases := []struct {
		name    string
		refiner TopologyRefiner
		opts    Options
		target  error
	}{
		{
			name:   "nil refiner",
			opts:   DefaultOptions(),
			target: ErrConstruction,
		},
		{
			name:    "invalid options",
			refiner: good(),
			opts:    Options{Workers: -1},
			target:  ErrInvalidOptions,
		},
		{
			name:    "no coarse vertices",
			refiner: &chainRefiner{counts: []int{0}},
			opts:    DefaultOptions(),
			target:  ErrConstruction,
		},
		{
			name:    "negative max level",
			refiner: &chainRefiner{},
			opts:    DefaultOptions(),
			target:  ErrConstruction,
		},
		{
			name: "empty refined level",
			refiner: &chainRefiner{
				counts: []int{3, 0},
				masks:  [][]Mask{nil, {}},
			},
			opts:   DefaultOptions(),
			target: ErrConstruction,
		},
		{
			name: "parent out of range",
			refiner: &chainRefiner{
				counts: []int{2, 1},
				masks:  [][]Mask{nil, {avg(0, 2)}},
			},
			opts:   DefaultOptions(),
			target: ErrConstruction,
		},
		{
			name: "mask sum",
			refiner: &chainRefiner{
				counts: []int{2, 1},
				masks:  [][]Mask{nil, {mask([]Index{0, 1}, 0.5, 0.4)}},
			},
			opts:   DefaultOptions(),
			target: ErrConstruction,
		},
		{
			name: "mask length mismatch",
			refiner: &chainRefiner{
				counts: []int{2, 1},
				masks:  [][]Mask{nil, {mask([]Index{0, 1}, 1)}},
			},
			opts:   Options{},
			target: ErrConstruction,
		},
		{
			name:    "face-varying without channels",
			refiner: good(),
			opts:    Options{InterpolationMode: FaceVarying},
			target:  ErrConstruction,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, factorize := range []bool{true, false} {
				tc.opts.FactorizeIntermediateLevels = factorize
				st, err := Create(tc.refiner, tc.opts)
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.target), "got %v", err)
				assert.Nil(t, st)
			}
		})
	}
}

func TestCheckEntryCount(t *testing.T) {
	assert.NoError(t, checkEntryCount(0))
	assert.NoError(t, checkEntryCount(math.MaxInt32))
	assert.True(t, errors.Is(checkEntryCount(math.MaxInt32+1), ErrConstruction))
}

func TestCreateWeightDrift(t *testing.T) {
	// Each mask is within tolerance but their composition is not
	r := &chainRefiner{
		counts: []int{2, 1, 1},
		masks: [][]Mask{
			nil,
			{mask([]Index{0, 1}, 0.5, 0.500008)},
			{mask([]Index{0}, 1.000008)},
		},
	}
	for _, factorize := range []bool{true, false} {
		opts := DefaultOptions()
		opts.FactorizeIntermediateLevels = factorize
		st, err := Create(r, opts)
		assert.True(t, errors.Is(err, ErrInvariantViolation), "got %v", err)
		assert.Nil(t, st)
	}
}
