package topology

// Grid returns an nx by ny grid of unit quads in the z = 0 plane together
// with its interleaved xyz positions. Vertices are numbered row by row,
// (nx+1) per row.
func Grid(nx, ny int) (Descriptor, []float32) {
	var (
		desc = Descriptor{NumVertices: (nx + 1) * (ny + 1)}
		pos  = make([]float32, 0, 3*desc.NumVertices)
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			pos = append(pos, float32(i), float32(j), 0)
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := j*(nx+1) + i
			desc.FaceVerts = append(desc.FaceVerts, []int{v, v + 1, v + nx + 2, v + nx + 1})
		}
	}
	return desc, pos
}

// Cube returns the unit cube as six outward facing quads with its xyz
// positions.
func Cube() (Descriptor, []float32) {
	desc := Descriptor{
		NumVertices: 8,
		FaceVerts: [][]int{
			{0, 3, 2, 1}, // z = 0
			{4, 5, 6, 7}, // z = 1
			{0, 1, 5, 4}, // y = 0
			{3, 7, 6, 2}, // y = 1
			{0, 4, 7, 3}, // x = 0
			{1, 2, 6, 5}, // x = 1
		},
	}
	pos := []float32{
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
		0, 0, 1,
		1, 0, 1,
		1, 1, 1,
		0, 1, 1,
	}
	return desc, pos
}
