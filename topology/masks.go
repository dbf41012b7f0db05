package topology

import "github.com/notargets/gosubdiv/far"

// maskBuilder merges weights by parent index while a mask is assembled.
type maskBuilder struct {
	indices []far.Index
	weights []float64
}

func (mb *maskBuilder) add(i far.Index, w float64) {
	for k, j := range mb.indices {
		if j == i {
			mb.weights[k] += w
			return
		}
	}
	mb.indices = append(mb.indices, i)
	mb.weights = append(mb.weights, w)
}

// addFace adds w spread evenly over the vertices of a face.
func (mb *maskBuilder) addFace(verts []far.Index, w float64) {
	share := w / float64(len(verts))
	for _, v := range verts {
		mb.add(v, share)
	}
}

func (mb *maskBuilder) mask() far.Mask {
	m := far.Mask{
		Indices: make([]far.Index, len(mb.indices)),
		Weights: make([]float32, len(mb.weights)),
	}
	copy(m.Indices, mb.indices)
	for k, w := range mb.weights {
		m.Weights[k] = float32(w)
	}
	mb.indices = mb.indices[:0]
	mb.weights = mb.weights[:0]
	return m
}

// facePointMask is the centroid of parent face f.
func (lv *level) facePointMask(mb *maskBuilder, f int) far.Mask {
	mb.addFace(lv.faceVerts[f], 1)
	return mb.mask()
}

// edgePointMask is the Catmull-Clark edge point, or the midpoint for
// boundary edges and linear rules.
func (lv *level) edgePointMask(mb *maskBuilder, e int, linear bool) far.Mask {
	v0, v1 := lv.edges[e][0], lv.edges[e][1]
	if linear || lv.isBoundaryEdge(e) {
		mb.add(v0, 0.5)
		mb.add(v1, 0.5)
		return mb.mask()
	}
	// Average of the endpoints and the two adjacent face points.
	mb.add(v0, 0.25)
	mb.add(v1, 0.25)
	for _, f := range lv.edgeFaces[e] {
		mb.addFace(lv.faceVerts[f], 0.25)
	}
	return mb.mask()
}

// vertexPointMask is the Catmull-Clark vertex point of parent vertex v.
func (lv *level) vertexPointMask(mb *maskBuilder, v far.Index, linear bool, bi BoundaryInterpolation) far.Mask {
	var (
		edges = lv.vertEdges[v]
		faces = lv.vertFaces[v]
	)
	if linear || len(faces) == 0 {
		mb.add(v, 1)
		return mb.mask()
	}
	var boundary []far.Index
	for _, e := range edges {
		if lv.isBoundaryEdge(e) {
			boundary = append(boundary, lv.otherVertex(e, v))
		}
	}
	switch {
	case !lv.isSingleFan(v):
		// Several fans meet at v, e.g. two closed surfaces sharing a vertex
		mb.add(v, 1)
	case len(boundary) == 0 && len(faces) == len(edges):
		// Smooth interior: (n-2)/n v + 1/n^2 sum(edge neighbors) + 1/n^2 sum(face points)
		n := float64(len(edges))
		mb.add(v, (n-2)/n)
		for _, e := range edges {
			mb.add(lv.otherVertex(e, v), 1/(n*n))
		}
		for _, f := range faces {
			mb.addFace(lv.faceVerts[f], 1/(n*n))
		}
	case len(boundary) == 2 && !(bi == EdgeAndCorner && len(faces) == 1):
		// Crease rule along the boundary
		mb.add(v, 0.75)
		mb.add(boundary[0], 0.125)
		mb.add(boundary[1], 0.125)
	default:
		// Corner or non-manifold vertex stays put
		mb.add(v, 1)
	}
	return mb.mask()
}

// isSingleFan reports whether the faces around v are connected through
// the edges incident to v.
func (lv *level) isSingleFan(v far.Index) bool {
	var (
		faces   = lv.vertFaces[v]
		visited = map[int]bool{faces[0]: true}
		stack   = []int{faces[0]}
	)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range lv.faceEdges[f] {
			if lv.edges[e][0] != v && lv.edges[e][1] != v {
				continue
			}
			for _, g := range lv.edgeFaces[e] {
				if !visited[g] {
					visited[g] = true
					stack = append(stack, g)
				}
			}
		}
	}
	return len(visited) == len(faces)
}
