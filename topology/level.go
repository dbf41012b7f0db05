package topology

import (
	"fmt"

	"github.com/notargets/gosubdiv/far"
)

// level is the connectivity of one refinement level. Edge e of face f runs
// from corner e to corner e+1 of faceVerts[f].
type level struct {
	numVerts  int
	faceVerts [][]far.Index
	edges     [][2]far.Index
	faceEdges [][]int
	edgeFaces [][]int
	vertEdges [][]int
	vertFaces [][]int

	// Set for refined levels: how this level was produced from the previous.
	faceParent   []far.Index
	vertexMasks  []far.Mask
	varyingMasks []far.Mask

	fvar []*fvarLevel
}

// fvarLevel is one face-varying channel at one level.
type fvarLevel struct {
	numValues  int
	faceValues [][]far.Index
	masks      []far.Mask // refined levels only
}

type edgeKey [2]far.Index

func newEdgeKey(a, b far.Index) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// newLevel builds edge and incidence tables for a face list.
func newLevel(numVerts int, faceVerts [][]far.Index) (*level, error) {
	var (
		lv = &level{
			numVerts:  numVerts,
			faceVerts: faceVerts,
			faceEdges: make([][]int, len(faceVerts)),
			vertEdges: make([][]int, numVerts),
			vertFaces: make([][]int, numVerts),
		}
		edgeMap = make(map[edgeKey]int)
	)
	for f, verts := range faceVerts {
		n := len(verts)
		lv.faceEdges[f] = make([]int, n)
		for i, v := range verts {
			lv.vertFaces[v] = append(lv.vertFaces[v], f)
			key := newEdgeKey(v, verts[(i+1)%n])
			e, exists := edgeMap[key]
			if !exists {
				e = len(lv.edges)
				edgeMap[key] = e
				lv.edges = append(lv.edges, key)
				lv.edgeFaces = append(lv.edgeFaces, nil)
				lv.vertEdges[key[0]] = append(lv.vertEdges[key[0]], e)
				lv.vertEdges[key[1]] = append(lv.vertEdges[key[1]], e)
			}
			if len(lv.edgeFaces[e]) == 2 {
				return nil, fmt.Errorf("%w: edge (%d,%d)", ErrNonManifold, key[0], key[1])
			}
			lv.edgeFaces[e] = append(lv.edgeFaces[e], f)
			lv.faceEdges[f][i] = e
		}
	}
	return lv, nil
}

func (lv *level) numFaces() int { return len(lv.faceVerts) }
func (lv *level) numEdges() int { return len(lv.edges) }

func (lv *level) isBoundaryEdge(e int) bool { return len(lv.edgeFaces[e]) == 1 }

// otherVertex is the endpoint of e that is not v.
func (lv *level) otherVertex(e int, v far.Index) far.Index {
	if lv.edges[e][0] == v {
		return lv.edges[e][1]
	}
	return lv.edges[e][0]
}

// cornerIndex is the position of v in face f, or -1.
func (lv *level) cornerIndex(f int, v far.Index) int {
	for i, w := range lv.faceVerts[f] {
		if w == v {
			return i
		}
	}
	return -1
}
