// Package mesh holds polygonal control meshes read from mesh files and
// converts them into refiner descriptors.
package mesh

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notargets/gosubdiv/topology"
)

// ElementType represents the element kinds a control mesh may carry
type ElementType int

const (
	Line ElementType = iota
	Triangle
	Quad
)

func (e ElementType) String() string {
	return [...]string{"Line", "Triangle", "Quad"}[e]
}

// GetNumNodes returns the number of corner nodes of the element
func (e ElementType) GetNumNodes() int {
	switch e {
	case Line:
		return 2
	case Triangle:
		return 3
	case Quad:
		return 4
	}
	return 0
}

// BoundaryElement is a marker element, such as a boundary edge in 2D
type BoundaryElement struct {
	ElementType ElementType
	Nodes       []int
}

// Mesh is a polygonal control mesh
type Mesh struct {
	// Geometry
	Vertices [][]float64 // Vertex coordinates [nvertices][3]

	// Element data
	EtoV         [][]int       // Element to vertex connectivity, counter-clockwise
	ElementTypes []ElementType // Element type for each element

	// Markers
	BoundaryTags     map[int]string               // Marker index -> name
	BoundaryElements map[string][]BoundaryElement // Marker name -> elements

	// Mesh statistics
	NumElements int
	NumVertices int
}

// NewMesh creates an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		BoundaryTags:     make(map[int]string),
		BoundaryElements: make(map[string][]BoundaryElement),
	}
}

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".su2":
		return ReadSU2(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// AddBoundaryElement appends a marker element under tag
func (m *Mesh) AddBoundaryElement(tag string, be BoundaryElement) {
	m.BoundaryElements[tag] = append(m.BoundaryElements[tag], be)
}

// Descriptor converts the mesh faces into a refiner descriptor. The slices
// are copied.
func (m *Mesh) Descriptor() topology.Descriptor {
	faces := make([][]int, len(m.EtoV))
	for k, verts := range m.EtoV {
		faces[k] = append([]int(nil), verts...)
	}
	return topology.Descriptor{
		NumVertices: len(m.Vertices),
		FaceVerts:   faces,
	}
}

// Positions flattens the vertex coordinates to interleaved xyz float32.
func (m *Mesh) Positions() []float32 {
	pos := make([]float32, 3*len(m.Vertices))
	for i, v := range m.Vertices {
		for d := 0; d < 3 && d < len(v); d++ {
			pos[3*i+d] = float32(v[d])
		}
	}
	return pos
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", m.NumVertices)
	fmt.Printf("  Elements: %d\n", m.NumElements)

	// Count element types
	typeCounts := make(map[ElementType]int)
	for _, t := range m.ElementTypes {
		typeCounts[t]++
	}
	fmt.Printf("  Element types:\n")
	for t := Line; t <= Quad; t++ {
		if count := typeCounts[t]; count > 0 {
			fmt.Printf("    %s: %d\n", t, count)
		}
	}

	tags := make([]string, 0, len(m.BoundaryElements))
	for tag := range m.BoundaryElements {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Printf("  Marker %s: %d elements\n", tag, len(m.BoundaryElements[tag]))
	}
}
