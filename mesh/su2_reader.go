package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// su2ElementTypeMap maps SU2/VTK element type identifiers to face types
var su2ElementTypeMap = map[int]ElementType{
	3: Line,     // VTK_LINE
	5: Triangle, // VTK_TRIANGLE
	9: Quad,     // VTK_QUAD
}

// ReadSU2 reads an SU2 native format file holding a surface mesh
func ReadSU2(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadSU2From(file)
}

// ReadSU2From reads SU2 content. NELEM entries must be triangles or quads,
// which become the control faces; markers may hold lines, triangles or
// quads. Coordinates are always stored in 3D.
func ReadSU2From(r io.Reader) (*Mesh, error) {
	var (
		msh               = NewMesh()
		scanner           = bufio.NewScanner(r)
		ndime             int
		hasNDIME, hasNPOI bool
		err               error
	)
	// nextLine returns the next non-empty line with comments removed.
	nextLine := func() (string, bool) {
		for scanner.Scan() {
			line := scanner.Text()
			if idx := strings.Index(line, "%"); idx >= 0 {
				line = line[:idx]
			}
			if line = strings.TrimSpace(line); line != "" {
				return line, true
			}
		}
		return "", false
	}

	for {
		line, ok := nextLine()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "NDIME="):
			hasNDIME = true
			if _, err = fmt.Sscanf(line, "NDIME=%d", &ndime); err != nil {
				return nil, fmt.Errorf("invalid NDIME line: %s", line)
			}
			if ndime != 2 && ndime != 3 {
				return nil, fmt.Errorf("unsupported dimension: NDIME=%d", ndime)
			}

		case strings.HasPrefix(line, "NPOIN="):
			if !hasNDIME {
				return nil, fmt.Errorf("NPOIN= before NDIME=")
			}
			hasNPOI = true
			var npoin int
			if _, err = fmt.Sscanf(line, "NPOIN=%d", &npoin); err != nil || npoin < 0 {
				return nil, fmt.Errorf("invalid NPOIN line: %s", line)
			}
			msh.Vertices = make([][]float64, npoin)
			for i := 0; i < npoin; i++ {
				text, ok := nextLine()
				if !ok {
					return nil, fmt.Errorf("unexpected EOF reading nodes")
				}
				fields := strings.Fields(text)
				if len(fields) < ndime {
					return nil, fmt.Errorf("invalid node line: expected at least %d coordinates", ndime)
				}
				coords := make([]float64, 3) // Always store 3D coordinates
				for j := 0; j < ndime; j++ {
					if coords[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
						return nil, fmt.Errorf("invalid coordinate: %v", err)
					}
				}
				// Node ID is implicit (0-based); a trailing explicit ID is ignored
				msh.Vertices[i] = coords
			}

		case strings.HasPrefix(line, "NELEM="):
			var nelem int
			if _, err = fmt.Sscanf(line, "NELEM=%d", &nelem); err != nil || nelem < 0 {
				return nil, fmt.Errorf("invalid NELEM line: %s", line)
			}
			msh.EtoV = make([][]int, 0, nelem)
			msh.ElementTypes = make([]ElementType, 0, nelem)
			for i := 0; i < nelem; i++ {
				text, ok := nextLine()
				if !ok {
					return nil, fmt.Errorf("unexpected EOF reading elements")
				}
				etype, nodes, err := parseElement(text)
				if err != nil {
					return nil, err
				}
				if etype == Line {
					return nil, fmt.Errorf("element %d: line elements cannot be control faces", i)
				}
				msh.EtoV = append(msh.EtoV, nodes)
				msh.ElementTypes = append(msh.ElementTypes, etype)
			}

		case strings.HasPrefix(line, "NMARK="):
			var nmark int
			if _, err = fmt.Sscanf(line, "NMARK=%d", &nmark); err != nil || nmark < 0 {
				return nil, fmt.Errorf("invalid NMARK line: %s", line)
			}
			for i := 0; i < nmark; i++ {
				markerLine, ok := nextLine()
				if !ok {
					return nil, fmt.Errorf("unexpected EOF reading marker %d", i)
				}
				if !strings.HasPrefix(markerLine, "MARKER_TAG=") {
					return nil, fmt.Errorf("expected MARKER_TAG=, got: %s", markerLine)
				}
				tagName := strings.TrimSpace(strings.TrimPrefix(markerLine, "MARKER_TAG="))

				elemLine, ok := nextLine()
				if !ok {
					return nil, fmt.Errorf("unexpected EOF reading marker elements for %s", tagName)
				}
				var nMarkerElems int
				if _, err = fmt.Sscanf(elemLine, "MARKER_ELEMS=%d", &nMarkerElems); err != nil {
					return nil, fmt.Errorf("invalid MARKER_ELEMS line: %s", elemLine)
				}
				msh.BoundaryTags[i] = tagName
				msh.BoundaryElements[tagName] = make([]BoundaryElement, 0, nMarkerElems)
				for j := 0; j < nMarkerElems; j++ {
					text, ok := nextLine()
					if !ok {
						return nil, fmt.Errorf("unexpected EOF reading boundary elements")
					}
					btype, nodes, err := parseElement(text)
					if err != nil {
						return nil, fmt.Errorf("marker %s: %v", tagName, err)
					}
					msh.AddBoundaryElement(tagName, BoundaryElement{ElementType: btype, Nodes: nodes})
				}
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %v", err)
	}

	// Validate that we read the required sections
	if !hasNDIME {
		return nil, fmt.Errorf("missing required NDIME= section")
	}
	if !hasNPOI {
		return nil, fmt.Errorf("missing required NPOIN= section")
	}
	for k, nodes := range msh.EtoV {
		for _, n := range nodes {
			if n < 0 || n >= len(msh.Vertices) {
				return nil, fmt.Errorf("element %d: node index %d out of range [0,%d)",
					k, n, len(msh.Vertices))
			}
		}
	}
	for tag, elems := range msh.BoundaryElements {
		for _, be := range elems {
			for _, n := range be.Nodes {
				if n < 0 || n >= len(msh.Vertices) {
					return nil, fmt.Errorf("marker %s: node index %d out of range [0,%d)",
						tag, n, len(msh.Vertices))
				}
			}
		}
	}

	msh.NumElements = len(msh.EtoV)
	msh.NumVertices = len(msh.Vertices)
	return msh, nil
}

// parseElement reads "<vtk type> <node>..." and returns the element type
// and its nodes. Trailing fields (explicit element IDs) are ignored.
func parseElement(text string) (etype ElementType, nodes []int, err error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, nil, fmt.Errorf("invalid element line: %s", text)
	}
	su2Type, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid element type: %v", err)
	}
	etype, ok := su2ElementTypeMap[su2Type]
	if !ok {
		return 0, nil, fmt.Errorf("unknown element type: %d", su2Type)
	}
	numNodes := etype.GetNumNodes()
	if len(fields) < numNodes+1 {
		return 0, nil, fmt.Errorf("element type %v expects %d nodes, got %d fields",
			etype, numNodes, len(fields)-1)
	}
	nodes = make([]int, numNodes)
	for j := 0; j < numNodes; j++ {
		if nodes[j], err = strconv.Atoi(fields[1+j]); err != nil {
			return 0, nil, fmt.Errorf("invalid node index: %v", err)
		}
	}
	return etype, nodes, nil
}
