package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/notargets/gosfc/types"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle      SU2ElementType = 5
	ELType_Quadrilateral SU2ElementType = 9
	ELType_Tetrahedral   SU2ElementType = 10
	ELType_Hexahedral    SU2ElementType = 12
	ELType_Prism         SU2ElementType = 13
	ELType_Pyramid       SU2ElementType = 14
)

func (et SU2ElementType) NumVertices() int {
	switch et {
	case ELType_LINE:
		return 2
	case ELType_Triangle:
		return 3
	case ELType_Quadrilateral, ELType_Tetrahedral:
		return 4
	case ELType_Pyramid:
		return 5
	case ELType_Prism:
		return 6
	case ELType_Hexahedral:
		return 8
	}
	return 0
}

type SU2Element struct {
	Type     SU2ElementType
	Vertices []int
}

// SU2Mesh is a static mesh: coordinates, elements and the boundary markers
type SU2Mesh struct {
	Dim      int
	Points   types.PointSet
	Elements []SU2Element
	Markers  map[string][]SU2Element
}

func ReadSU2(filename string) (mesh *SU2Mesh, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(filename); err != nil {
		err = fmt.Errorf("unable to open file %s: %w", filename, err)
		return
	}
	defer file.Close()
	if mesh, err = DecodeSU2(bufio.NewReader(file)); err != nil {
		err = fmt.Errorf("reading %s: %w", filename, err)
	}
	return
}

// DecodeSU2 reads the NDIME, NELEM, NPOIN and NMARK sections in file order
func DecodeSU2(reader *bufio.Reader) (mesh *SU2Mesh, err error) {
	mesh = &SU2Mesh{Markers: make(map[string][]SU2Element)}
	if mesh.Dim, err = readNumber(reader, "NDIME"); err != nil {
		return nil, err
	}
	if mesh.Dim != 2 && mesh.Dim != 3 {
		return nil, fmt.Errorf("NDIME must be 2 or 3, have %d", mesh.Dim)
	}
	if mesh.Elements, err = readElements(reader, "NELEM"); err != nil {
		return nil, err
	}
	if mesh.Points, err = readVertices(reader, mesh.Dim); err != nil {
		return nil, err
	}
	for _, el := range mesh.Elements {
		for _, v := range el.Vertices {
			if v < 0 || v >= mesh.Points.N() {
				return nil, fmt.Errorf("element vertex %d outside [0, %d)", v, mesh.Points.N())
			}
		}
	}
	if mesh.Markers, err = readMarkers(reader); err != nil {
		return nil, err
	}
	return
}

func readElements(reader *bufio.Reader, section string) (elements []SU2Element, err error) {
	var (
		K int
	)
	if K, err = readNumber(reader, section); err != nil {
		return
	}
	elements = make([]SU2Element, K)
	for k := 0; k < K; k++ {
		var line string
		if line, err = getLine(reader); err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			err = fmt.Errorf("empty element line %d", k)
			return
		}
		var nType int
		if _, err = fmt.Sscanf(fields[0], "%d", &nType); err != nil {
			return
		}
		et := SU2ElementType(nType)
		nv := et.NumVertices()
		if nv == 0 {
			err = fmt.Errorf("unknown element type %d", nType)
			return
		}
		if len(fields) < nv+1 {
			err = fmt.Errorf("element %d of type %d needs %d vertices, line is [%s]", k, nType, nv, line)
			return
		}
		elements[k] = SU2Element{Type: et, Vertices: make([]int, nv)}
		for i := 0; i < nv; i++ {
			if _, err = fmt.Sscanf(fields[i+1], "%d", &elements[k].Vertices[i]); err != nil {
				return
			}
		}
	}
	return
}

func readVertices(reader *bufio.Reader, dim int) (pts types.PointSet, err error) {
	var (
		Nv int
	)
	if Nv, err = readNumber(reader, "NPOIN"); err != nil {
		return
	}
	coords := make([][]float64, Nv)
	for i := 0; i < Nv; i++ {
		var line string
		if line, err = getLine(reader); err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) < dim {
			err = fmt.Errorf("unable to read %d coordinates from [%s]", dim, line)
			return
		}
		coords[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			if _, err = fmt.Sscanf(fields[d], "%g", &coords[i][d]); err != nil {
				return
			}
		}
	}
	pts = types.PointSet{Coords: coords}
	return
}

func readMarkers(reader *bufio.Reader) (markers map[string][]SU2Element, err error) {
	var (
		NBCs int
	)
	markers = make(map[string][]SU2Element)
	if NBCs, err = readNumber(reader, "NMARK"); err != nil {
		if err == io.EOF {
			err = nil
		}
		return
	}
	for n := 0; n < NBCs; n++ {
		var label string
		if label, err = readLabel(reader, "MARKER_TAG"); err != nil {
			return
		}
		var els []SU2Element
		if els, err = readElements(reader, "MARKER_ELEMS"); err != nil {
			return
		}
		// Repeated tags, periodic pairs for instance, share one list
		markers[label] = append(markers[label], els...)
	}
	return
}

func getToken(reader *bufio.Reader, section string) (token string, err error) {
	var (
		line string
	)
	if line, err = getLineNoComments(reader); err != nil {
		return
	}
	ind := strings.Index(line, "=")
	if ind < 0 {
		err = fmt.Errorf("badly formed input line [%s], should have an =", line)
		return
	}
	if key := strings.TrimSpace(line[:ind]); key != section {
		err = fmt.Errorf("expected section %s, have [%s]", section, line)
		return
	}
	token = line[ind+1:]
	return
}

func readLabel(reader *bufio.Reader, section string) (label string, err error) {
	var (
		token string
	)
	if token, err = getToken(reader, section); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%s", &label); err != nil {
		err = fmt.Errorf("unable to read label from token: [%s]", token)
		return
	}
	return
}

func readNumber(reader *bufio.Reader, section string) (num int, err error) {
	var (
		token string
	)
	if token, err = getToken(reader, section); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%d", &num); err != nil {
		err = fmt.Errorf("unable to read number from token: [%s]", token)
	}
	return
}

func getLineNoComments(reader *bufio.Reader) (line string, err error) {
	for {
		if line, err = getLine(reader); err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "%") {
			return
		}
	}
}

func getLine(reader *bufio.Reader) (line string, err error) {
	line, err = reader.ReadString('\n')
	if err == io.EOF && len(line) != 0 {
		err = nil
	}
	line = strings.TrimRight(line, "\r\n")
	return
}

// Local vertex pairs forming the edges of each element type, VTK vertex numbering
var elementEdges = map[SU2ElementType][][2]int{
	ELType_LINE:          {{0, 1}},
	ELType_Triangle:      {{0, 1}, {1, 2}, {2, 0}},
	ELType_Quadrilateral: {{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	ELType_Tetrahedral:   {{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
	ELType_Hexahedral: {{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7}},
	ELType_Prism:   {{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}, {0, 3}, {1, 4}, {2, 5}},
	ELType_Pyramid: {{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 4}, {1, 4}, {2, 4}, {3, 4}},
}

// EdgeSet collects the unique element edges of the mesh
func (mesh *SU2Mesh) EdgeSet() (es *types.EdgeSet) {
	es = types.NewEdgeSet(3 * len(mesh.Elements))
	for _, el := range mesh.Elements {
		for _, e := range elementEdges[el.Type] {
			es.Add(el.Vertices[e[0]], el.Vertices[e[1]])
		}
	}
	return
}
