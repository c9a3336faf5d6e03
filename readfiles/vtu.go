package readfiles

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/notargets/gosfc/types"
)

// VTUFile is the point part of a VTK XML UnstructuredGrid file, cells are not read
type VTUFile struct {
	Path      string
	Points    [][]float64 // [npoints][3]
	PointData map[string]*DataArray
}

type DataArray struct {
	Name          string
	Type          string
	NumComponents int
	Values        []float64 // [npoints*NumComponents], component index fastest
}

// Field returns the named point data array, or a MissingFieldError listing what the file has
func (vf *VTUFile) Field(name string) (da *DataArray, err error) {
	var ok bool
	if da, ok = vf.PointData[name]; !ok {
		err = types.NewMissingFieldError(name, vf.Path, vf.FieldNames())
	}
	return
}

func (vf *VTUFile) FieldNames() (names []string) {
	for name := range vf.PointData {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (vf *VTUFile) NumPoints() int { return len(vf.Points) }

type vtkFile struct {
	XMLName    xml.Name `xml:"VTKFile"`
	Type       string   `xml:"type,attr"`
	ByteOrder  string   `xml:"byte_order,attr"`
	HeaderType string   `xml:"header_type,attr"`
	Compressor string   `xml:"compressor,attr"`
	Grid       struct {
		Pieces []vtkPiece `xml:"Piece"`
	} `xml:"UnstructuredGrid"`
}

type vtkPiece struct {
	NumberOfPoints int `xml:"NumberOfPoints,attr"`
	Points         struct {
		Arrays []vtkDataArray `xml:"DataArray"`
	} `xml:"Points"`
	PointData struct {
		Arrays []vtkDataArray `xml:"DataArray"`
	} `xml:"PointData"`
}

type vtkDataArray struct {
	Type          string `xml:"type,attr"`
	Name          string `xml:"Name,attr"`
	NumComponents int    `xml:"NumberOfComponents,attr"`
	Format        string `xml:"format,attr"`
	Text          string `xml:",chardata"`
}

func ReadVTU(path string) (vf *VTUFile, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(path); err != nil {
		err = fmt.Errorf("unable to open file %s: %w", path, err)
		return
	}
	defer file.Close()
	if vf, err = DecodeVTU(file); err != nil {
		err = fmt.Errorf("reading %s: %w", path, err)
		return
	}
	vf.Path = path
	return
}

// DecodeVTU reads an UnstructuredGrid with a single piece
func DecodeVTU(r io.Reader) (vf *VTUFile, err error) {
	var (
		vtk vtkFile
		dec *arrayDecoder
	)
	if err = xml.NewDecoder(r).Decode(&vtk); err != nil {
		err = fmt.Errorf("malformed VTK XML: %w", err)
		return
	}
	if vtk.Type != "UnstructuredGrid" {
		err = fmt.Errorf("unsupported VTK file type %q, need UnstructuredGrid", vtk.Type)
		return
	}
	if len(vtk.Grid.Pieces) != 1 {
		err = fmt.Errorf("need exactly one Piece, have %d", len(vtk.Grid.Pieces))
		return
	}
	if dec, err = newArrayDecoder(vtk.ByteOrder, vtk.HeaderType, vtk.Compressor); err != nil {
		return
	}
	var (
		piece = vtk.Grid.Pieces[0]
		np    = piece.NumberOfPoints
	)
	if len(piece.Points.Arrays) != 1 {
		err = fmt.Errorf("points need one DataArray, have %d", len(piece.Points.Arrays))
		return
	}
	var coords *DataArray
	if coords, err = dec.decode(piece.Points.Arrays[0], np); err != nil {
		return
	}
	vf = &VTUFile{
		Points:    make([][]float64, np),
		PointData: make(map[string]*DataArray, len(piece.PointData.Arrays)),
	}
	nc := coords.NumComponents
	for i := range vf.Points {
		vf.Points[i] = coords.Values[i*nc : (i+1)*nc]
	}
	for _, xda := range piece.PointData.Arrays {
		var da *DataArray
		if da, err = dec.decode(xda, np); err != nil {
			vf = nil
			return
		}
		vf.PointData[da.Name] = da
	}
	return
}

type arrayDecoder struct {
	order      binary.ByteOrder
	headerSize int
	compressor string
}

func newArrayDecoder(byteOrder, headerType, compressor string) (dec *arrayDecoder, err error) {
	dec = &arrayDecoder{compressor: compressor}
	switch byteOrder {
	case "", "LittleEndian":
		dec.order = binary.LittleEndian
	case "BigEndian":
		dec.order = binary.BigEndian
	default:
		err = fmt.Errorf("unknown byte order %q", byteOrder)
		return
	}
	switch headerType {
	case "", "UInt32":
		dec.headerSize = 4
	case "UInt64":
		dec.headerSize = 8
	default:
		err = fmt.Errorf("unknown header type %q", headerType)
		return
	}
	switch compressor {
	case "", "vtkZLibDataCompressor", "vtkLZ4DataCompressor":
	default:
		err = fmt.Errorf("unsupported compressor %q", compressor)
	}
	return
}

func (dec *arrayDecoder) decode(xda vtkDataArray, np int) (da *DataArray, err error) {
	da = &DataArray{
		Name:          xda.Name,
		Type:          xda.Type,
		NumComponents: xda.NumComponents,
	}
	if da.NumComponents == 0 {
		da.NumComponents = 1
	}
	var (
		count = np * da.NumComponents
		raw   []byte
	)
	switch xda.Format {
	case "ascii":
		da.Values, err = parseASCII(xda.Text, count)
	case "binary":
		text := strings.Join(strings.Fields(xda.Text), "")
		if dec.compressor == "" {
			raw, err = dec.uncompressedBlock(text)
		} else {
			raw, err = dec.compressedBlocks(text)
		}
		if err == nil {
			da.Values, err = dec.numbers(raw, xda.Type, count)
		}
	default:
		err = fmt.Errorf("unsupported DataArray format %q", xda.Format)
	}
	if err != nil {
		da, err = nil, fmt.Errorf("DataArray %q: %w", xda.Name, err)
	}
	return
}

func parseASCII(text string, count int) (vals []float64, err error) {
	fields := strings.Fields(text)
	if len(fields) != count {
		err = fmt.Errorf("have %d ascii values, need %d", len(fields), count)
		return
	}
	vals = make([]float64, count)
	for i, f := range fields {
		if vals[i], err = strconv.ParseFloat(f, 64); err != nil {
			return
		}
	}
	return
}

// b64Len is the encoded length of n bytes
func b64Len(n int) int { return (n + 2) / 3 * 4 }

func (dec *arrayDecoder) header(b []byte, i int) int {
	if dec.headerSize == 8 {
		return int(dec.order.Uint64(b[i*8:]))
	}
	return int(dec.order.Uint32(b[i*4:]))
}

/*
uncompressedBlock decodes [nbytes][data]. VTK and meshio base64 encode the header on its own and then
the data, some writers encode both as one stream; the split layout is tried first.
*/
func (dec *arrayDecoder) uncompressedBlock(text string) (raw []byte, err error) {
	var (
		hlen = b64Len(dec.headerSize)
		hdr  []byte
	)
	if len(text) < hlen {
		err = fmt.Errorf("binary block shorter than its header")
		return
	}
	if hdr, err = base64.StdEncoding.DecodeString(text[:hlen]); err != nil {
		return
	}
	if raw, err = base64.StdEncoding.DecodeString(text[hlen:]); err == nil {
		if nbytes := dec.header(hdr, 0); nbytes >= 0 && len(raw) >= nbytes {
			raw = raw[:nbytes]
			return
		}
	}
	var b []byte
	if b, err = base64.StdEncoding.DecodeString(text); err != nil {
		return
	}
	if len(b) < dec.headerSize {
		err = fmt.Errorf("binary block shorter than its header")
		return
	}
	nbytes := dec.header(b, 0)
	raw = b[dec.headerSize:]
	if nbytes < 0 || len(raw) < nbytes {
		raw, err = nil, fmt.Errorf("binary block has %d bytes, header says %d", len(raw), nbytes)
		return
	}
	raw = raw[:nbytes]
	return
}

/*
compressedBlocks decodes the compressed layout, header and blocks are base64 encoded separately:

	[nblocks][block size][last block size][compressed size 1]...[compressed size nblocks]
*/
func (dec *arrayDecoder) compressedBlocks(text string) (raw []byte, err error) {
	var (
		first, hdr, data []byte
		hs               = dec.headerSize
	)
	if len(text) < b64Len(hs) {
		err = fmt.Errorf("compressed block shorter than its header")
		return
	}
	if first, err = base64.StdEncoding.DecodeString(text[:b64Len(hs)]); err != nil {
		return
	}
	nblocks := dec.header(first, 0)
	hlen := b64Len(hs * (3 + nblocks))
	if len(text) < hlen {
		err = fmt.Errorf("compressed header of %d blocks is truncated", nblocks)
		return
	}
	if hdr, err = base64.StdEncoding.DecodeString(text[:hlen]); err != nil {
		return
	}
	if data, err = base64.StdEncoding.DecodeString(text[hlen:]); err != nil {
		return
	}
	var (
		blockSize = dec.header(hdr, 1)
		lastSize  = dec.header(hdr, 2)
		offset    int
	)
	for b := 0; b < nblocks; b++ {
		csize := dec.header(hdr, 3+b)
		if offset+csize > len(data) {
			err = fmt.Errorf("compressed block %d overruns the data", b)
			return
		}
		usize := blockSize
		if b == nblocks-1 && lastSize != 0 {
			usize = lastSize
		}
		var block []byte
		if block, err = dec.inflate(data[offset:offset+csize], usize); err != nil {
			err = fmt.Errorf("block %d: %w", b, err)
			return
		}
		raw = append(raw, block...)
		offset += csize
	}
	return
}

func (dec *arrayDecoder) inflate(cdata []byte, usize int) (block []byte, err error) {
	switch dec.compressor {
	case "vtkZLibDataCompressor":
		var zr io.ReadCloser
		if zr, err = zlib.NewReader(bytes.NewReader(cdata)); err != nil {
			return
		}
		defer zr.Close()
		block = make([]byte, usize)
		_, err = io.ReadFull(zr, block)
	case "vtkLZ4DataCompressor":
		block = make([]byte, usize)
		var n int
		if n, err = lz4.UncompressBlock(cdata, block); err == nil && n != usize {
			err = fmt.Errorf("lz4 block inflated to %d bytes, expected %d", n, usize)
		}
	}
	return
}

func (dec *arrayDecoder) numbers(raw []byte, typ string, count int) (vals []float64, err error) {
	var (
		size int
		get  func(b []byte) float64
		o    = dec.order
	)
	switch typ {
	case "Int8":
		size, get = 1, func(b []byte) float64 { return float64(int8(b[0])) }
	case "UInt8":
		size, get = 1, func(b []byte) float64 { return float64(b[0]) }
	case "Int16":
		size, get = 2, func(b []byte) float64 { return float64(int16(o.Uint16(b))) }
	case "UInt16":
		size, get = 2, func(b []byte) float64 { return float64(o.Uint16(b)) }
	case "Int32":
		size, get = 4, func(b []byte) float64 { return float64(int32(o.Uint32(b))) }
	case "UInt32":
		size, get = 4, func(b []byte) float64 { return float64(o.Uint32(b)) }
	case "Int64":
		size, get = 8, func(b []byte) float64 { return float64(int64(o.Uint64(b))) }
	case "UInt64":
		size, get = 8, func(b []byte) float64 { return float64(o.Uint64(b)) }
	case "Float32":
		size, get = 4, func(b []byte) float64 { return float64(math.Float32frombits(o.Uint32(b))) }
	case "Float64":
		size, get = 8, func(b []byte) float64 { return math.Float64frombits(o.Uint64(b)) }
	default:
		err = fmt.Errorf("unsupported data type %q", typ)
		return
	}
	if len(raw) != count*size {
		err = fmt.Errorf("have %d bytes of %s, need %d values", len(raw), typ, count)
		return
	}
	vals = make([]float64, count)
	for i := range vals {
		vals[i] = get(raw[i*size:])
	}
	return
}
