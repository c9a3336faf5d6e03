package cache

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionLZ4
	CompressionZSTD
)

func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", uint8(ct))
}

func ParseCompression(name string) (ct CompressionType, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		ct = CompressionNone
	case "lz4":
		ct = CompressionLZ4
	case "zstd":
		ct = CompressionZSTD
	default:
		err = fmt.Errorf("unknown compression %q, use none, lz4 or zstd", name)
	}
	return
}

/*
Encoded orderings:

	[magic "SFC1"][compression uint8][uncompressed size uint32][compressed size uint32, 0 = stored][block...]

	The uncompressed block is [N uint32][C uint32] followed by the C curves and then the C inverses,
	N uint32 values each. All integers are little endian.
*/
var magic = [4]byte{'S', 'F', 'C', '1'}

const (
	prefixSize      = 5
	blockHeaderSize = 8
	// A compressed block may claim at most this many payload bytes per stored byte
	maxInflation = 1024
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func EncodeOrderings(curves, inverses []utils.Index, ct CompressionType) (data []byte, err error) {
	var (
		C = len(curves)
		N int
	)
	if C == 0 || len(inverses) != C {
		err = types.ContractViolation("need the same non zero number of curves and inverses, have %d and %d",
			C, len(inverses))
		return
	}
	N = len(curves[0])
	if N == 0 || uint64(N) > math.MaxUint32 {
		err = types.ContractViolation("unable to encode orderings of %d points", N)
		return
	}
	payload := make([]byte, 8+8*C*N)
	binary.LittleEndian.PutUint32(payload[0:], uint32(N))
	binary.LittleEndian.PutUint32(payload[4:], uint32(C))
	off := 8
	for _, set := range [][]utils.Index{curves, inverses} {
		for c, ord := range set {
			if len(ord) != N {
				err = types.ContractViolation("ordering %d has %d entries, expected %d", c, len(ord), N)
				return
			}
			for _, p := range ord {
				binary.LittleEndian.PutUint32(payload[off:], uint32(p))
				off += 4
			}
		}
	}
	var block []byte
	if block, err = compressBlock(payload, ct); err != nil {
		return
	}
	data = make([]byte, 0, prefixSize+len(block))
	data = append(data, magic[:]...)
	data = append(data, byte(ct))
	data = append(data, block...)
	return
}

// compressBlock prefixes the block header, keeping the payload uncompressed when compression saves under 10%
func compressBlock(payload []byte, ct CompressionType) (block []byte, err error) {
	var compressed []byte
	switch ct {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		var n int
		if n, err = lz4.CompressBlock(payload, buf, nil); err != nil {
			return
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
	default:
		err = fmt.Errorf("unknown compression %v", ct)
		return
	}
	if len(compressed) == 0 || float64(len(compressed)) > 0.9*float64(len(payload)) {
		compressed = nil
	}
	stored := compressed
	if stored == nil {
		stored = payload
	}
	block = make([]byte, blockHeaderSize+len(stored))
	binary.LittleEndian.PutUint32(block[0:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(block[4:], uint32(len(compressed)))
	copy(block[blockHeaderSize:], stored)
	return
}

func decompressBlock(block []byte, ct CompressionType) (payload []byte, err error) {
	if len(block) < blockHeaderSize {
		err = fmt.Errorf("%w: block shorter than its header", ErrCorrupt)
		return
	}
	var (
		usize = int(binary.LittleEndian.Uint32(block[0:]))
		csize = int(binary.LittleEndian.Uint32(block[4:]))
		body  = block[blockHeaderSize:]
	)
	if csize == 0 {
		if len(body) != usize {
			err = fmt.Errorf("%w: stored block has %d bytes, header says %d", ErrCorrupt, len(body), usize)
			return
		}
		payload = body
		return
	}
	if len(body) != csize {
		err = fmt.Errorf("%w: compressed block has %d bytes, header says %d", ErrCorrupt, len(body), csize)
		return
	}
	if int64(usize) > maxInflation*int64(csize) {
		err = fmt.Errorf("%w: %d compressed bytes cannot hold %d", ErrCorrupt, csize, usize)
		return
	}
	switch ct {
	case CompressionLZ4:
		payload = make([]byte, usize)
		var n int
		if n, err = lz4.UncompressBlock(body, payload); err == nil && n != usize {
			err = fmt.Errorf("inflated to %d bytes, header says %d", n, usize)
		}
	case CompressionZSTD:
		dec := getZstdDecoder()
		payload, err = dec.DecodeAll(body, make([]byte, 0, usize))
		zstdDecoderPool.Put(dec)
		if err == nil && len(payload) != usize {
			err = fmt.Errorf("inflated to %d bytes, header says %d", len(payload), usize)
		}
	default:
		err = fmt.Errorf("compressed block with compression %v", ct)
	}
	if err != nil {
		payload, err = nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return
}

// DecodeOrderings reverses EncodeOrderings and checks that every curve is a permutation matching its inverse
func DecodeOrderings(data []byte) (curves, inverses []utils.Index, err error) {
	if len(data) < prefixSize || [4]byte(data[:4]) != magic {
		err = fmt.Errorf("%w: bad magic", ErrCorrupt)
		return
	}
	var payload []byte
	if payload, err = decompressBlock(data[prefixSize:], CompressionType(data[4])); err != nil {
		return
	}
	if len(payload) < 8 {
		err = fmt.Errorf("%w: missing dimensions", ErrCorrupt)
		return
	}
	var (
		N = int(binary.LittleEndian.Uint32(payload[0:]))
		C = int(binary.LittleEndian.Uint32(payload[4:]))
	)
	// len(payload) == 8 + 8*C*N without forming the product
	values := len(payload) - 8
	if N == 0 || C == 0 || values%8 != 0 || (values/8)%N != 0 || (values/8)/N != C {
		err = fmt.Errorf("%w: %d bytes for %d curves of %d points", ErrCorrupt, len(payload), C, N)
		return
	}
	off := 8
	read := func() (ord utils.Index) {
		ord = utils.NewIndex(N)
		for i := range ord {
			ord[i] = int(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
		}
		return
	}
	curves = make([]utils.Index, C)
	inverses = make([]utils.Index, C)
	for c := range curves {
		curves[c] = read()
	}
	for c := range inverses {
		inverses[c] = read()
	}
	for c := 0; c < C; c++ {
		if err = curves[c].IsPermutation(); err != nil {
			curves, inverses, err = nil, nil, fmt.Errorf("%w: curve %d: %v", ErrCorrupt, c, err)
			return
		}
		for i, p := range curves[c] {
			if inverses[c][p] != i {
				curves, inverses, err = nil, nil, fmt.Errorf("%w: inverse %d does not match its curve at %d",
					ErrCorrupt, c, p)
				return
			}
		}
	}
	return
}
