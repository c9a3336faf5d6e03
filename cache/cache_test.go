package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

func TestCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	for name, c := range map[string]Cache{"memory": NewMemoryCache(), "file": fc} {
		data, ok, err := c.Get(ctx, "sfc:missing")
		require.NoError(t, err, name)
		assert.False(t, ok, name)
		assert.Nil(t, data, name)

		require.NoError(t, c.Set(ctx, "sfc:a", []byte{1, 2, 3}, 0), name)
		data, ok, err = c.Get(ctx, "sfc:a")
		require.NoError(t, err, name)
		assert.True(t, ok, name)
		assert.Equal(t, []byte{1, 2, 3}, data, name)

		require.NoError(t, c.Set(ctx, "sfc:a", []byte{4}, time.Hour), name)
		data, _, _ = c.Get(ctx, "sfc:a")
		assert.Equal(t, []byte{4}, data, name)

		require.NoError(t, c.Delete(ctx, "sfc:a"), name)
		_, ok, _ = c.Get(ctx, "sfc:a")
		assert.False(t, ok, name)
		assert.NoError(t, c.Delete(ctx, "sfc:a"), name)

		require.NoError(t, c.Set(ctx, "sfc:short", []byte{9}, time.Millisecond), name)
		time.Sleep(10 * time.Millisecond)
		_, ok, err = c.Get(ctx, "sfc:short")
		require.NoError(t, err, name)
		assert.False(t, ok, name)
		assert.NoError(t, c.Close(), name)
	}
	{
		c := NewNullCache()
		require.NoError(t, c.Set(ctx, "sfc:a", []byte{1}, 0))
		_, ok, err := c.Get(ctx, "sfc:a")
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	{ // Stored bytes are not aliased
		c := NewMemoryCache()
		buf := []byte{1, 2}
		require.NoError(t, c.Set(ctx, "k", buf, 0))
		buf[0] = 7
		data, _, _ := c.Get(ctx, "k")
		assert.Equal(t, []byte{1, 2}, data)
		assert.Equal(t, 1, c.Len())
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	var (
		ctx = context.Background()
		now = time.Unix(1000, 0)
		c   = NewMemoryCache()
	)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Second))
	now = now.Add(2 * time.Second)
	{ // An entry replaced after it was seen expired is kept
		stale := now
		require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Minute))
		c.evict("k", stale)
		data, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("new"), data)
	}
	now = now.Add(2 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestFileCacheCorrupt(t *testing.T) {
	var (
		ctx = context.Background()
	)
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fc.Set(ctx, "sfc:x", []byte{1}, 0))
	path := fc.path("sfc:x")
	require.NoError(t, os.WriteFile(path, []byte{1, 2}, 0644))
	_, ok, err := fc.Get(ctx, "sfc:x")
	assert.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, fc.Clear())
	_, err = os.Stat(fc.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestRedisCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := NewRedisCache(ctx, "127.0.0.1:1", "")
	assert.Nil(t, rc)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestTopologyKey(t *testing.T) {
	pts, err := types.NewPointSetXY([]float64{0, 1, 0}, []float64{0, 0, 1})
	require.NoError(t, err)
	key := TopologyKey(pts, 2, "dd")
	assert.Len(t, key, 20)
	assert.Equal(t, "sfc:", key[:4])
	assert.Equal(t, key, TopologyKey(pts, 2, "dd"))
	assert.NotEqual(t, key, TopologyKey(pts, 1, "dd"))
	assert.NotEqual(t, key, TopologyKey(pts, 2, "ls"))
	moved, _ := types.NewPointSetXY([]float64{0, 1, 0}, []float64{0, 0, 1.5})
	assert.NotEqual(t, key, TopologyKey(moved, 2, "dd"))
}

func randomOrderings(rng *rand.Rand, n, ncurve int) (curves, inverses []utils.Index) {
	for c := 0; c < ncurve; c++ {
		ord := utils.Index(rng.Perm(n))
		inv := utils.NewIndex(n)
		for i, p := range ord {
			inv[p] = i
		}
		curves = append(curves, ord)
		inverses = append(inverses, inv)
	}
	return
}

func TestCodec(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	{
		curves, inverses := randomOrderings(rng, 1000, 2)
		for _, ct := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
			data, err := EncodeOrderings(curves, inverses, ct)
			require.NoError(t, err, ct.String())
			assert.Equal(t, "SFC1", string(data[:4]))
			assert.Equal(t, byte(ct), data[4])
			c2, i2, err := DecodeOrderings(data)
			require.NoError(t, err, ct.String())
			assert.Equal(t, curves, c2)
			assert.Equal(t, inverses, i2)
		}
	}
	{ // Repeated curves compress
		curves, inverses := randomOrderings(rng, 500, 1)
		for c := 1; c < 8; c++ {
			curves = append(curves, curves[0])
			inverses = append(inverses, inverses[0])
		}
		raw, err := EncodeOrderings(curves, inverses, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, 5+8+8+8*8*500, len(raw))
		for _, ct := range []CompressionType{CompressionLZ4, CompressionZSTD} {
			data, err := EncodeOrderings(curves, inverses, ct)
			require.NoError(t, err)
			assert.Less(t, len(data), len(raw)/2, ct.String())
			assert.NotZero(t, binary.LittleEndian.Uint32(data[9:]))
			c2, _, err := DecodeOrderings(data)
			require.NoError(t, err)
			assert.Equal(t, curves, c2)
		}
	}
	{ // Too small to compress is stored
		data, err := EncodeOrderings([]utils.Index{{2, 0, 1}}, []utils.Index{{1, 2, 0}}, CompressionLZ4)
		require.NoError(t, err)
		assert.Zero(t, binary.LittleEndian.Uint32(data[9:]))
		c2, i2, err := DecodeOrderings(data)
		require.NoError(t, err)
		assert.Equal(t, []utils.Index{{2, 0, 1}}, c2)
		assert.Equal(t, []utils.Index{{1, 2, 0}}, i2)
	}
}

func TestCodecErrors(t *testing.T) {
	{
		_, err := EncodeOrderings(nil, nil, CompressionNone)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		_, err = EncodeOrderings([]utils.Index{{0, 1}}, []utils.Index{{0}}, CompressionNone)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		_, err = EncodeOrderings([]utils.Index{{0, 1}}, []utils.Index{{0, 1}}, CompressionType(9))
		assert.Error(t, err)
	}
	good, err := EncodeOrderings([]utils.Index{{2, 0, 1}}, []utils.Index{{1, 2, 0}}, CompressionNone)
	require.NoError(t, err)
	corrupt := func(mod func(b []byte) []byte) error {
		b := mod(append([]byte(nil), good...))
		_, _, err := DecodeOrderings(b)
		return err
	}
	for i, mod := range []func(b []byte) []byte{
		func(b []byte) []byte { b[0] = 'X'; return b },
		func(b []byte) []byte { return b[:3] },
		func(b []byte) []byte { return b[:len(b)-4] },
		// last inverse entry 0 -> 1
		func(b []byte) []byte { b[len(b)-4] = 1; return b },
		// first curve entry 2 -> 0 repeats a point
		func(b []byte) []byte { b[21] = 0; return b },
		// claims a compressed block
		func(b []byte) []byte { binary.LittleEndian.PutUint32(b[9:], 4); return b },
		// dimensions whose product overflows
		func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[13:], math.MaxUint32)
			binary.LittleEndian.PutUint32(b[17:], math.MaxUint32)
			return b
		},
		// lz4 block of 4 bytes claiming 4 GiB
		func(b []byte) []byte {
			b[4] = byte(CompressionLZ4)
			binary.LittleEndian.PutUint32(b[5:], math.MaxUint32)
			binary.LittleEndian.PutUint32(b[9:], 4)
			return b[:prefixSize+blockHeaderSize+4]
		},
	} {
		err := corrupt(mod)
		assert.True(t, errors.Is(err, ErrCorrupt), "case %d: %v", i, err)
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]CompressionType{
		"": CompressionNone, "none": CompressionNone, "LZ4": CompressionLZ4, " zstd ": CompressionZSTD,
	} {
		ct, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, ct)
		back, err := ParseCompression(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, back)
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
}
