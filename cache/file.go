package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

/*
FileCache stores one file per key under dir, spread over two character subdirectories.

	File layout: [expiry, unix nanoseconds uint64 little endian, 0 = never][data...]
	Unreadable or expired files are removed and reported as a miss.
*/
type FileCache struct {
	dir string
}

const expiryHeaderSize = 8

func NewFileCache(dir string) (fc *FileCache, err error) {
	if err = os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("unable to create cache directory %s: %w", dir, err)
		return
	}
	fc = &FileCache{dir: dir}
	return
}

func (c *FileCache) Dir() string { return c.dir }

func (c *FileCache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	var (
		path = c.path(key)
		raw  []byte
	)
	if raw, err = os.ReadFile(path); err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	if len(raw) < expiryHeaderSize {
		_ = os.Remove(path)
		return
	}
	if exp := int64(binary.LittleEndian.Uint64(raw)); exp != 0 && time.Now().UnixNano() > exp {
		_ = os.Remove(path)
		return
	}
	data, ok = raw[expiryHeaderSize:], true
	return
}

func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) (err error) {
	var (
		path = c.path(key)
		raw  = make([]byte, expiryHeaderSize+len(data))
	)
	if ttl > 0 {
		binary.LittleEndian.PutUint64(raw, uint64(time.Now().Add(ttl).UnixNano()))
	}
	copy(raw[expiryHeaderSize:], data)
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	// Write then rename so a concurrent Get never sees a partial file
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0644); err != nil {
		return
	}
	return os.Rename(tmp, path)
}

func (c *FileCache) Delete(ctx context.Context, key string) (err error) {
	if err = os.Remove(c.path(key)); os.IsNotExist(err) {
		err = nil
	}
	return
}

func (c *FileCache) Close() error { return nil }

// Clear removes every cached entry along with the directory
func (c *FileCache) Clear() error { return os.RemoveAll(c.dir) }

func (c *FileCache) path(key string) string {
	hash := fmt.Sprintf("%016x", xxhash.Sum64String(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".sfc")
}

var _ Cache = (*FileCache)(nil)
