package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps blobs in process memory. Setting Fail makes every Put
// return the error after consuming part of the stream.
type MemoryStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	info   map[string]ObjectInfo
	base   string
	bucket string
	puts   int

	Fail error
}

func NewMemoryStore(base, bucket string) *MemoryStore {
	return &MemoryStore{
		blobs:  make(map[string][]byte),
		info:   make(map[string]ObjectInfo),
		base:   base,
		bucket: bucket,
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	m.mu.Lock()
	m.puts++
	fail := m.Fail
	m.mu.Unlock()

	if fail != nil {
		_, _ = io.CopyN(io.Discard, r, 1)
		return ObjectInfo{}, fmt.Errorf("put object %s: %w", key, fail)
	}

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return ObjectInfo{}, fmt.Errorf("put object %s: read %d bytes, want %d", key, len(data), size)
	}

	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	m.mu.Lock()
	m.blobs[key] = data
	m.info[key] = info
	m.mu.Unlock()
	return info, nil
}

func (m *MemoryStore) Stat(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.info[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return info, nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return BuildURL(m.base, m.bucket, key)
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Bytes returns a copy of the stored blob.
func (m *MemoryStore) Bytes(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	return append([]byte(nil), data...), ok
}

// Puts counts Put calls, failed ones included.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
