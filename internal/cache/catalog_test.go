package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygnbus/internal/domain"
)

type countingSource struct {
	stops     []domain.Stop
	lines     []domain.Line
	stopsErr  error
	stopCalls atomic.Int32
	lineCalls atomic.Int32
}

func (s *countingSource) FetchStops(ctx context.Context) ([]domain.Stop, error) {
	s.stopCalls.Add(1)
	return s.stops, s.stopsErr
}

func (s *countingSource) FetchLines(ctx context.Context) ([]domain.Line, error) {
	s.lineCalls.Add(1)
	return s.lines, nil
}

// memoryRemote stands in for the Redis tier.
type memoryRemote struct {
	mu      sync.Mutex
	docs    map[string][]byte
	loadErr error
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{docs: make(map[string][]byte)}
}

func (m *memoryRemote) Store(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = data
	return nil
}

func (m *memoryRemote) Load(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return false, m.loadErr
	}
	data, ok := m.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryRemote) Invalidate(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.docs, k)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCatalogServesFromLocalCache(t *testing.T) {
	src := &countingSource{stops: []domain.Stop{{ID: 1, NameEN: "Sule"}}}
	c := NewCatalog(src, nil, 4, time.Minute, testLogger())
	ctx := context.Background()

	first, err := c.FetchStops(ctx)
	require.NoError(t, err)
	second, err := c.FetchStops(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.stopCalls.Load())
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestCatalogUsesRemoteTier(t *testing.T) {
	remote := newMemoryRemote()
	ctx := context.Background()

	warm := &countingSource{lines: []domain.Line{{ID: 12, LineNumber: "12"}}}
	_, err := NewCatalog(warm, remote, 4, time.Minute, testLogger()).FetchLines(ctx)
	require.NoError(t, err)

	cold := &countingSource{}
	c := NewCatalog(cold, remote, 4, time.Minute, testLogger())
	lines, err := c.FetchLines(ctx)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "12", lines[0].LineNumber)
	assert.Zero(t, cold.lineCalls.Load())
	assert.Equal(t, int64(1), c.Stats().RemoteHits)
}

func TestCatalogRemoteFailureFallsBackToSource(t *testing.T) {
	remote := newMemoryRemote()
	remote.loadErr = errors.New("connection reset")
	src := &countingSource{stops: []domain.Stop{{ID: 1}}}
	c := NewCatalog(src, remote, 4, time.Minute, testLogger())

	stops, err := c.FetchStops(context.Background())
	require.NoError(t, err)
	assert.Len(t, stops, 1)
	assert.Equal(t, int32(1), src.stopCalls.Load())
}

func TestCatalogDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{stopsErr: errors.New("boom")}
	c := NewCatalog(src, nil, 4, time.Minute, testLogger())
	ctx := context.Background()

	_, err := c.FetchStops(ctx)
	assert.Error(t, err)
	_, err = c.FetchStops(ctx)
	assert.Error(t, err)
	assert.Equal(t, int32(2), src.stopCalls.Load())
}

func TestCatalogInvalidate(t *testing.T) {
	remote := newMemoryRemote()
	src := &countingSource{stops: []domain.Stop{{ID: 1}}}
	c := NewCatalog(src, remote, 4, time.Minute, testLogger())
	ctx := context.Background()

	_, err := c.FetchStops(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	_, err = c.FetchStops(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.stopCalls.Load())
}

func TestCatalogExpires(t *testing.T) {
	src := &countingSource{stops: []domain.Stop{{ID: 1}}}
	c := NewCatalog(src, nil, 4, 20*time.Millisecond, testLogger())
	ctx := context.Background()

	_, err := c.FetchStops(ctx)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.FetchStops(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.stopCalls.Load())
}

func TestGzipRoundTrip(t *testing.T) {
	data := []byte(`[{"id":1,"name_en":"Sule"},{"id":2,"name_en":"Hledan"}]`)

	compressed, err := gzipCompress(data)
	require.NoError(t, err)
	restored, err := gzipDecompress(compressed)
	require.NoError(t, err)

	assert.Equal(t, data, restored)
}
