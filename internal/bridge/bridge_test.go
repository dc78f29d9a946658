package bridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygnbus/internal/domain"
)

type recordingTransport struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *recordingTransport) Broadcast(payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func (r *recordingTransport) sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloads
}

type recordingSink struct {
	nearby    []json.RawMessage
	locations int
}

func (s *recordingSink) AppendNearby(entry json.RawMessage) { s.nearby = append(s.nearby, entry) }
func (s *recordingSink) RequestLocation()                   { s.locations++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSendsWholeSnapshot(t *testing.T) {
	transport := &recordingTransport{}
	b := New(transport, testLogger())

	err := b.Publish(Snapshot{
		BusStops:        []domain.Stop{{ID: 1, NameEN: "Sule"}},
		CurrentLocation: &domain.Location{Longitude: 96.15, Latitude: 16.78},
		RouteInfo:       []domain.RouteLeg{{BusLineID: 12}},
	})
	require.NoError(t, err)

	sent := transport.sent()
	require.Len(t, sent, 1)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sent[0], &decoded))
	assert.Contains(t, decoded, "busStops")
	assert.Contains(t, decoded, "routeInfo")
	assert.JSONEq(t, `{"longitude":96.15,"latitude":16.78}`, string(decoded["currentLocation"]))
	assert.JSONEq(t, `null`, string(decoded["specificBusStop"]))
}

func TestPublishSkipsIdenticalSnapshot(t *testing.T) {
	transport := &recordingTransport{}
	b := New(transport, testLogger())

	require.NoError(t, b.Publish(Snapshot{}))
	require.NoError(t, b.Publish(Snapshot{BusStops: []domain.Stop{}}))
	require.NoError(t, b.Publish(Snapshot{SpecificBusStop: &domain.Stop{ID: 3}}))

	sent := transport.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, string(sent[0]), `"busStops":[]`)

	stats := b.Stats()
	assert.Equal(t, int64(2), stats.Published)
	assert.Equal(t, int64(1), stats.Skipped)
}

func TestHandleDispatches(t *testing.T) {
	b := New(&recordingTransport{}, testLogger())
	sink := &recordingSink{}
	b.SetSink(sink)

	b.Handle([]byte(`{"type":"LOG","message":"{\"id\":7}"}`))
	b.Handle([]byte(`{"type":"REQUEST_LOCATION"}`))
	b.Handle([]byte(`{"type":"LOG","message":"not json"}`))
	b.Handle([]byte(`nonsense`))

	require.Len(t, sink.nearby, 1)
	assert.JSONEq(t, `{"id":7}`, string(sink.nearby[0]))
	assert.Equal(t, 1, sink.locations)

	stats := b.Stats()
	assert.Equal(t, int64(4), stats.Received)
	assert.Equal(t, int64(2), stats.Rejected)
}

func TestHandleWithoutSink(t *testing.T) {
	b := New(&recordingTransport{}, testLogger())
	assert.NotPanics(t, func() {
		b.Handle([]byte(`{"type":"REQUEST_LOCATION"}`))
	})
}
