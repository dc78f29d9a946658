package ingestor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygnbus/internal/domain"
)

type stubSource struct {
	stops    []domain.Stop
	lines    []domain.Line
	stopsErr error
	linesErr error
}

func (s *stubSource) FetchStops(ctx context.Context) ([]domain.Stop, error) {
	return s.stops, s.stopsErr
}

func (s *stubSource) FetchLines(ctx context.Context) ([]domain.Line, error) {
	return s.lines, s.linesErr
}

type recordingTarget struct {
	mu          sync.Mutex
	stops       []domain.Stop
	lines       []domain.Line
	locations   int
	locationErr error
}

func (r *recordingTarget) SetStops(stops []domain.Stop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = stops
}

func (r *recordingTarget) SetLines(lines []domain.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = lines
}

func (r *recordingTarget) RefreshLocation(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations++
	return r.locationErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDeliversEverything(t *testing.T) {
	src := &stubSource{
		stops: []domain.Stop{{ID: 1}},
		lines: []domain.Line{{ID: 12}},
	}
	target := &recordingTarget{}
	ing := NewCatalogIngestor(src, target, 0, testLogger())

	ing.Load(context.Background(), true)

	assert.True(t, ing.IsReady())
	assert.Len(t, target.stops, 1)
	assert.Len(t, target.lines, 1)
	assert.Equal(t, 1, target.locations)
}

func TestLoadPartialFailure(t *testing.T) {
	tests := []struct {
		name      string
		src       *stubSource
		wantStops int
		wantLines int
		ready     bool
	}{
		{
			name:      "lines fail",
			src:       &stubSource{stops: []domain.Stop{{ID: 1}, {ID: 2}}, linesErr: errors.New("timeout")},
			wantStops: 2,
			ready:     true,
		},
		{
			name:      "stops fail",
			src:       &stubSource{lines: []domain.Line{{ID: 12}}, stopsErr: errors.New("timeout")},
			wantLines: 1,
			ready:     true,
		},
		{
			name:  "both fail",
			src:   &stubSource{stopsErr: errors.New("down"), linesErr: errors.New("down")},
			ready: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingTarget{locationErr: errors.New("permission denied")}
			ing := NewCatalogIngestor(tt.src, target, 0, testLogger())

			ing.Load(context.Background(), true)

			assert.Equal(t, tt.ready, ing.IsReady())
			assert.Len(t, target.stops, tt.wantStops)
			assert.Len(t, target.lines, tt.wantLines)
			assert.Equal(t, 1, target.locations)
		})
	}
}

func TestStartWithoutRefreshReturns(t *testing.T) {
	target := &recordingTarget{}
	ing := NewCatalogIngestor(&stubSource{}, target, 0, testLogger())

	ing.Start(context.Background())

	require.True(t, ing.IsReady())
	assert.Equal(t, 1, target.locations)
}
