// Package bridge connects the host state to the embedded map renderer.
// Outbound, it serializes whole snapshots; inbound, it validates renderer
// events and hands them to a Sink.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ygnbus/internal/domain"
)

// Transport delivers one encoded snapshot to the renderer side.
type Transport interface {
	Broadcast(payload []byte)
}

// Sink receives decoded renderer events.
type Sink interface {
	AppendNearby(entry json.RawMessage)
	RequestLocation()
}

type Stats struct {
	Published int64 `json:"published"`
	Skipped   int64 `json:"skipped"`
	Received  int64 `json:"received"`
	Rejected  int64 `json:"rejected"`
}

type Bridge struct {
	transport Transport
	logger    *slog.Logger

	mu   sync.Mutex
	last []byte
	sink Sink

	published atomic.Int64
	skipped   atomic.Int64
	received  atomic.Int64
	rejected  atomic.Int64
}

func New(transport Transport, logger *slog.Logger) *Bridge {
	return &Bridge{
		transport: transport,
		logger:    logger.With("component", "render_bridge"),
	}
}

func (b *Bridge) SetSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// Publish encodes the snapshot and transmits it in one piece. A payload
// identical to the previous one is not sent again.
func (b *Bridge) Publish(snap Snapshot) error {
	if snap.BusStops == nil {
		snap.BusStops = []domain.Stop{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if bytes.Equal(data, b.last) {
		b.skipped.Add(1)
		return nil
	}
	b.last = data
	b.transport.Broadcast(data)
	b.published.Add(1)

	b.logger.Debug("snapshot published",
		"size_bytes", len(data),
		"stops", len(snap.BusStops),
		"has_location", snap.CurrentLocation != nil,
		"has_pin", snap.SpecificBusStop != nil,
		"route_legs", len(snap.RouteInfo),
	)
	return nil
}

// Handle decodes one renderer message and dispatches it. Invalid messages
// are logged and dropped.
func (b *Bridge) Handle(data []byte) {
	b.received.Add(1)

	ev, err := Decode(data)
	if err != nil {
		b.rejected.Add(1)
		b.logger.Warn("dropping renderer message", "error", err, "size_bytes", len(data))
		return
	}

	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		b.logger.Debug("no sink for renderer message", "type", ev.Type)
		return
	}

	switch ev.Type {
	case TypeLog:
		sink.AppendNearby(ev.Payload)
	case TypeRequestLocation:
		sink.RequestLocation()
	}
}

func (b *Bridge) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Skipped:   b.skipped.Load(),
		Received:  b.received.Load(),
		Rejected:  b.rejected.Load(),
	}
}
