// Package session is the single owned application context. Every mutation
// of navigation, list, route, location and nearby state goes through a
// named Session operation, and every change the map renderer can see is
// published as a fresh snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ygnbus/internal/bridge"
	"ygnbus/internal/domain"
	"ygnbus/internal/filter"
	"ygnbus/internal/location"
	"ygnbus/internal/nav"
	"ygnbus/internal/route"
	"ygnbus/internal/store"
)

var (
	ErrUnknownStop = errors.New("stop not found")
	ErrUnknownLine = errors.New("line not found")
	ErrNotEditing  = errors.New("no endpoint field is focused")
)

// Publisher transmits renderer snapshots.
type Publisher interface {
	Publish(snap bridge.Snapshot) error
}

type Options struct {
	StopsBatchSize     int
	LinesBatchSize     int
	EndpointsBatchSize int
	LocationTimeout    time.Duration
}

type Session struct {
	ctx       context.Context
	catalog   *store.CatalogStore
	nav       *nav.Context
	route     *route.Negotiator
	publisher Publisher
	locator   location.Provider
	opts      Options
	logger    *slog.Logger

	mu           sync.Mutex
	stops        *filter.List[domain.Stop]
	lines        *filter.List[domain.Line]
	endpoints    *filter.List[domain.Stop]
	expandedLine int
	startQuery   string
	endQuery     string
	location     *domain.Location
	nearby       []json.RawMessage
}

func New(ctx context.Context, catalog *store.CatalogStore, navCtx *nav.Context, negotiator *route.Negotiator, publisher Publisher, locator location.Provider, opts Options, logger *slog.Logger) *Session {
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = 10 * time.Second
	}

	s := &Session{
		ctx:       ctx,
		catalog:   catalog,
		nav:       navCtx,
		route:     negotiator,
		publisher: publisher,
		locator:   locator,
		opts:      opts,
		logger:    logger.With("component", "session"),
		stops:     filter.NewStopList(opts.StopsBatchSize),
		lines:     filter.NewLineList(opts.LinesBatchSize),
		endpoints: filter.NewStopList(opts.EndpointsBatchSize),
	}

	stops := catalog.Stops()
	s.stops.SetSource(stops)
	s.endpoints.SetSource(stops)
	s.lines.SetSource(catalog.Lines())

	negotiator.OnSettle(s.routeSettled)
	return s
}

func (s *Session) SetStops(stops []domain.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.catalog.SetStops(stops)
	current := s.catalog.Stops()
	s.stops.SetSource(current)
	s.endpoints.SetSource(current)

	s.logger.Info("stop catalog updated", "stops", len(current), "duplicates_dropped", dropped)
	s.publishLocked()
}

func (s *Session) SetLines(lines []domain.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.catalog.SetLines(lines)
	current := s.catalog.Lines()
	s.lines.SetSource(current)
	if _, ok := s.catalog.Line(s.expandedLine); !ok {
		s.expandedLine = 0
	}

	s.logger.Info("line catalog updated", "lines", len(current), "duplicates_dropped", dropped)
}

func (s *Session) SetLocation(loc *domain.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc != nil {
		c := *loc
		loc = &c
	}
	s.location = loc
	s.publishLocked()
}

// RefreshLocation asks the provider for a fix. No fix leaves the current
// location unchanged.
func (s *Session) RefreshLocation(ctx context.Context) error {
	if s.locator == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LocationTimeout)
	defer cancel()

	loc, err := s.locator.Current(ctx)
	if err != nil {
		return fmt.Errorf("fetching location: %w", err)
	}
	if loc == nil {
		s.logger.Debug("no device location available")
		return nil
	}
	s.SetLocation(loc)
	return nil
}

func (s *Session) SelectPanel(panel nav.Panel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.nav.Activate(panel)
	if t.ClearRoute {
		s.route.Reset()
		s.endpoints.SetQuery("")
	}
	if t.To == nav.PanelDirections && t.From != nav.PanelDirections {
		s.maybeSubmitLocked()
	}

	s.logger.Debug("panel selected", "from", t.From, "to", t.To, "clear_route", t.ClearRoute, "clear_pin", t.ClearPin)
	s.publishLocked()
}

func (s *Session) ClosePanel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nav.Close()
	s.route.Reset()
	s.endpoints.SetQuery("")
	s.publishLocked()
}

func (s *Session) SearchStops(query string) filter.Page[domain.Stop] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query != s.stops.Query() {
		s.stops.SetQuery(query)
	}
	return s.stops.Page()
}

func (s *Session) MoreStops() filter.Page[domain.Stop] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops.LoadMore()
	return s.stops.Page()
}

func (s *Session) PinStop(id int) (domain.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop, ok := s.catalog.Stop(id)
	if !ok {
		return domain.Stop{}, fmt.Errorf("stop %d: %w", id, ErrUnknownStop)
	}
	s.nav.Pin(stop)
	s.publishLocked()
	return stop, nil
}

func (s *Session) UnpinStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav.Unpin() {
		s.publishLocked()
	}
}

func (s *Session) SearchLines(query string) filter.Page[domain.Line] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query != s.lines.Query() {
		s.lines.SetQuery(query)
	}
	return s.lines.Page()
}

func (s *Session) MoreLines() filter.Page[domain.Line] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines.LoadMore()
	return s.lines.Page()
}

// LineDetail is an expanded line with its ordered route stop names.
type LineDetail struct {
	Line  domain.Line `json:"line"`
	Stops []string    `json:"stops"`
}

// ToggleLine expands a line's route, or collapses it if already expanded.
// It returns nil when the toggle collapsed the line.
func (s *Session) ToggleLine(id int) (*LineDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.catalog.Line(id)
	if !ok {
		return nil, fmt.Errorf("line %d: %w", id, ErrUnknownLine)
	}
	if s.expandedLine == id {
		s.expandedLine = 0
		return nil, nil
	}
	s.expandedLine = id
	return &LineDetail{Line: line, Stops: line.RouteStops()}, nil
}

// AppendNearby records a proximity event from the renderer.
func (s *Session) AppendNearby(entry json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nearby = append(s.nearby, slices.Clone(entry))
}

// RequestLocation handles the renderer asking to re-center: the pinned stop
// and the drawn route are dropped and a fresh fix is requested.
func (s *Session) RequestLocation() {
	s.mu.Lock()
	s.nav.Unpin()
	if s.route.Snapshot().State == route.StateDetailSelected {
		if _, err := s.route.Back(); err != nil {
			s.logger.Debug("route back failed", "error", err)
		}
	}
	s.publishLocked()
	s.mu.Unlock()

	go func() {
		if err := s.RefreshLocation(s.ctx); err != nil {
			s.logger.Warn("location refresh failed", "error", err)
		}
	}()
}

func (s *Session) Nearby() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]json.RawMessage, len(s.nearby))
	copy(result, s.nearby)
	return result
}

func (s *Session) routeSettled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked()
}

func (s *Session) publishLocked() {
	if s.publisher == nil {
		return
	}

	snap := bridge.Snapshot{
		BusStops:        s.catalog.Stops(),
		SpecificBusStop: s.nav.Pinned(),
		RouteInfo:       s.route.Snapshot().ActiveLegs(),
	}
	if s.location != nil {
		loc := *s.location
		snap.CurrentLocation = &loc
	}

	if err := s.publisher.Publish(snap); err != nil {
		s.logger.Error("failed to publish renderer snapshot", "error", err)
	}
}
