package store

import (
	"sync"
	"time"

	"ygnbus/internal/domain"
)

// CatalogStore holds the deduplicated stop and line catalog.
// Order is the order in which records were first seen.
type CatalogStore struct {
	mu        sync.RWMutex
	stops     []domain.Stop
	stopsByID map[int]int
	lines     []domain.Line
	linesByID map[int]int
	stopsAt   time.Time
	linesAt   time.Time
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		stopsByID: make(map[int]int),
		linesByID: make(map[int]int),
	}
}

// SetStops replaces the stop catalog. Duplicate ids keep the first record;
// records without an id are dropped.
func (s *CatalogStore) SetStops(stops []domain.Stop) int {
	deduped, index := dedupe(stops, func(st domain.Stop) int { return st.ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops = deduped
	s.stopsByID = index
	s.stopsAt = time.Now()
	return len(stops) - len(deduped)
}

// SetLines replaces the line catalog with the same rules as SetStops.
func (s *CatalogStore) SetLines(lines []domain.Line) int {
	deduped, index := dedupe(lines, func(l domain.Line) int { return l.ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = deduped
	s.linesByID = index
	s.linesAt = time.Now()
	return len(lines) - len(deduped)
}

func (s *CatalogStore) Stops() []domain.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Stop, len(s.stops))
	copy(result, s.stops)
	return result
}

func (s *CatalogStore) Lines() []domain.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Line, len(s.lines))
	copy(result, s.lines)
	return result
}

func (s *CatalogStore) Stop(id int) (domain.Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.stopsByID[id]
	if !ok {
		return domain.Stop{}, false
	}
	return s.stops[i], true
}

func (s *CatalogStore) Line(id int) (domain.Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.linesByID[id]
	if !ok {
		return domain.Line{}, false
	}
	return s.lines[i], true
}

type CatalogStats struct {
	StopsCount     int       `json:"stops_count"`
	LinesCount     int       `json:"lines_count"`
	StopsUpdatedAt time.Time `json:"stops_updated_at"`
	LinesUpdatedAt time.Time `json:"lines_updated_at"`
	IsLoaded       bool      `json:"is_loaded"`
}

func (s *CatalogStore) Stats() CatalogStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CatalogStats{
		StopsCount:     len(s.stops),
		LinesCount:     len(s.lines),
		StopsUpdatedAt: s.stopsAt,
		LinesUpdatedAt: s.linesAt,
		IsLoaded:       !s.stopsAt.IsZero() || !s.linesAt.IsZero(),
	}
}

func dedupe[T any](items []T, id func(T) int) ([]T, map[int]int) {
	result := make([]T, 0, len(items))
	index := make(map[int]int, len(items))
	for _, item := range items {
		key := id(item)
		if key == 0 {
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = len(result)
		result = append(result, item)
	}
	return result, index
}
