// Package filter implements the incremental search-filter-paginate list
// shared by the bus stop, direction endpoint and bus line panels.
package filter

import "strings"

// Matcher reports whether item matches an already lower-cased query.
type Matcher[T any] func(item T, lowerQuery string) bool

// KeyFunc extracts a stable display key from an item.
type KeyFunc[T any] func(item T) string

// FilterAll returns the items of source matching query, in source order.
// An empty query returns source unchanged.
func FilterAll[T any](source []T, query string, match Matcher[T]) []T {
	if query == "" {
		return source
	}

	lower := strings.ToLower(query)
	result := make([]T, 0)
	for _, item := range source {
		if match(item, lower) {
			result = append(result, item)
		}
	}
	return result
}

// List keeps a filtered sequence and the displayed prefix of it.
// It is not safe for concurrent use; callers serialize access.
type List[T any] struct {
	batch   int
	match   Matcher[T]
	key     KeyFunc[T]
	source  []T
	query   string
	all     []T
	visible int
}

func New[T any](batchSize int, match Matcher[T], key KeyFunc[T]) *List[T] {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &List[T]{
		batch: batchSize,
		match: match,
		key:   key,
	}
}

func (l *List[T]) SetSource(source []T) {
	l.source = source
	l.recompute()
}

func (l *List[T]) SetQuery(query string) {
	l.query = query
	l.recompute()
}

func (l *List[T]) Query() string {
	return l.query
}

func (l *List[T]) BatchSize() int {
	return l.batch
}

// LoadMore grows the displayed prefix by one batch. It returns false when
// the prefix already covers the whole filtered sequence.
func (l *List[T]) LoadMore() bool {
	if l.visible >= len(l.all) {
		return false
	}
	l.visible = min(l.visible+l.batch, len(l.all))
	return true
}

// Visible returns a copy of the displayed prefix.
func (l *List[T]) Visible() []T {
	result := make([]T, l.visible)
	copy(result, l.all[:l.visible])
	return result
}

// All returns a copy of the complete filtered sequence.
func (l *List[T]) All() []T {
	result := make([]T, len(l.all))
	copy(result, l.all)
	return result
}

func (l *List[T]) First() (T, bool) {
	if len(l.all) == 0 {
		var zero T
		return zero, false
	}
	return l.all[0], true
}

func (l *List[T]) Keys() []string {
	keys := make([]string, l.visible)
	for i, item := range l.all[:l.visible] {
		keys[i] = l.key(item)
	}
	return keys
}

func (l *List[T]) Total() int {
	return len(l.all)
}

func (l *List[T]) VisibleCount() int {
	return l.visible
}

func (l *List[T]) HasMore() bool {
	return l.visible < len(l.all)
}

// NoResults reports the terminal "nothing matches" display state.
func (l *List[T]) NoResults() bool {
	return len(l.all) == 0
}

// Page is the serializable view of a List.
type Page[T any] struct {
	Query     string   `json:"query"`
	Items     []T      `json:"items"`
	Keys      []string `json:"keys"`
	Shown     int      `json:"shown"`
	BatchSize int      `json:"batch_size"`
	Total     int      `json:"total"`
	HasMore   bool     `json:"has_more"`
	NoResults bool     `json:"no_results"`
}

func (l *List[T]) Page() Page[T] {
	return Page[T]{
		Query:     l.query,
		Items:     l.Visible(),
		Keys:      l.Keys(),
		Shown:     l.VisibleCount(),
		BatchSize: l.BatchSize(),
		Total:     l.Total(),
		HasMore:   l.HasMore(),
		NoResults: l.NoResults(),
	}
}

func (l *List[T]) recompute() {
	l.all = FilterAll(l.source, l.query, l.match)
	l.visible = min(l.batch, len(l.all))
}
