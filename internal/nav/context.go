// Package nav holds the process-wide navigation and selection state: which
// panel is open, which direction endpoint field is being edited, and which
// stop is pinned on the map.
package nav

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ygnbus/internal/domain"
)

var ErrNotDirections = errors.New("endpoint fields are only available in the directions panel")

type Panel string

const (
	PanelNone       Panel = ""
	PanelNearby     Panel = "Nearby"
	PanelDirections Panel = "Directions"
	PanelBuses      Panel = "Buses"
	PanelBusStops   Panel = "BusStops"
)

type Field string

const (
	FieldNone  Field = ""
	FieldStart Field = "start"
	FieldEnd   Field = "end"
)

func ParsePanel(s string) (Panel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PanelNone, nil
	case "nearby":
		return PanelNearby, nil
	case "directions":
		return PanelDirections, nil
	case "buses":
		return PanelBuses, nil
	case "busstops", "bus_stops":
		return PanelBusStops, nil
	default:
		return PanelNone, fmt.Errorf("unknown panel %q", s)
	}
}

func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return FieldStart, nil
	case "end":
		return FieldEnd, nil
	default:
		return FieldNone, fmt.Errorf("unknown endpoint field %q", s)
	}
}

// State is an immutable copy of the context.
type State struct {
	Panel   Panel        `json:"active_nav"`
	Field   Field        `json:"active_search"`
	Pinned  *domain.Stop `json:"specific_bus_stop"`
	Version uint64       `json:"version"`
}

// Transition describes the side effects the caller must apply after a
// panel change.
type Transition struct {
	From       Panel
	To         Panel
	ClearRoute bool
	ClearPin   bool
}

type Context struct {
	mu      sync.RWMutex
	panel   Panel
	field   Field
	pinned  *domain.Stop
	version uint64
}

func NewContext() *Context {
	return &Context{}
}

// Activate switches the active panel. Leaving Directions drops the focused
// field and asks the caller to clear the route; leaving BusStops or Nearby
// unpins the selected stop.
func (c *Context) Activate(panel Panel) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := Transition{From: c.panel, To: panel}
	if panel == c.panel {
		return t
	}

	if c.panel == PanelDirections {
		t.ClearRoute = true
		c.field = FieldNone
	}
	if (c.panel == PanelBusStops || c.panel == PanelNearby) && c.pinned != nil {
		t.ClearPin = true
		c.pinned = nil
	}
	c.panel = panel
	c.version++
	return t
}

// Close dismisses the open panel and drops every selection.
func (c *Context) Close() Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := Transition{From: c.panel, To: PanelNone, ClearRoute: true, ClearPin: c.pinned != nil}
	c.panel = PanelNone
	c.field = FieldNone
	c.pinned = nil
	c.version++
	return t
}

func (c *Context) Focus(field Field) error {
	if field != FieldStart && field != FieldEnd {
		return fmt.Errorf("focus %q: unknown endpoint field", field)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.panel != PanelDirections {
		return ErrNotDirections
	}
	if c.field != field {
		c.field = field
		c.version++
	}
	return nil
}

// Blur clears the focused field if it is field. It reports whether the
// focus changed.
func (c *Context) Blur(field Field) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.field == FieldNone || c.field != field {
		return false
	}
	c.field = FieldNone
	c.version++
	return true
}

func (c *Context) Pin(stop domain.Stop) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pinned = &stop
	c.version++
}

func (c *Context) Unpin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pinned == nil {
		return false
	}
	c.pinned = nil
	c.version++
	return true
}

// Editing reports whether a direction endpoint field has focus.
func (c *Context) Editing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.panel == PanelDirections && c.field != FieldNone
}

func (c *Context) Field() Field {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.panel != PanelDirections {
		return FieldNone
	}
	return c.field
}

func (c *Context) Pinned() *domain.Stop {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pinned == nil {
		return nil
	}
	stop := *c.pinned
	return &stop
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := State{Panel: c.panel, Field: c.field, Version: c.version}
	if c.pinned != nil {
		stop := *c.pinned
		s.Pinned = &stop
	}
	return s
}
