package session

import (
	"strconv"
	"strings"

	"ygnbus/internal/domain"
	"ygnbus/internal/filter"
	"ygnbus/internal/nav"
	"ygnbus/internal/route"
)

// Display is the terminal state shown by the directions panel.
type Display string

const (
	DisplayPreview     Display = "preview"
	DisplayIdle        Display = "idle"
	DisplaySearching   Display = "searching"
	DisplayNoResults   Display = "no_results"
	DisplayCalculating Display = "calculating"
	DisplayOptions     Display = "options"
	DisplayDetail      Display = "detail"
	DisplayNoRoute     Display = "no_route"
	DisplayError       Display = "error"
)

type DirectionsView struct {
	Start     string                    `json:"start"`
	End       string                    `json:"end"`
	Field     nav.Field                 `json:"active_search"`
	Display   Display                   `json:"display"`
	Endpoints *filter.Page[domain.Stop] `json:"endpoints,omitempty"`
	Route     route.Snapshot            `json:"route"`
	LineList  string                    `json:"line_list,omitempty"`
}

type LinesView struct {
	filter.Page[domain.Line]
	Expanded *LineDetail `json:"expanded,omitempty"`
}

type View struct {
	Nav        nav.State                `json:"nav"`
	Location   *domain.Location         `json:"current_location"`
	Stops      filter.Page[domain.Stop] `json:"bus_stops"`
	Lines      LinesView                `json:"bus_lines"`
	Directions DirectionsView           `json:"directions"`
	Nearby     int                      `json:"nearby_count"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Nav:        s.nav.State(),
		Stops:      s.stops.Page(),
		Lines:      LinesView{Page: s.lines.Page()},
		Directions: s.directionsLocked(),
		Nearby:     len(s.nearby),
	}
	if s.location != nil {
		loc := *s.location
		v.Location = &loc
	}
	if line, ok := s.catalog.Line(s.expandedLine); ok {
		v.Lines.Expanded = &LineDetail{Line: line, Stops: line.RouteStops()}
	}
	return v
}

func (s *Session) Directions() DirectionsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directionsLocked()
}

func (s *Session) directionsLocked() DirectionsView {
	snap := s.route.Snapshot()
	field := s.nav.Field()

	d := DirectionsView{
		Start: s.startQuery,
		End:   s.endQuery,
		Field: field,
		Route: snap,
	}
	if len(snap.Lines) > 0 {
		labels := make([]string, len(snap.Lines))
		for i, id := range snap.Lines {
			if line, ok := s.catalog.Line(id); ok {
				labels[i] = line.Label()
			} else {
				labels[i] = strconv.Itoa(id)
			}
		}
		d.LineList = strings.Join(labels, ", ")
	}

	if field != nav.FieldNone && s.endpoints.Query() != "" {
		page := s.endpoints.Page()
		d.Endpoints = &page
		d.Display = DisplaySearching
		if page.NoResults {
			d.Display = DisplayNoResults
		}
		return d
	}

	switch snap.State {
	case route.StatePending:
		d.Display = DisplayCalculating
	case route.StateFound:
		d.Display = DisplayOptions
	case route.StateDetailSelected:
		d.Display = DisplayDetail
	case route.StateNotFound:
		d.Display = DisplayNoRoute
	case route.StateError:
		d.Display = DisplayError
	default:
		if s.startQuery == "" && s.endQuery == "" {
			d.Display = DisplayPreview
		} else {
			d.Display = DisplayIdle
		}
	}
	return d
}
