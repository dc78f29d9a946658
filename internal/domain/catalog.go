package domain

import (
	"strconv"
	"strings"
)

// Stop represents a bus stop from the catalog service
type Stop struct {
	ID         int     `json:"id"`
	NameEN     string  `json:"name_en"`
	NameMM     string  `json:"name_mm"`
	RoadEN     string  `json:"road_en"`
	RoadMM     string  `json:"road_mm"`
	TownshipEN string  `json:"township_en"`
	TownshipMM string  `json:"township_mm"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Color      string  `json:"color"`
}

// Line represents a bus line with its named route. Start and End are the
// representative terminus names sent by the catalog service.
type Line struct {
	ID         int    `json:"id"`
	LineNumber string `json:"line_number"`
	Color      string `json:"color"`
	Station    int    `json:"station,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	NamedRoute string `json:"named_route"`
}

// RouteStopSeparator delimits stop names inside Line.NamedRoute
const RouteStopSeparator = "-"

// RouteStops splits the named route into its ordered stop names.
func (l Line) RouteStops() []string {
	if strings.TrimSpace(l.NamedRoute) == "" {
		return nil
	}
	parts := strings.Split(l.NamedRoute, RouteStopSeparator)
	stops := make([]string, 0, len(parts))
	for _, p := range parts {
		stops = append(stops, strings.TrimSpace(p))
	}
	return stops
}

// Label returns the line number, falling back to the numeric id.
func (l Line) Label() string {
	if l.LineNumber != "" {
		return l.LineNumber
	}
	return strconv.Itoa(l.ID)
}

// RouteLeg is one row of a computed route: a line passing through a stop
type RouteLeg struct {
	BusLineID int     `json:"bus_line_id"`
	BusStopID int     `json:"bus_stop_id,omitempty"`
	NameEN    string  `json:"name_en"`
	NameMM    string  `json:"name_mm"`
	Sequence  int     `json:"sequence,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
}
