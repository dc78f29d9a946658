package route

import (
	"slices"

	"ygnbus/internal/domain"
)

type State string

const (
	StateIdle           State = "idle"
	StatePending        State = "pending"
	StateFound          State = "found"
	StateDetailSelected State = "detail_selected"
	StateNotFound       State = "not_found"
	StateError          State = "error"
)

// Token identifies one submitted request. Tokens increase monotonically.
type Token uint64

// Snapshot is a copy of the negotiation at one point in time.
type Snapshot struct {
	State      State             `json:"state"`
	Token      Token             `json:"token"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Candidates []domain.RouteLeg `json:"candidates,omitempty"`
	Lines      []int             `json:"lines,omitempty"`
	Primary    int               `json:"primary_line,omitempty"`
	DetailLine int               `json:"detail_line,omitempty"`
	Detail     []domain.RouteLeg `json:"detail,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// ActiveLegs returns the legs that should be drawn on the map, which are
// only the detailed selection.
func (s Snapshot) ActiveLegs() []domain.RouteLeg {
	if s.State != StateDetailSelected {
		return nil
	}
	return s.Detail
}

// LineIDs returns the distinct line ids across legs in ascending order.
// Zero ids are skipped.
func LineIDs(legs []domain.RouteLeg) []int {
	seen := make(map[int]struct{}, len(legs))
	ids := make([]int, 0)
	for _, leg := range legs {
		if leg.BusLineID == 0 {
			continue
		}
		if _, ok := seen[leg.BusLineID]; ok {
			continue
		}
		seen[leg.BusLineID] = struct{}{}
		ids = append(ids, leg.BusLineID)
	}
	slices.Sort(ids)
	return ids
}

// LegsForLine keeps the legs of one line in their original order.
func LegsForLine(legs []domain.RouteLeg, lineID int) []domain.RouteLeg {
	result := make([]domain.RouteLeg, 0)
	for _, leg := range legs {
		if leg.BusLineID == lineID {
			result = append(result, leg)
		}
	}
	return result
}
