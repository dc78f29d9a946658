package session

import (
	"fmt"
	"strings"

	"ygnbus/internal/domain"
	"ygnbus/internal/filter"
	"ygnbus/internal/nav"
	"ygnbus/internal/route"
)

// FocusEndpoint puts a direction field in edit mode. Editing suppresses
// route submission and clears any displayed result.
func (s *Session) FocusEndpoint(field nav.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.nav.Focus(field); err != nil {
		return err
	}
	s.route.Reset()
	s.endpoints.SetQuery(s.queryLocked(field))
	s.publishLocked()
	return nil
}

// BlurEndpoint leaves edit mode without a selection.
func (s *Session) BlurEndpoint(field nav.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.nav.Blur(field) {
		return
	}
	s.endpoints.SetQuery("")
	s.maybeSubmitLocked()
	s.publishLocked()
}

// EditEndpoint replaces the text of one endpoint field.
func (s *Session) EditEndpoint(field nav.Field, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setQueryLocked(field, text); err != nil {
		return err
	}
	if s.nav.Field() == field {
		s.endpoints.SetQuery(text)
	}
	s.route.Reset()
	s.maybeSubmitLocked()
	s.publishLocked()
	return nil
}

// SelectEndpoint fills field with a catalog stop's name and ends editing.
func (s *Session) SelectEndpoint(field nav.Field, stopID int) (domain.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop, ok := s.catalog.Stop(stopID)
	if !ok {
		return domain.Stop{}, fmt.Errorf("stop %d: %w", stopID, ErrUnknownStop)
	}
	if err := s.commitEndpointLocked(field, stop); err != nil {
		return domain.Stop{}, err
	}
	return stop, nil
}

// SubmitEndpointSearch picks the first match for the focused field. It
// reports false when nothing matches.
func (s *Session) SubmitEndpointSearch() (domain.Stop, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	field := s.nav.Field()
	if field == nav.FieldNone {
		return domain.Stop{}, false, ErrNotEditing
	}
	first, ok := s.endpoints.First()
	if !ok {
		return domain.Stop{}, false, nil
	}
	if err := s.commitEndpointLocked(field, first); err != nil {
		return domain.Stop{}, false, err
	}
	return first, true, nil
}

func (s *Session) MoreEndpoints() filter.Page[domain.Stop] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endpoints.LoadMore()
	return s.endpoints.Page()
}

// SwapEndpoints exchanges start and end. Routes are directional, so any
// existing negotiation is invalidated.
func (s *Session) SwapEndpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startQuery, s.endQuery = s.endQuery, s.startQuery
	if field := s.nav.Field(); field != nav.FieldNone {
		s.endpoints.SetQuery(s.queryLocked(field))
	}
	s.route.Reset()
	s.maybeSubmitLocked()
	s.publishLocked()
}

// ViewRouteDetail selects one candidate line; 0 selects the primary one.
func (s *Session) ViewRouteDetail(lineID int) (route.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.route.SelectDetail(lineID)
	if err != nil {
		return snap, err
	}
	s.publishLocked()
	return snap, nil
}

func (s *Session) BackToOptions() (route.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.route.Back()
	if err != nil {
		return snap, err
	}
	s.publishLocked()
	return snap, nil
}

// WaitRoute blocks until in-flight route requests have returned.
func (s *Session) WaitRoute() {
	s.route.Wait()
}

func (s *Session) commitEndpointLocked(field nav.Field, stop domain.Stop) error {
	if err := s.setQueryLocked(field, stop.NameEN); err != nil {
		return err
	}
	s.nav.Blur(field)
	s.endpoints.SetQuery("")
	s.route.Reset()
	s.maybeSubmitLocked()
	s.publishLocked()
	return nil
}

// maybeSubmitLocked submits the current pair when neither field is being
// edited, and resets the negotiation when either field is empty.
func (s *Session) maybeSubmitLocked() {
	if strings.TrimSpace(s.startQuery) == "" || strings.TrimSpace(s.endQuery) == "" {
		s.route.Reset()
		return
	}
	if s.nav.Editing() {
		return
	}

	if _, err := s.route.Submit(s.startQuery, s.endQuery); err != nil {
		s.logger.Debug("route submission skipped", "error", err)
	}
}

func (s *Session) setQueryLocked(field nav.Field, text string) error {
	switch field {
	case nav.FieldStart:
		s.startQuery = text
	case nav.FieldEnd:
		s.endQuery = text
	default:
		return fmt.Errorf("unknown endpoint field %q", field)
	}
	return nil
}

func (s *Session) queryLocked(field nav.Field) string {
	switch field {
	case nav.FieldStart:
		return s.startQuery
	case nav.FieldEnd:
		return s.endQuery
	default:
		return ""
	}
}
