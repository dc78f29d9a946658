// Package route drives a two-endpoint route query against the remote route
// service: submission, supersession of stale requests, and the move from
// candidate options to one detailed line.
package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"ygnbus/internal/domain"
	"ygnbus/pkg/busapi"
)

var (
	ErrEditing           = errors.New("an endpoint field is being edited")
	ErrIncompleteQuery   = errors.New("both start and end stops are required")
	ErrUnknownLine       = errors.New("line is not among the route candidates")
	ErrInvalidTransition = errors.New("invalid route state transition")
)

const (
	MessageNoRoute  = "No route found between these stops."
	MessageTimedOut = "Request timed out."
)

// Finder is the remote route service.
type Finder interface {
	FindRoute(ctx context.Context, start, end string) ([]domain.RouteLeg, error)
}

// EditGuard reports whether interactive editing currently blocks submission.
type EditGuard interface {
	Editing() bool
}

type Negotiator struct {
	finder  Finder
	guard   EditGuard
	timeout time.Duration
	baseCtx context.Context
	logger  *slog.Logger

	mu       sync.Mutex
	snap     Snapshot
	next     Token
	cancel   context.CancelFunc
	onSettle []func()

	inflight sync.WaitGroup
}

func NewNegotiator(ctx context.Context, finder Finder, guard EditGuard, timeout time.Duration, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		finder:  finder,
		guard:   guard,
		timeout: timeout,
		baseCtx: ctx,
		logger:  logger.With("component", "route_negotiator"),
		snap:    Snapshot{State: StateIdle},
	}
}

// OnSettle registers fn to run after an asynchronous result is committed.
// fn runs without any negotiator lock held.
func (n *Negotiator) OnSettle(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onSettle = append(n.onSettle, fn)
}

// Submit starts a route request for the pair, superseding any request
// still pending. The result is committed asynchronously.
func (n *Negotiator) Submit(start, end string) (Token, error) {
	if n.guard != nil && n.guard.Editing() {
		return 0, ErrEditing
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		n.resetLocked()
		return 0, ErrIncompleteQuery
	}

	if n.cancel != nil {
		n.cancel()
		n.logger.Debug("superseding pending route request", "token", n.snap.Token)
	}

	n.next++
	token := n.next
	ctx, cancel := context.WithTimeout(n.baseCtx, n.timeout)
	n.cancel = cancel
	n.snap = Snapshot{State: StatePending, Token: token, Start: start, End: end}

	n.inflight.Add(1)
	go n.run(ctx, cancel, token, start, end)

	n.logger.Debug("route request submitted", "token", token, "start", start, "end", end)
	return token, nil
}

func (n *Negotiator) run(ctx context.Context, cancel context.CancelFunc, token Token, start, end string) {
	defer n.inflight.Done()
	defer cancel()

	began := time.Now()
	legs, err := n.finder.FindRoute(ctx, start, end)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("route request: %w", ctx.Err())
	}

	if !n.commit(token, legs, err) {
		n.logger.Debug("discarded stale route result", "token", token)
		return
	}

	n.logger.Info("route request settled",
		"token", token,
		"state", n.Snapshot().State,
		"duration_ms", time.Since(began).Milliseconds(),
	)

	n.mu.Lock()
	listeners := slices.Clone(n.onSettle)
	n.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (n *Negotiator) commit(token Token, legs []domain.RouteLeg, err error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.snap.State != StatePending || n.snap.Token != token {
		return false
	}
	n.cancel = nil

	var statusErr *busapi.StatusError
	switch {
	case errors.Is(err, busapi.ErrRouteNotFound):
		n.snap.State = StateNotFound
		n.snap.Message = MessageNoRoute
	case errors.As(err, &statusErr):
		n.snap.State = StateError
		n.snap.Message = fmt.Sprintf("Server Error: %d", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		n.snap.State = StateError
		n.snap.Message = MessageTimedOut
	case err != nil:
		n.snap.State = StateError
		n.snap.Message = err.Error()
	case len(LineIDs(legs)) == 0:
		n.snap.State = StateNotFound
		n.snap.Message = MessageNoRoute
	default:
		n.snap.State = StateFound
		n.snap.Candidates = legs
		n.snap.Lines = LineIDs(legs)
		n.snap.Primary = n.snap.Lines[0]
	}

	if n.snap.State == StateError {
		n.logger.Warn("route request failed", "token", token, "error", err)
	}
	return true
}

// SelectDetail narrows the found candidates to one line. A zero lineID
// selects the primary candidate.
func (n *Negotiator) SelectDetail(lineID int) (Snapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.snap.State != StateFound {
		return n.copyLocked(), fmt.Errorf("select detail from %s: %w", n.snap.State, ErrInvalidTransition)
	}
	if lineID == 0 {
		lineID = n.snap.Primary
	}
	if !slices.Contains(n.snap.Lines, lineID) {
		return n.copyLocked(), fmt.Errorf("line %d: %w", lineID, ErrUnknownLine)
	}

	n.snap.State = StateDetailSelected
	n.snap.DetailLine = lineID
	n.snap.Detail = LegsForLine(n.snap.Candidates, lineID)
	return n.copyLocked(), nil
}

// Back returns from the detailed line to the candidate options without
// querying the service again.
func (n *Negotiator) Back() (Snapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.snap.State != StateDetailSelected {
		return n.copyLocked(), fmt.Errorf("back from %s: %w", n.snap.State, ErrInvalidTransition)
	}
	n.snap.State = StateFound
	n.snap.DetailLine = 0
	n.snap.Detail = nil
	return n.copyLocked(), nil
}

// Reset returns to Idle and invalidates any pending request.
func (n *Negotiator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetLocked()
}

func (n *Negotiator) resetLocked() {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	if n.snap.State == StateIdle {
		return
	}
	// Keep the token so a late result of the cancelled request cannot match.
	n.snap = Snapshot{State: StateIdle, Token: n.snap.Token}
}

func (n *Negotiator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.copyLocked()
}

// Wait blocks until every in-flight request has returned.
func (n *Negotiator) Wait() {
	n.inflight.Wait()
}

func (n *Negotiator) copyLocked() Snapshot {
	s := n.snap
	s.Candidates = slices.Clone(n.snap.Candidates)
	s.Lines = slices.Clone(n.snap.Lines)
	s.Detail = slices.Clone(n.snap.Detail)
	return s
}
