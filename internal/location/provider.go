// Package location supplies the device position on demand.
package location

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ygnbus/internal/domain"
)

// Provider returns a single high-accuracy fix. A nil location with a nil
// error means no location is available, which is not a failure.
type Provider interface {
	Current(ctx context.Context) (*domain.Location, error)
}

// Gated only consults the underlying provider when permission is granted.
type Gated struct {
	granted  bool
	provider Provider
}

func NewGated(provider Provider, granted bool) *Gated {
	return &Gated{provider: provider, granted: granted}
}

func (g *Gated) Current(ctx context.Context) (*domain.Location, error) {
	if !g.granted || g.provider == nil {
		return nil, nil
	}
	return g.provider.Current(ctx)
}

// Reported holds the last position pushed by the device.
type Reported struct {
	mu  sync.RWMutex
	loc *domain.Location
}

func NewReported(initial *domain.Location) *Reported {
	return &Reported{loc: initial}
}

func (r *Reported) Set(loc domain.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loc = &loc
}

func (r *Reported) Current(ctx context.Context) (*domain.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loc == nil {
		return nil, nil
	}
	loc := *r.loc
	return &loc, nil
}

// ParsePair parses "longitude,latitude". An empty string yields nil.
func ParsePair(s string) (*domain.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid location %q: expected longitude,latitude", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}

	loc := &domain.Location{Longitude: lon, Latitude: lat}
	if !loc.Valid() {
		return nil, fmt.Errorf("location %q out of range", s)
	}
	return loc, nil
}
