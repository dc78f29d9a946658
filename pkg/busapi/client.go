package busapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ygnbus/internal/domain"
)

// ErrRouteNotFound is returned when the route service answers 404.
var ErrRouteNotFound = errors.New("no route found between these stops")

// StatusError carries a non-2xx status from the service.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Op, e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type routeRequest struct {
	StartingBusStop string `json:"startingBusStop"`
	EndingBusStop   string `json:"endingBusStop"`
}

func (c *Client) FetchStops(ctx context.Context) ([]domain.Stop, error) {
	var stops []domain.Stop
	if err := c.getJSON(ctx, "/busStopInfo", &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

func (c *Client) FetchLines(ctx context.Context) ([]domain.Line, error) {
	var lines []domain.Line
	if err := c.getJSON(ctx, "/busLineInfo", &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// FindRoute asks the route service for the legs between two stops,
// identified by their display names.
func (c *Client) FindRoute(ctx context.Context, start, end string) ([]domain.RouteLeg, error) {
	body, err := json.Marshal(routeRequest{StartingBusStop: start, EndingBusStop: end})
	if err != nil {
		return nil, fmt.Errorf("encoding route request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/routeInfo", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRouteNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: "routeInfo", StatusCode: resp.StatusCode}
	}

	var legs []domain.RouteLeg
	if err := json.NewDecoder(resp.Body).Decode(&legs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding route legs: %w", err)
	}
	return legs, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: strings.TrimPrefix(path, "/"), StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return nil
}
