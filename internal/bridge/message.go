package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"ygnbus/internal/domain"
)

var (
	ErrMalformed   = errors.New("malformed renderer message")
	ErrUnknownType = errors.New("unknown renderer message type")
)

const (
	TypeLog             = "LOG"
	TypeRequestLocation = "REQUEST_LOCATION"
)

// Snapshot is the full state the map renderer draws from. It is always
// sent whole.
type Snapshot struct {
	BusStops        []domain.Stop     `json:"busStops"`
	CurrentLocation *domain.Location  `json:"currentLocation"`
	SpecificBusStop *domain.Stop      `json:"specificBusStop"`
	RouteInfo       []domain.RouteLeg `json:"routeInfo"`
}

// Event is a decoded renderer message.
type Event struct {
	Type string
	// Payload is the structured LOG message; empty for REQUEST_LOCATION.
	Payload json.RawMessage
}

type envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Decode validates one inbound renderer message. LOG messages may carry
// their payload as a JSON string holding JSON, or as a JSON value.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeRequestLocation:
		return Event{Type: TypeRequestLocation}, nil
	case TypeLog:
		payload, err := decodeLogPayload(env.Message)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: TypeLog, Payload: payload}, nil
	case "":
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeLogPayload(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: LOG without message", ErrMalformed)
	}

	if raw[0] != '"' {
		return raw, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	inner := bytes.TrimSpace([]byte(text))
	if !json.Valid(inner) {
		return nil, fmt.Errorf("%w: LOG message is not JSON", ErrMalformed)
	}
	return json.RawMessage(inner), nil
}

// NormalizeLocation converts the accepted location shapes to the canonical
// form. A nil input yields a nil location.
func NormalizeLocation(v any) (*domain.Location, error) {
	switch loc := v.(type) {
	case nil:
		return nil, nil
	case domain.Location:
		return &loc, nil
	case *domain.Location:
		if loc == nil {
			return nil, nil
		}
		c := *loc
		return &c, nil
	case [2]float64:
		return &domain.Location{Longitude: loc[0], Latitude: loc[1]}, nil
	case []float64:
		if len(loc) != 2 {
			return nil, fmt.Errorf("location pair must have 2 elements, got %d", len(loc))
		}
		return &domain.Location{Longitude: loc[0], Latitude: loc[1]}, nil
	case json.RawMessage:
		return decodeLocation(loc)
	case []byte:
		return decodeLocation(loc)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding location: %w", err)
		}
		return decodeLocation(data)
	}
}

func decodeLocation(data []byte) (*domain.Location, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var loc domain.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
