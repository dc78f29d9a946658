package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Location is a geographic coordinate in canonical {longitude, latitude} form.
//
// It decodes from either an ordered [longitude, latitude] pair or an object
// with named fields, and always encodes as the object form.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty location")
	}

	if data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("decoding location pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("location pair must have 2 elements, got %d", len(pair))
		}
		l.Longitude, l.Latitude = pair[0], pair[1]
		return nil
	}

	var named struct {
		Longitude *float64 `json:"longitude"`
		Latitude  *float64 `json:"latitude"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("decoding location object: %w", err)
	}
	if named.Longitude == nil || named.Latitude == nil {
		return fmt.Errorf("location object requires longitude and latitude")
	}
	l.Longitude, l.Latitude = *named.Longitude, *named.Latitude
	return nil
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
