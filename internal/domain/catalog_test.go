package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineRouteStops(t *testing.T) {
	tests := []struct {
		name  string
		route string
		want  []string
	}{
		{name: "empty", route: "", want: nil},
		{name: "blank", route: "   ", want: nil},
		{name: "single", route: "Sule", want: []string{"Sule"}},
		{name: "trims parts", route: "Sule - Hledan -Kamayut", want: []string{"Sule", "Hledan", "Kamayut"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Line{NamedRoute: tt.route}
			assert.Equal(t, tt.want, l.RouteStops())
		})
	}
}

func TestLineLabel(t *testing.T) {
	assert.Equal(t, "36A", Line{ID: 36, LineNumber: "36A"}.Label())
	assert.Equal(t, "36", Line{ID: 36}.Label())
}

func TestLineDecode(t *testing.T) {
	var l Line
	err := json.Unmarshal([]byte(`{"id":36,"line_number":"36","color":"#f00","station":42,"start":"Hledan","end":"Sule","named_route":"Hledan-Sule"}`), &l)
	require.NoError(t, err)

	assert.Equal(t, 36, l.ID)
	assert.Equal(t, 42, l.Station)
	assert.Equal(t, "Hledan", l.Start)
	assert.Equal(t, "Sule", l.End)
	assert.Equal(t, []string{"Hledan", "Sule"}, l.RouteStops())
}
