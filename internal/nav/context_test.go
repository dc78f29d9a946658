package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ygnbus/internal/domain"
)

func TestParsePanel(t *testing.T) {
	tests := []struct {
		in      string
		want    Panel
		wantErr bool
	}{
		{in: "none", want: PanelNone},
		{in: "Directions", want: PanelDirections},
		{in: "bus_stops", want: PanelBusStops},
		{in: "busstops", want: PanelBusStops},
		{in: "nearby", want: PanelNearby},
		{in: "buses", want: PanelBuses},
		{in: "settings", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePanel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActivateLeavingDirectionsClearsRoute(t *testing.T) {
	c := NewContext()
	c.Activate(PanelDirections)
	require.NoError(t, c.Focus(FieldStart))
	require.True(t, c.Editing())

	tr := c.Activate(PanelBuses)

	assert.True(t, tr.ClearRoute)
	assert.False(t, tr.ClearPin)
	assert.Equal(t, PanelDirections, tr.From)
	assert.Equal(t, PanelBuses, tr.To)
	assert.False(t, c.Editing())
	assert.Equal(t, FieldNone, c.State().Field)
}

func TestActivateLeavingBusStopsClearsPin(t *testing.T) {
	c := NewContext()
	c.Activate(PanelBusStops)
	c.Pin(domain.Stop{ID: 4, NameEN: "Sule"})

	tr := c.Activate(PanelDirections)

	assert.True(t, tr.ClearPin)
	assert.False(t, tr.ClearRoute)
	assert.Nil(t, c.Pinned())
}

func TestActivateSamePanelIsNoop(t *testing.T) {
	c := NewContext()
	c.Activate(PanelNearby)
	c.Pin(domain.Stop{ID: 4})
	version := c.State().Version

	tr := c.Activate(PanelNearby)

	assert.False(t, tr.ClearPin)
	assert.Equal(t, version, c.State().Version)
	assert.NotNil(t, c.Pinned())
}

func TestFocusRequiresDirections(t *testing.T) {
	c := NewContext()
	assert.ErrorIs(t, c.Focus(FieldStart), ErrNotDirections)
	assert.Error(t, c.Focus(Field("middle")))

	c.Activate(PanelDirections)
	require.NoError(t, c.Focus(FieldEnd))
	assert.Equal(t, FieldEnd, c.Field())
}

func TestBlurOnlyClearsMatchingField(t *testing.T) {
	c := NewContext()
	c.Activate(PanelDirections)
	require.NoError(t, c.Focus(FieldStart))

	assert.False(t, c.Blur(FieldEnd))
	assert.True(t, c.Editing())
	assert.True(t, c.Blur(FieldStart))
	assert.False(t, c.Editing())
	assert.False(t, c.Blur(FieldStart))
}

func TestClose(t *testing.T) {
	c := NewContext()
	c.Activate(PanelBusStops)
	c.Pin(domain.Stop{ID: 9})

	tr := c.Close()

	assert.True(t, tr.ClearRoute)
	assert.True(t, tr.ClearPin)
	state := c.State()
	assert.Equal(t, PanelNone, state.Panel)
	assert.Nil(t, state.Pinned)
}

func TestPinnedReturnsCopy(t *testing.T) {
	c := NewContext()
	c.Pin(domain.Stop{ID: 1, NameEN: "Sule"})

	p := c.Pinned()
	p.NameEN = "changed"

	assert.Equal(t, "Sule", c.Pinned().NameEN)
	assert.True(t, c.Unpin())
	assert.False(t, c.Unpin())
}
