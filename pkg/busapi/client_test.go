package busapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/busStopInfo", r.URL.Path)
		w.Write([]byte(`[{"id":1,"name_en":"Sule","name_mm":"ဆူးလေ","lat":16.77,"lng":96.16}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	stops, err := c.FetchStops(context.Background())
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "Sule", stops[0].NameEN)
	assert.InDelta(t, 96.16, stops[0].Lng, 1e-9)
}

func TestFetchLinesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 5*time.Second).FetchLines(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "busLineInfo", statusErr.Op)
}

func TestFindRoute(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantLegs   int
		wantErr    error
		wantStatus int
	}{
		{name: "found", status: http.StatusOK, body: `[{"bus_line_id":37,"name_en":"A"},{"bus_line_id":12,"name_en":"B"}]`, wantLegs: 2},
		{name: "empty body", status: http.StatusOK, body: "", wantLegs: 0},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrRouteNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/routeInfo", r.URL.Path)

				var req map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "Sule", req["startingBusStop"])
				assert.Equal(t, "Hledan", req["endingBusStop"])

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			legs, err := New(srv.URL, 5*time.Second).FindRoute(context.Background(), "Sule", "Hledan")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantStatus != 0:
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
				assert.Equal(t, "routeInfo: unexpected status code: 500", err.Error())
			default:
				require.NoError(t, err)
				assert.Len(t, legs, tt.wantLegs)
			}
		})
	}
}

func TestFindRouteHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, 5*time.Second).FindRoute(ctx, "Sule", "Hledan")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
