package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckception/wbudowane-backend/internal/query"
	"github.com/duckception/wbudowane-backend/internal/reading"
	"github.com/duckception/wbudowane-backend/internal/store"
)

type stubSource struct {
	rows []store.Row
}

func (s stubSource) Recent(_ context.Context, room string, kind reading.Kind, relay int, limit int) ([]store.Row, error) {
	if kind != reading.Temperature || room != "Room2" {
		return nil, nil
	}
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

type stubLatest struct {
	value string
	found bool
}

func (s stubLatest) LatestValue(context.Context, string, reading.Kind) (string, bool, error) {
	return s.value, s.found, nil
}

func newServer(src query.Source, latest LatestReader) *httptest.Server {
	mux := http.NewServeMux()
	NewAPIHandler(query.NewEngine(src), latest, slog.Default()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestRoomDataEndpoint(t *testing.T) {
	src := stubSource{rows: []store.Row{
		{Value: 21.5, At: time.Date(2024, 5, 10, 9, 0, 5, 0, time.UTC)},
		{Value: 21.0, At: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)},
	}}
	srv := newServer(src, stubLatest{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/data?kind=T&limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []struct {
			Name   string    `json:"name"`
			Room   string    `json:"id"`
			Data   []float64 `json:"data"`
			Labels []string  `json:"labels"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "T", body.Data[0].Name)
	assert.Equal(t, "2", body.Data[0].Room)
	assert.Equal(t, []float64{21.0, 21.5}, body.Data[0].Data)
	assert.Equal(t, []string{"09:00:00", "09:00:05"}, body.Data[0].Labels)
}

func TestRoomDataDefaultsToAllKinds(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, len(reading.Kinds))
}

func TestRoomDataRejectsBadLimit(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/data?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoomLatestEndpoint(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{value: "23.5", found: true})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/latest?kind=T")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "23.5", body["value"])
	assert.Equal(t, "T", body["kind"])
}

func TestRoomLatestAcceptsLowercaseKind(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{value: "1", found: true})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/latest?kind=p")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "P", body["kind"])
}

func TestRoomLatestMissingValue(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/latest?kind=H")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomLatestRejectsBadKind(t *testing.T) {
	srv := newServer(stubSource{}, stubLatest{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/2/latest?kind=XYZ")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
