package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"climateworld/internal/config"
	"climateworld/internal/network"
	"climateworld/internal/worldmap"
)

func TestWriteJSONHandlesEncodingFailures(t *testing.T) {
	recorder := httptest.NewRecorder()

	// encoding/json cannot marshal channel values and returns an error.
	data := struct{ C chan int }{C: make(chan int)}
	writeJSON(recorder, data)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want %d", recorder.Code, http.StatusInternalServerError)
	}
}

func TestWriteJSONSetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	writeJSON(recorder, struct{ Value string }{Value: "ok"})

	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", got)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	original := log.Writer()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(original) })

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataRoot = dir
	cfg.IndexPath = filepath.Join(dir, "worlds.db")
	cfg.Cache.Dir = filepath.Join(dir, "chunks")
	cfg.Limits.MaxWorldSize = 64
	cfg.Generation.WorldSize = 32
	cfg.Generation.ChunkSize = 8
	require.NoError(t, cfg.Validate())

	srv, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func createWorld(t *testing.T, h http.Handler, body string) createWorldResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/worlds", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp createWorldResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateWorldReportsFallbacks(t *testing.T) {
	h := newTestServer(t).Handler()
	resp := createWorld(t, h, `{"seed":"42","terrain_scale":"abc","octave_count":"4","world_size":"1024"}`)

	require.NotEmpty(t, resp.World.ID)
	require.Equal(t, uint32(42), resp.World.Config.Seed)
	require.Equal(t, 32, resp.World.Config.WorldSize)
	require.Equal(t, 32*32, resp.World.Summary.Cells)
	require.Equal(t, 16, resp.Accepted.Chunks)

	reasons := make(map[string]string)
	for _, fb := range resp.Fallbacks {
		reasons[fb.Field] = fb.Reason
	}
	require.Equal(t, "not a number", reasons["terrain_scale"])
	require.Equal(t, "exceeds limit", reasons["world_size"])
	require.Equal(t, "empty", reasons["moisture_scale"])
	require.NotContains(t, reasons, "seed")
}

func TestCreateWorldRejectsInvalidBodies(t *testing.T) {
	h := newTestServer(t).Handler()
	cases := map[string]string{
		"not json":        `{`,
		"unknown field":   `{"colour":"red"}`,
		"number not text": `{"seed":42}`,
		"array body":      `[]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/worlds", strings.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestLookupWrapsCoordinates(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	resp := createWorld(t, h, `{"seed":"7"}`)

	get := func(url string) lookupResponse {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out lookupResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		return out
	}

	wrapped := get("/lookup?world=" + resp.World.ID + "&x=-1&y=32")
	direct := get("/lookup?world=" + resp.World.ID + "&x=31&y=0")
	require.Equal(t, direct.Cell, wrapped.Cell)
	require.Equal(t, srv.palette.Hex(direct.Cell.Biome), direct.Color)
}

func TestLookupErrors(t *testing.T) {
	h := newTestServer(t).Handler()
	cases := []struct {
		url  string
		code int
	}{
		{"/lookup", http.StatusBadRequest},
		{"/lookup?world=a&x=foo&y=1", http.StatusBadRequest},
		{"/lookup?world=a&x=1&y=bar", http.StatusBadRequest},
		{"/lookup?world=missing&x=1&y=1", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.url, nil))
		require.Equal(t, tc.code, rr.Code, tc.url)
	}
}

func TestWorldListingAndInfo(t *testing.T) {
	h := newTestServer(t).Handler()
	first := createWorld(t, h, `{"seed":"1"}`)
	createWorld(t, h, `{"seed":"2"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worlds", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var worlds []worldmap.WorldInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &worlds))
	require.Len(t, worlds, 2)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worlds/"+first.World.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var info worldmap.WorldInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Equal(t, first.World.Summary.Digest, info.Summary.Digest)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worlds/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChunkEndpointUsesCache(t *testing.T) {
	h := newTestServer(t).Handler()
	resp := createWorld(t, h, `{"seed":"3"}`)

	fetch := func(path string) network.ChunkPayload {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var payload network.ChunkPayload
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
		return payload
	}

	first := fetch("/worlds/" + resp.World.ID + "/chunks/1/2")
	require.False(t, first.Cached)
	require.Equal(t, 8, first.Size)
	require.Len(t, first.Cells, 64)

	second := fetch("/worlds/" + resp.World.ID + "/chunks/5/2")
	require.True(t, second.Cached)
	require.Equal(t, first.Cells, second.Cells)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worlds/"+resp.World.ID+"/chunks/x/0", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportDecodesToSameGrid(t *testing.T) {
	h := newTestServer(t).Handler()
	resp := createWorld(t, h, `{"seed":"11"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/worlds/"+resp.World.ID+"/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, network.GridContentType, rr.Header().Get("Content-Type"))

	grid, err := network.DecodeGrid(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 32, grid.Width)

	var lookup lookupResponse
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/lookup?world="+resp.World.ID+"&x=5&y=6", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lookup))
	require.Equal(t, grid.At(5, 6), lookup.Cell)
}

func TestStreamSendsEveryChunk(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := createWorld(t, srv.Handler(), `{"seed":"5"}`)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/worlds/" + resp.World.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var (
		types  []network.MessageType
		chunks int
		ready  network.Ready
	)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		var env network.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		types = append(types, env.Type)
		if env.Type == network.MessageChunk {
			var payload network.ChunkPayload
			require.NoError(t, env.Decode(&payload))
			require.Len(t, payload.Cells, 64)
			chunks++
		}
		if env.Type == network.MessageReady {
			require.NoError(t, env.Decode(&ready))
			break
		}
		require.NotEqual(t, network.MessageError, env.Type)
	}

	require.Equal(t, network.MessageWorldAccepted, types[0])
	require.Equal(t, 16, chunks)
	require.Equal(t, resp.World.ID, ready.WorldID)
	require.Equal(t, resp.World.Summary.Digest, ready.Summary.Digest)
}
