package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickfu415/landing-control/internal/auth"
	"github.com/rickfu415/landing-control/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testServer(t *testing.T, authCfg auth.Config) (*Server, *httptest.Server) {
	t.Helper()
	registry := session.NewRegistry(10)
	t.Cleanup(registry.CloseAll)

	srv := NewServer(Config{
		Addr: ":0",
		Auth: authCfg,
		Defaults: SessionDefaults{
			Preset:        "falcon9_block5_landing",
			StartAltitude: 4000,
			TickInterval:  time.Millisecond,
			TimeStep:      0.02,
		},
	}, registry, testLogger())

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestPresets(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	resp, err := http.Get(ts.URL + "/api/v1/presets")
	require.NoError(t, err)
	body := decodeJSON[map[string]json.RawMessage](t, resp)

	var presets []map[string]any
	require.NoError(t, json.Unmarshal(body["presets"], &presets))
	assert.NotEmpty(t, presets)

	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p["name"].(string))
	}
	assert.Contains(t, names, "falcon9_block5_landing")
}

func TestSessionLifecycle(t *testing.T) {
	_, ts := testServer(t, auth.Config{})

	resp := postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[sessionInfo](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, session.ModeManual, created.Mode)
	assert.InDelta(t, 4000, created.State.Altitude, 1)

	// Lookup.
	resp2, err := http.Get(ts.URL + "/api/v1/sessions/" + created.ID)
	require.NoError(t, err)
	got := decodeJSON[sessionInfo](t, resp2)
	assert.Equal(t, created.ID, got.ID)

	// List contains it.
	resp3, err := http.Get(ts.URL + "/api/v1/sessions")
	require.NoError(t, err)
	list := decodeJSON[map[string][]sessionInfo](t, resp3)
	assert.Len(t, list["sessions"], 1)

	// Delete.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/sessions/"+created.ID, nil)
	resp4, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp4.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp4.StatusCode)

	resp5, err := http.Get(ts.URL + "/api/v1/sessions/" + created.ID)
	require.NoError(t, err)
	resp5.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp5.StatusCode)
}

func TestCreateSessionValidation(t *testing.T) {
	_, ts := testServer(t, auth.Config{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown preset", map[string]any{"preset": "saturn5"}},
		{"bad mode", map[string]any{"mode": "spectator"}},
		{"bad wind level", map[string]any{"wind_level": 12}},
		{"negative altitude", map[string]any{"start_altitude": -100.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/v1/sessions", tt.body)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestManualInput(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"}))

	resp := postJSON(t, ts.URL+"/api/v1/sessions/"+created.ID+"/input",
		map[string]any{"throttle": 0.8, "gimbal_pitch": 2.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Clamped input.
	resp = postJSON(t, ts.URL+"/api/v1/sessions/"+created.ID+"/input",
		map[string]any{"gimbal_pitch": 45.0})
	snap := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, 5.0, snap["gimbal_pitch"])
}

func TestAutonomousRejectsInput(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "autonomous"}))

	resp := postJSON(t, ts.URL+"/api/v1/sessions/"+created.ID+"/input",
		map[string]any{"throttle": 1.0})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	_, ts := testServer(t, auth.Config{Enabled: true, Token: "secret"})

	// Exempt paths stay public.
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Protected without token.
	resp, err = http.Get(ts.URL + "/api/v1/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// With token.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFlightEndpoint(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"}))

	// Give the tick loop a moment to record samples.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(ts.URL + "/api/v1/sessions/" + created.ID + "/flight")
	require.NoError(t, err)
	flight := decodeJSON[flightResponse](t, resp)
	assert.False(t, flight.Finished)
	assert.Nil(t, flight.Score)
	assert.NotEmpty(t, flight.Samples)
	assert.GreaterOrEqual(t, flight.Statistics.Samples, len(flight.Samples))
	assert.Positive(t, flight.Statistics.InitialFuel)
}

func TestWebSocketStream(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/api/v1/sessions/" + created.ID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "state", frame.Type)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(frame.Data, &snap))
	assert.Contains(t, snap, "altitude")
}

func TestPauseResumeEndpoints(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"}))

	info := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions/"+created.ID+"/pause", nil))
	assert.True(t, info.Paused)

	// A paused session holds its simulated clock.
	got := func() float64 {
		resp, err := http.Get(ts.URL + "/api/v1/sessions/" + created.ID)
		require.NoError(t, err)
		return decodeJSON[sessionInfo](t, resp).State.Time
	}
	before := got()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, got())

	info = decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions/"+created.ID+"/resume", nil))
	assert.False(t, info.Paused)

	require.Eventually(t, func() bool { return got() > before },
		2*time.Second, 5*time.Millisecond)
}

func TestWebSocketControlMessages(t *testing.T) {
	_, ts := testServer(t, auth.Config{})
	created := decodeJSON[sessionInfo](t,
		postJSON(t, ts.URL+"/api/v1/sessions", map[string]any{"mode": "manual"}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/api/v1/sessions/" + created.ID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "pause"}))

	// State frames queued before the ack may arrive first.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame struct {
			Type string `json:"type"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "paused" {
			break
		}
		require.Equal(t, "state", frame.Type)
	}

	info := decodeJSON[sessionInfo](t, func() *http.Response {
		r, err := http.Get(ts.URL + "/api/v1/sessions/" + created.ID)
		require.NoError(t, err)
		return r
	}())
	assert.True(t, info.Paused)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		trustProxy bool
		want       string
	}{
		{name: "socket address", remoteAddr: "192.0.2.7:4321", want: "192.0.2.7"},
		{name: "ipv6 socket address", remoteAddr: "[2001:db8::1]:4321", want: "2001:db8::1"},
		{name: "portless address", remoteAddr: "192.0.2.7", want: "192.0.2.7"},
		{
			name:       "spoofed header ignored without proxy",
			remoteAddr: "192.0.2.7:4321",
			xff:        "203.0.113.9",
			want:       "192.0.2.7",
		},
		{
			name:       "forwarded-for first hop wins",
			remoteAddr: "10.0.0.1:4321",
			xff:        "203.0.113.9, 10.0.0.1",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "10.0.0.1:4321",
			xri:        "203.0.113.9",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "trusted but no headers",
			remoteAddr: "10.0.0.1:4321",
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(r, tt.trustProxy))
		})
	}
}

func TestStreamLimiter(t *testing.T) {
	l := newStreamLimiter(2)
	assert.True(t, l.acquire("1.2.3.4"))
	assert.True(t, l.acquire("1.2.3.4"))
	assert.False(t, l.acquire("1.2.3.4"))
	assert.True(t, l.acquire("5.6.7.8"))

	l.release("1.2.3.4")
	assert.True(t, l.acquire("1.2.3.4"))
	assert.Equal(t, 2, l.count("1.2.3.4"))
}
