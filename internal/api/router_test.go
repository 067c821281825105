package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fibivi/internal/api/handlers"
	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/ingest"
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/internal/scheduler"
	"github.com/wonny/fibivi/internal/scheduler/jobs"
	"github.com/wonny/fibivi/internal/transform"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

type stubSource struct {
	err error
}

func (s stubSource) RequestPalette(_ context.Context, count int) (contracts.Palette, error) {
	if s.err != nil {
		return nil, s.err
	}
	return palette.NewSeededGenerator(3, 4).Palette(count), nil
}

type testEnv struct {
	server    *httptest.Server
	health    *palette.Health
	scheduler *scheduler.Scheduler
}

func newTestEnv(t *testing.T, source palette.Source) *testEnv {
	t.Helper()

	cfg := config.Default()
	log := logger.Nop()
	health := palette.NewHealth()
	resolver := palette.NewResolver(source, nil, health, log)

	views := handlers.NewViewHandler(
		transform.NewFromConfig(cfg, log),
		config.DefaultViews(),
		resolver,
		cfg.API.MaxUploadBytes,
		log,
	)

	sched := scheduler.New(log).WithRetry(0, 0)
	require.NoError(t, sched.AddJob(jobs.NewPaletteProbeJob(source, health, "@every 1h", log)))
	t.Cleanup(sched.Stop)

	router := NewRouter(Handlers{
		Health:  handlers.NewHealthHandler(health, sched),
		Views:   views,
		Palette: handlers.NewPaletteHandler(resolver, nil, cfg, log),
		Stream:  handlers.NewStreamHandler(views, cfg.API.AllowedOrigins, cfg.API.MaxUploadBytes, log),
		Jobs:    handlers.NewJobsHandler(sched, log),
	}, cfg.API, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, health: health, scheduler: sched}
}

func fixtureEnvelope(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../ingest/testdata/sleep_score.csv")
	require.NoError(t, err)
	return string(ingest.EncodeEnvelope(ingest.DefaultEnvelopeMeta, data))
}

func postView(t *testing.T, env *testEnv, view string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(env.server.URL+"/api/views/"+view, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	get := func() map[string]interface{} {
		resp, err := http.Get(env.server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	body := get()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, handlers.ServiceName, body["service"])
	assert.Equal(t, "unknown", body["palette"])

	env.health.Record(nil)
	assert.Equal(t, "up", get()["palette"])
}

func TestHealth_ReportsProbeRecord(t *testing.T) {
	env := newTestEnv(t, stubSource{err: contracts.ErrServiceUnavailable})

	_, err := env.scheduler.RunJobSync("palette_probe")
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Palette string                        `json:"palette"`
		Jobs    map[string]scheduler.JobStats `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "down", body.Palette)
	probe, ok := body.Jobs["palette_probe"]
	require.True(t, ok)
	assert.Equal(t, 1, probe.TotalRuns)
	assert.Equal(t, 0.0, probe.SuccessRate)
	assert.NotNil(t, probe.LastFailure)
	assert.Contains(t, probe.LastError, contracts.ErrServiceUnavailable.Error())
}

func TestJobsEndpoints(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	resp, err := http.Post(env.server.URL+"/api/jobs/palette_probe/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(env.server.URL + "/api/jobs/palette_probe/history")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var h scheduler.JobHistory
		return json.NewDecoder(resp.Body).Decode(&h) == nil && len(h.Results) == 1 && h.Results[0].Success
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, palette.StatusUp, env.health.Status())

	resp, err = http.Get(env.server.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list struct {
		Jobs  []scheduler.JobStats `json:"jobs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "palette_probe", list.Jobs[0].JobName)
	assert.Equal(t, 1.0, list.Jobs[0].SuccessRate)

	resp, err = http.Get(env.server.URL + "/api/jobs/nope/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(env.server.URL+"/api/jobs/nope/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderView(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	resp := postView(t, env, "overall", handlers.ViewRequest{Contents: fixtureEnvelope(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fig render.Figure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fig))
	assert.Equal(t, "overall", fig.View)
	assert.Len(t, fig.Bars, 4)
	assert.Equal(t, "2024-02-02", fig.XRange.Start.String())
	assert.Equal(t, "2024-06-01", fig.XRange.End.String())
	assert.False(t, fig.RandomColors)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRenderView_RandomColors(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	resp := postView(t, env, "deep_sleep", handlers.ViewRequest{Contents: fixtureEnvelope(t), RandomColors: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fig render.Figure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fig))
	assert.True(t, fig.RandomColors)
	assert.Equal(t, "up", string(env.health.Status()))
}

func TestRenderView_PaletteDownFallsBack(t *testing.T) {
	env := newTestEnv(t, stubSource{err: contracts.ErrServiceUnavailable})

	resp := postView(t, env, "overall", handlers.ViewRequest{Contents: fixtureEnvelope(t), RandomColors: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fig render.Figure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fig))
	assert.False(t, fig.RandomColors)
	assert.Contains(t, fig.PaletteNote, "service unavailable")
	assert.Equal(t, "#D91E1E", string(fig.Bars[1].Color))
}

func TestRenderView_Errors(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	tests := []struct {
		name   string
		view   string
		body   interface{}
		status int
	}{
		{"no contents", "overall", handlers.ViewRequest{}, http.StatusNoContent},
		{"unknown view", "heart", handlers.ViewRequest{Contents: "x,YQ=="}, http.StatusNotFound},
		{"malformed envelope", "overall", handlers.ViewRequest{Contents: "no separator"}, http.StatusUnprocessableEntity},
		{"malformed table", "overall", handlers.ViewRequest{Contents: string(ingest.EncodeEnvelope("", []byte("a,b\n1,2\n")))}, http.StatusUnprocessableEntity},
		{"bad body", "overall", "just a string", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postView(t, env, tt.view, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestListViews(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	resp, err := http.Get(env.server.URL + "/api/views")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Views []config.ViewSpec `json:"views"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Views, 2)
	assert.Equal(t, "overall", body.Views[0].Name)
}

func TestPaletteEndpoint(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	tests := []struct {
		query      string
		status     int
		wantColors int
	}{
		{"", http.StatusOK, handlers.DefaultPaletteCount},
		{"?count=3", http.StatusOK, 3},
		{"?count=0", http.StatusOK, 0},
		{"?count=-1", http.StatusBadRequest, 0},
		{"?count=abc", http.StatusBadRequest, 0},
		{"?count=5000", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(env.server.URL + "/api/palette" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)

			if tt.status != http.StatusOK {
				return
			}
			var body handlers.PaletteResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.True(t, body.Randomized)
			assert.Len(t, body.Colors, tt.wantColors)
		})
	}
}

func TestPaletteEndpoint_Unavailable(t *testing.T) {
	env := newTestEnv(t, stubSource{err: contracts.ErrServiceTimeout})

	resp, err := http.Get(env.server.URL + "/api/palette?count=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body handlers.PaletteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Randomized)
	assert.Empty(t, body.Colors)
	assert.NotEmpty(t, body.Reason)
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestStream(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/sleep"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	req := handlers.StreamRequest{View: "overall", ViewRequest: handlers.ViewRequest{Contents: fixtureEnvelope(t)}}
	require.NoError(t, conn.WriteJSON(req))

	var reply handlers.StreamReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "overall", reply.View)
	require.NotNil(t, reply.Figure)
	assert.Len(t, reply.Figure.Bars, 4)
	assert.Empty(t, reply.Error)

	bad := handlers.StreamRequest{View: "overall", ViewRequest: handlers.ViewRequest{Contents: "broken"}}
	require.NoError(t, conn.WriteJSON(bad))

	var failed handlers.StreamReply
	require.NoError(t, conn.ReadJSON(&failed))
	assert.Nil(t, failed.Figure)
	assert.Contains(t, failed.Error, "malformed envelope")
}
