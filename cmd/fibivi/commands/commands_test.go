package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fibivi/internal/transform"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/httputil"
	"github.com/wonny/fibivi/pkg/logger"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := out
	out = buf
	t.Cleanup(func() { out = prev })
	return buf
}

func TestPrintStage(t *testing.T) {
	buf := captureOutput(t)

	printStage(transform.StageReading)
	printStage(transform.StageRead)
	printStage(transform.StageFormatted)

	assert.Equal(t,
		"Reading csv...\nCSV read. Formatting data...\nData formatted. Preparing for output...\n",
		buf.String())
}

func TestResolveView(t *testing.T) {
	cfg := config.Default()

	t.Run("default view", func(t *testing.T) {
		view, err := resolveView(cfg, "overall", "")
		require.NoError(t, err)
		assert.Equal(t, "overall_score", view.Column)
		assert.Equal(t, config.ModeDateTime, view.TimestampMode)
	})

	t.Run("mode override", func(t *testing.T) {
		view, err := resolveView(cfg, "overall", config.ModeDate)
		require.NoError(t, err)
		assert.Equal(t, config.ModeDate, view.TimestampMode)
	})

	t.Run("bad mode", func(t *testing.T) {
		_, err := resolveView(cfg, "overall", "weekly")
		assert.Error(t, err)
	})

	t.Run("unknown view", func(t *testing.T) {
		_, err := resolveView(cfg, "rem", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overall")
	})
}

func TestApplyPaletteFlags(t *testing.T) {
	defer func() { paletteHost, palettePort = "", "" }()

	p := config.Default().Palette
	applyPaletteFlags(&p)
	assert.Equal(t, "127.0.0.1:29222", p.Addr())

	paletteHost, palettePort = "0.0.0.0", "4000"
	applyPaletteFlags(&p)
	assert.Equal(t, "0.0.0.0:4000", p.Addr())
}

func TestAPIHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"fibivi-api","palette":"down"}`))
	}))
	defer srv.Close()

	client := httputil.New(config.Default(), logger.Nop()).DisableRetry()

	status, err := apiHealth(context.Background(), client, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "down", status)

	_, err = apiHealth(context.Background(), client, srv.URL+"/missing")
	assert.Error(t, err)
}
