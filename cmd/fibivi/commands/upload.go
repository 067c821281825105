package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fibivi/internal/api/handlers"
	"github.com/wonny/fibivi/internal/ingest"
	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/pkg/httputil"
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a CSV export to a running API server",
	Long: `Upload a CSV export the way the browser page does and print the figure.

Example:
  go run ./cmd/fibivi upload sleep_score.csv
  go run ./cmd/fibivi upload sleep_score.csv --view heart --random-colors
  go run ./cmd/fibivi upload sleep_score.csv --out figure.json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var (
	uploadAPI     string
	uploadView    string
	uploadRandom  bool
	uploadOut     string
	uploadRetries int
)

func init() {
	rootCmd.AddCommand(uploadCmd)

	// Flags
	uploadCmd.Flags().StringVar(&uploadAPI, "api", "http://localhost:8050", "API base URL")
	uploadCmd.Flags().StringVar(&uploadView, "view", "overall", "View name")
	uploadCmd.Flags().BoolVar(&uploadRandom, "random-colors", false, "Ask for random bar colors")
	uploadCmd.Flags().StringVar(&uploadOut, "out", "", "Write the figure JSON to this file")
	uploadCmd.Flags().IntVar(&uploadRetries, "retries", 2, "Retries on 5xx/429 (0 disables)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	client := httputil.NewWithTimeout(cfg, log, 30*time.Second)
	if uploadRetries > 0 {
		client = client.WithRetry(uploadRetries, 500*time.Millisecond)
	} else {
		client = client.DisableRetry()
	}
	base := strings.TrimRight(uploadAPI, "/")

	// 서버 상태 확인: 팔레트가 down이면 랜덤 색상은 기본 스케일로 대체됨
	status, err := apiHealth(cmd.Context(), client, base)
	if err != nil {
		return err
	}
	if uploadRandom && status != "up" {
		PrintWarning(fmt.Sprintf("Palette service is %s; random colors may fall back to the default scale", status))
	}

	PrintStep(fmt.Sprintf("Uploading %s to %s (view: %s)", args[0], base, uploadView))

	resp, err := client.PostJSON(cmd.Context(), base+"/api/views/"+uploadView, handlers.ViewRequest{
		Contents:     string(ingest.EncodeEnvelope(ingest.DefaultEnvelopeMeta, data)),
		RandomColors: uploadRandom,
	})
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		resp.Body.Close()
		PrintWarning("Server returned no figure")
		return nil
	default:
		var body struct {
			Error string `json:"error"`
		}
		if err := httputil.DecodeJSON(resp, &body); err != nil || body.Error == "" {
			return fmt.Errorf("upload failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("upload failed: HTTP %d: %s", resp.StatusCode, body.Error)
	}

	var fig render.Figure
	if err := httputil.DecodeJSON(resp, &fig); err != nil {
		return err
	}

	if uploadOut != "" {
		out, err := json.MarshalIndent(fig, "", "  ")
		if err != nil {
			return fmt.Errorf("encode figure: %w", err)
		}
		if err := os.WriteFile(uploadOut, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", uploadOut, err)
		}
		PrintSuccess(fmt.Sprintf("Figure written to %s", uploadOut))
		return nil
	}

	printFigureSummary(&fig)
	return nil
}

// apiHealth returns the palette status the API reports
func apiHealth(ctx context.Context, client *httputil.Client, base string) (string, error) {
	resp, err := client.Get(ctx, base+"/health")
	if err != nil {
		return "", fmt.Errorf("API not reachable at %s: %w", base, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", fmt.Errorf("API health check failed: HTTP %d", resp.StatusCode)
	}

	var body struct {
		Palette string `json:"palette"`
	}
	if err := httputil.DecodeJSON(resp, &body); err != nil {
		return "", err
	}
	return body.Palette, nil
}

func printFigureSummary(fig *render.Figure) {
	missing := 0
	for _, b := range fig.Bars {
		if b.Value == nil {
			missing++
		}
	}

	PrintSuccess(fig.Title)
	PrintKeyValue("Column", fig.Column, 14)
	PrintKeyValue("Bars", fmt.Sprintf("%d (%d missing)", len(fig.Bars), missing), 14)
	PrintKeyValue("Window", fmt.Sprintf("%s → %s", fig.XRange.Start, fig.XRange.End), 14)
	PrintKeyValue("Color range", fmt.Sprintf("%.1f - %.1f", fig.ColorRange.Min, fig.ColorRange.Max), 14)
	if fig.RandomColors {
		PrintKeyValue("Colors", "random", 14)
	} else {
		PrintKeyValue("Colors", fig.ColorScale, 14)
	}
	if fig.PaletteNote != "" {
		PrintInfo(fig.PaletteNote)
	}
}
