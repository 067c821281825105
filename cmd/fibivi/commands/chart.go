package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/internal/transform"
	"github.com/wonny/fibivi/internal/tui"
	"github.com/wonny/fibivi/internal/watch"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

// chartCmd represents the chart command
var chartCmd = &cobra.Command{
	Use:   "chart <path>",
	Short: "Draw a sleep_score.csv as a terminal bar chart",
	Long: `Read a Fitbit sleep_score.csv export and draw one bar per night.

Same-day duplicates keep the last row. The color scale is calibrated to
the column's min/max; the initial window is the lookback period ending at
the first row's date (VIEW_ANCHOR=latest anchors on the newest date).

Example:
  go run ./cmd/fibivi chart sleep_score.csv
  go run ./cmd/fibivi chart sleep_score.csv --view deep_sleep --mode date
  go run ./cmd/fibivi chart sleep_score.csv --random-colors
  go run ./cmd/fibivi chart sleep_score.csv --interactive --follow
  go run ./cmd/fibivi chart sleep_score.csv --json > figure.json`,
	Args: cobra.ExactArgs(1),
	RunE: runChart,
}

var (
	chartView         string
	chartMode         string
	chartRandomColors bool
	chartFollow       bool
	chartInteractive  bool
	chartJSON         bool
	chartWidth        int
	chartAll          bool
)

func init() {
	rootCmd.AddCommand(chartCmd)

	// Flags
	chartCmd.Flags().StringVar(&chartView, "view", "overall", "view name (overall, deep_sleep, or from VIEWS_FILE)")
	chartCmd.Flags().StringVar(&chartMode, "mode", "", "timestamp mode override (date|datetime)")
	chartCmd.Flags().BoolVar(&chartRandomColors, "random-colors", false, "color bars from the palette service")
	chartCmd.Flags().BoolVar(&chartFollow, "follow", false, "redraw when the file changes")
	chartCmd.Flags().BoolVar(&chartInteractive, "interactive", false, "pan through history with the keyboard")
	chartCmd.Flags().BoolVar(&chartJSON, "json", false, "print the figure as JSON instead of drawing it")
	chartCmd.Flags().IntVar(&chartWidth, "width", 50, "bar area width in cells")
	chartCmd.Flags().BoolVar(&chartAll, "all", false, "draw every date, not just the initial window")
}

// chartRun is everything one render needs
type chartRun struct {
	path     string
	view     config.ViewSpec
	pipeline *transform.Pipeline
	resolver *palette.Resolver
	random   bool
}

func runChart(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file not found: %s", path)
		}
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	view, err := resolveView(cfg, chartView, chartMode)
	if err != nil {
		return err
	}

	run := &chartRun{
		path:     path,
		view:     view,
		pipeline: transform.NewFromConfig(cfg, log),
		resolver: newResolver(cfg, nil, log),
		random:   chartRandomColors,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if chartInteractive {
		return run.interactive(ctx, log)
	}

	// progress messages only for the one-shot text chart
	res, sel, err := run.execute(ctx, !chartJSON)
	if err != nil {
		return err
	}
	if err := printChart(res, sel); err != nil {
		return err
	}

	if !chartFollow {
		return nil
	}

	w := watch.New(path, func(ctx context.Context) {
		res, sel, err := run.execute(ctx, false)
		if err != nil {
			PrintError(err.Error())
			return
		}
		PrintSeparator()
		if err := printChart(res, sel); err != nil {
			PrintError(err.Error())
		}
	}, log)
	return w.Run(ctx)
}

// execute runs the pipeline on the file and resolves colors
func (r *chartRun) execute(ctx context.Context, progress bool) (*transform.Result, palette.Selection, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, palette.Selection{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	p := r.pipeline
	if progress {
		p = p.WithProgress(printStage)
	}

	res, err := p.RunTable(f, r.view)
	if err != nil {
		return nil, palette.Selection{}, err
	}

	sel := r.resolver.Resolve(ctx, res.Dataset.Len(), r.random)
	return res, sel, nil
}

func (r *chartRun) interactive(ctx context.Context, log *logger.Logger) error {
	res, sel, err := r.execute(ctx, false)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(res, sel), tea.WithAltScreen(), tea.WithContext(ctx))

	if chartFollow {
		w := watch.New(r.path, func(ctx context.Context) {
			res, sel, err := r.execute(ctx, false)
			if err != nil {
				p.Send(tui.ReloadErrorMsg{Err: err})
				return
			}
			p.Send(tui.ResultMsg{Result: res, Selection: sel})
		}, log)

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := w.Run(watchCtx); err != nil {
				p.Send(tui.ReloadErrorMsg{Err: err})
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive chart: %w", err)
	}
	return nil
}

func printStage(s transform.Stage) {
	switch s {
	case transform.StageReading:
		PrintStep("Reading csv...")
	case transform.StageRead:
		PrintStep("CSV read. Formatting data...")
	case transform.StageFormatted:
		PrintStep("Data formatted. Preparing for output...")
	}
}

func printChart(res *transform.Result, sel palette.Selection) error {
	if chartJSON {
		fig, err := render.BuildFigure(res, sel)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(fig)
	}

	opts := render.TerminalOptions{Width: chartWidth}
	if !chartAll {
		window := res.Calibration.Window
		opts.Window = &window
	}

	text, err := render.TerminalChart(res, sel, opts)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)

	if chartRandomColors && !sel.Randomized {
		PrintWarning("Random colors unavailable, using " + render.DefaultScale + ": " + sel.Reason)
	}
	return nil
}

// resolveView finds the named view and applies a --mode override
func resolveView(cfg *config.Config, name, mode string) (config.ViewSpec, error) {
	views, err := config.LoadViews(cfg.View.ViewsFile)
	if err != nil {
		return config.ViewSpec{}, err
	}

	view, ok := config.FindView(views, name)
	if !ok {
		names := make([]string, 0, len(views))
		for _, v := range views {
			names = append(names, v.Name)
		}
		return config.ViewSpec{}, fmt.Errorf("unknown view %q (available: %v)", name, names)
	}

	if mode != "" {
		switch mode {
		case config.ModeDate, config.ModeDateTime:
			view.TimestampMode = mode
		default:
			return config.ViewSpec{}, fmt.Errorf("--mode must be one of: date, datetime")
		}
	}
	return view, nil
}

// newResolver wires the palette client behind a breaker
func newResolver(cfg *config.Config, health *palette.Health, log *logger.Logger) *palette.Resolver {
	client := palette.NewClient(cfg.Palette)
	breaker := palette.NewBreaker(palette.DefaultBreakerConfig(), log)
	return palette.NewResolver(client, breaker, health, log).WithMaxCount(cfg.Palette.MaxCount)
}
