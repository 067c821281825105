package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/pkg/config"
)

// paletteCmd represents the palette command
var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Palette service (TCP)",
	Long: `Run or query the random color palette service.

Subcommands:
  serve    - start the palette server
  request  - ask a running server for colors

Example:
  go run ./cmd/fibivi palette serve
  go run ./cmd/fibivi palette request --count 5`,
}

var (
	paletteServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the palette server",
		Long: `Listen on PALETTE_HOST:PALETTE_PORT (default 127.0.0.1:29222) and answer
each connection with the requested number of random #RRGGBB colors.

The server stops on Ctrl+C after in-flight connections finish.`,
		RunE: runPaletteServe,
	}

	paletteRequestCmd = &cobra.Command{
		Use:   "request",
		Short: "Request colors from a running palette server",
		RunE:  runPaletteRequest,
	}
)

var (
	paletteHost  string
	palettePort  string
	paletteCount int
)

func init() {
	rootCmd.AddCommand(paletteCmd)
	paletteCmd.AddCommand(paletteServeCmd)
	paletteCmd.AddCommand(paletteRequestCmd)

	// Flags
	paletteCmd.PersistentFlags().StringVar(&paletteHost, "host", "", "palette host (overrides PALETTE_HOST)")
	paletteCmd.PersistentFlags().StringVar(&palettePort, "port", "", "palette port (overrides PALETTE_PORT)")
	paletteRequestCmd.Flags().IntVar(&paletteCount, "count", 5, "number of colors")
}

func runPaletteServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPaletteFlags(&cfg.Palette)
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	PrintHeader("FiBiVi Palette Server")
	PrintKeyValue("Address", cfg.Palette.Addr(), 9)
	PrintKeyValue("Max count", fmt.Sprintf("%d", cfg.Palette.MaxCount), 9)
	PrintSeparator()
	PrintInfo("Press Ctrl+C to stop")

	server := palette.NewServer(cfg.Palette, log)
	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}

	PrintSuccess("Palette server stopped")
	return nil
}

func runPaletteRequest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPaletteFlags(&cfg.Palette)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Palette.DialTimeout+cfg.Palette.ReadTimeout+time.Second)
	defer cancel()

	PrintStep("Requesting colors...")
	colors, err := palette.NewClient(cfg.Palette).RequestPalette(ctx, paletteCount)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintStep("Got colors")
	PrintList(colors.Strings())
	return nil
}

// applyPaletteFlags overrides the address from --host/--port
func applyPaletteFlags(p *config.PaletteConfig) {
	if paletteHost != "" {
		p.Host = paletteHost
	}
	if palettePort != "" {
		p.Port = palettePort
	}
}
