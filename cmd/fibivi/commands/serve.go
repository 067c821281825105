package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fibivi/internal/api"
	"github.com/wonny/fibivi/internal/api/handlers"
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/scheduler"
	"github.com/wonny/fibivi/internal/scheduler/jobs"
	"github.com/wonny/fibivi/internal/transform"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API the browser page talks to.

이 명령어는:
- HTTP API 서버 시작
- 팔레트 서비스 상태 주기 점검 (PROBE_SCHEDULE)
- Redis 활성화 시 /api/palette 레이트 리밋

Endpoints:
  GET  /health               - Health check (palette up/down/unknown, job stats)
  GET  /api/views            - Configured views
  POST /api/views/{view}     - Upload → figure JSON
  GET  /api/palette?count=N  - Random colors
  GET  /api/jobs             - Scheduled job stats
  GET  /api/jobs/{job}/history
  POST /api/jobs/{job}/run   - Run a job now
  GET  /ws/sleep             - WebSocket upload → figure

Example:
  go run ./cmd/fibivi serve
  go run ./cmd/fibivi serve --port 9000`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (overrides API_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	PrintHeader("FiBiVi API Server")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if servePort != "" {
		cfg.API.Port = servePort
	}

	// 2. Initialize logger
	log := newLogger(cfg)

	log.WithFields(map[string]interface{}{
		"port":    cfg.API.Port,
		"env":     cfg.Env,
		"palette": cfg.Palette.Addr(),
	}).Info("Initializing API server")

	// 3. Views
	views, err := config.LoadViews(cfg.View.ViewsFile)
	if err != nil {
		return fmt.Errorf("load views: %w", err)
	}

	// 4. Redis (optional)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	var limiter *redis.RateLimiter
	if redisClient.Enabled() {
		limiter = redis.NewRateLimiter(redisClient, "fibivi")
		log.Info("Connected to Redis, palette rate limit enabled")
	}

	// 5. Palette client, health and resolver
	health := palette.NewHealth()
	resolver := newResolver(cfg, health, log)

	// 6. Scheduler
	sched := scheduler.New(log).WithRetry(0, 0)
	if cfg.Probe.Enabled {
		probe := jobs.NewPaletteProbeJob(palette.NewClient(cfg.Palette), health, cfg.Probe.Schedule, log)
		if err := sched.AddJob(probe); err != nil {
			return fmt.Errorf("schedule palette probe: %w", err)
		}

		// 시작 시 한 번 즉시 점검
		_ = sched.RunJob(probe.Name())
	}
	sched.Start()
	defer sched.Stop()

	// 7. Handlers
	viewHandler := handlers.NewViewHandler(
		transform.NewFromConfig(cfg, log),
		views,
		resolver,
		cfg.API.MaxUploadBytes,
		log,
	)

	router := api.NewRouter(api.Handlers{
		Health:  handlers.NewHealthHandler(health, sched),
		Views:   viewHandler,
		Palette: handlers.NewPaletteHandler(resolver, limiter, cfg, log),
		Stream:  handlers.NewStreamHandler(viewHandler, cfg.API.AllowedOrigins, cfg.API.MaxUploadBytes, log),
		Jobs:    handlers.NewJobsHandler(sched, log),
	}, cfg.API, log)

	// 8. Create server
	server := api.New(cfg, log, router)

	// 9. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	PrintSuccess(fmt.Sprintf("Server running on http://localhost:%s", cfg.API.Port))
	PrintList([]string{
		"GET  /health",
		"GET  /api/views",
		"POST /api/views/{view}",
		"GET  /api/palette?count=N",
		"GET  /api/jobs",
		"GET  /api/jobs/{job}/history",
		"POST /api/jobs/{job}/run",
		"GET  /ws/sleep",
	})
	PrintInfo("Press Ctrl+C to stop")

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
