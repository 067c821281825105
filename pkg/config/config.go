package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Palette service (TCP)
	Palette PaletteConfig

	// HTTP API
	API APIConfig

	// Sleep views
	View ViewConfig

	// Redis
	Redis RedisConfig

	// Palette availability probe
	Probe ProbeConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// PaletteConfig holds palette server/client configuration
type PaletteConfig struct {
	Host           string
	Port           string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration // 서버: count 수신 대기 한도
	MaxCount       int
	ReadBufferSize int
	AcceptRate     float64 // connections per second
	AcceptBurst    int
	MaxConns       int // concurrent connections, 0 = unbounded
}

// Addr returns host:port
func (p PaletteConfig) Addr() string {
	return fmt.Sprintf("%s:%s", p.Host, p.Port)
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	Port              string
	MaxUploadBytes    int64
	AllowedOrigins    []string
	PaletteRateLimit  int           // requests per window per client, 0 = unlimited
	PaletteRateWindow time.Duration // sliding window for PaletteRateLimit
}

// ViewConfig holds rendering defaults shared by every view
type ViewConfig struct {
	LookbackDays int
	Anchor       string // first, latest
	ViewsFile    string // optional YAML
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProbeConfig holds the palette probe schedule
type ProbeConfig struct {
	Schedule string
	Enabled  bool
}

// Window anchor modes
const (
	AnchorFirst  = "first"
	AnchorLatest = "latest"
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile("")
	return fromEnv()
}

// LoadFile is Load with an explicit .env path (the --config flag).
func LoadFile(path string) (*Config, error) {
	loadEnvFile(path)
	return fromEnv()
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Env: "development",
		Palette: PaletteConfig{
			Host:           "127.0.0.1",
			Port:           "29222",
			DialTimeout:    3 * time.Second,
			ReadTimeout:    5 * time.Second,
			IdleTimeout:    10 * time.Second,
			MaxCount:       1024,
			ReadBufferSize: 64 * 1024,
			AcceptRate:     200,
			AcceptBurst:    50,
			MaxConns:       512,
		},
		API: APIConfig{
			Port:              "8050",
			MaxUploadBytes:    10 << 20,
			AllowedOrigins:    []string{"*"},
			PaletteRateLimit:  30,
			PaletteRateWindow: time.Minute,
		},
		View: ViewConfig{
			LookbackDays: 120,
			Anchor:       AnchorFirst,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Probe: ProbeConfig{
			Schedule: "*/30 * * * * *",
			Enabled:  true,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

func fromEnv() (*Config, error) {
	def := Default()

	cfg := &Config{
		Env: getEnv("ENV", def.Env),

		Palette: PaletteConfig{
			Host:           getEnv("PALETTE_HOST", def.Palette.Host),
			Port:           getEnv("PALETTE_PORT", def.Palette.Port),
			DialTimeout:    getEnvAsDuration("PALETTE_DIAL_TIMEOUT", "3s"),
			ReadTimeout:    getEnvAsDuration("PALETTE_READ_TIMEOUT", "5s"),
			IdleTimeout:    getEnvAsDuration("PALETTE_IDLE_TIMEOUT", "10s"),
			MaxCount:       getEnvAsInt("PALETTE_MAX_COUNT", def.Palette.MaxCount),
			ReadBufferSize: getEnvAsInt("PALETTE_READ_BUFFER", def.Palette.ReadBufferSize),
			AcceptRate:     getEnvAsFloat("PALETTE_ACCEPT_RATE", def.Palette.AcceptRate),
			AcceptBurst:    getEnvAsInt("PALETTE_ACCEPT_BURST", def.Palette.AcceptBurst),
			MaxConns:       getEnvAsInt("PALETTE_MAX_CONNS", def.Palette.MaxConns),
		},

		API: APIConfig{
			Port:           getEnv("API_PORT", def.API.Port),
			MaxUploadBytes: int64(getEnvAsInt("API_MAX_UPLOAD_BYTES", int(def.API.MaxUploadBytes))),
			AllowedOrigins: getEnvAsList("API_ALLOWED_ORIGINS", def.API.AllowedOrigins),

			PaletteRateLimit:  getEnvAsInt("API_PALETTE_RATE_LIMIT", def.API.PaletteRateLimit),
			PaletteRateWindow: getEnvAsDuration("API_PALETTE_RATE_WINDOW", "1m"),
		},

		View: ViewConfig{
			LookbackDays: getEnvAsInt("VIEW_LOOKBACK_DAYS", def.View.LookbackDays),
			Anchor:       strings.ToLower(getEnv("VIEW_ANCHOR", def.View.Anchor)),
			ViewsFile:    getEnv("VIEWS_FILE", ""),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", def.Redis.Host),
			Port:     getEnv("REDIS_PORT", def.Redis.Port),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Probe: ProbeConfig{
			Schedule: getEnv("PROBE_SCHEDULE", def.Probe.Schedule),
			Enabled:  getEnvAsBool("PROBE_ENABLED", def.Probe.Enabled),
		},

		LogLevel:  getEnv("LOG_LEVEL", def.LogLevel),
		LogFormat: getEnv("LOG_FORMAT", def.LogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := strconv.ParseUint(c.Palette.Port, 10, 16); err != nil {
		return fmt.Errorf("PALETTE_PORT must be a valid TCP port: %q", c.Palette.Port)
	}

	if c.Palette.MaxCount <= 0 {
		return fmt.Errorf("PALETTE_MAX_COUNT must be > 0")
	}

	if c.Palette.MaxConns < 0 {
		return fmt.Errorf("PALETTE_MAX_CONNS must be >= 0")
	}

	if c.Palette.ReadBufferSize <= 0 {
		return fmt.Errorf("PALETTE_READ_BUFFER must be > 0")
	}

	if c.API.PaletteRateLimit < 0 {
		return fmt.Errorf("API_PALETTE_RATE_LIMIT must be >= 0")
	}

	if c.View.LookbackDays <= 0 {
		return fmt.Errorf("VIEW_LOOKBACK_DAYS must be > 0")
	}

	if c.View.Anchor != AnchorFirst && c.View.Anchor != AnchorLatest {
		return fmt.Errorf("VIEW_ANCHOR must be one of: first, latest")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile(explicit string) {
	if explicit != "" {
		_ = godotenv.Load(explicit)
		return
	}

	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
