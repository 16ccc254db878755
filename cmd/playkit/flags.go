package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	LogLevel        string
	LogFormat       string
	Debug           bool
	HTTPPort        int
	MediaDuration   float64
	TickInterval    time.Duration
	RequestRate     float64
	RequestBurst    int
	AutoPlay        bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("PLAYKIT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: PLAYKIT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("PLAYKIT_LOG_FORMAT", "json"),
		"Log format: json, text (env: PLAYKIT_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("PLAYKIT_DEBUG", false),
		"Enable debug mode (env: PLAYKIT_DEBUG)")

	flag.IntVar(&cfg.HTTPPort, "http-port",
		getEnvInt("PLAYKIT_HTTP_PORT", 8080),
		"HTTP port for state, health and metrics (env: PLAYKIT_HTTP_PORT)")

	flag.Float64Var(&cfg.MediaDuration, "media-duration",
		getEnvFloat("PLAYKIT_MEDIA_DURATION", 600),
		"Simulated media duration in seconds (env: PLAYKIT_MEDIA_DURATION)")

	flag.DurationVar(&cfg.TickInterval, "tick-interval",
		getEnvDuration("PLAYKIT_TICK_INTERVAL", 250*time.Millisecond),
		"Simulator clock tick (env: PLAYKIT_TICK_INTERVAL)")

	flag.Float64Var(&cfg.RequestRate, "request-rate",
		getEnvFloat("PLAYKIT_REQUEST_RATE", 50),
		"Max request dispatches per second, 0 to disable (env: PLAYKIT_REQUEST_RATE)")

	flag.IntVar(&cfg.RequestBurst, "request-burst",
		getEnvInt("PLAYKIT_REQUEST_BURST", 10),
		"Request rate limiter burst size (env: PLAYKIT_REQUEST_BURST)")

	flag.BoolVar(&cfg.AutoPlay, "autoplay",
		getEnvBool("PLAYKIT_AUTOPLAY", true),
		"Start playback on launch (env: PLAYKIT_AUTOPLAY)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("PLAYKIT_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: PLAYKIT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", cfg.HTTPPort)
	}

	if cfg.MediaDuration <= 0 {
		return fmt.Errorf("media duration must be positive: %v", cfg.MediaDuration)
	}

	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive: %v", cfg.TickInterval)
	}

	if cfg.RequestRate < 0 {
		return fmt.Errorf("request rate must not be negative: %v", cfg.RequestRate)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - reactive media player demo

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run a two-hour media simulation on port 9000
  %s --media-duration=7200 --http-port=9000

  # Run with environment variables
  export PLAYKIT_LOG_LEVEL=debug
  export PLAYKIT_HTTP_PORT=9000
  %s

Endpoints:
  GET  /state     WebSocket state stream; send {"request","input"} to dispatch
  POST /requests  Dispatch a request and wait for it to settle
  GET  /healthz   Per-feature health
  GET  /metrics   Prometheus metrics

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
