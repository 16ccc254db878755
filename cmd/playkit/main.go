// Package main implements the playkit demo player: the reference
// feature set attached to a simulated media element, exposed over HTTP
// for state streaming, request dispatch, health and metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/playkit/features"
	"github.com/c360/playkit/metric"
	"github.com/c360/playkit/selector"
	"github.com/c360/playkit/store"
	"github.com/c360/playkit/target"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "playkit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting playkit demo player",
		"version", Version,
		"build_time", BuildTime,
		"media_duration", cliCfg.MediaDuration,
		"http_port", cliCfg.HTTPPort)

	player, media, registry, err := buildPlayer(cliCfg, logger)
	if err != nil {
		return err
	}

	detach := player.Attach(media)
	defer detach()
	slog.Info("Media attached", "state", player.State())

	return runWithSignalHandling(cliCfg, player, media, registry, logger)
}

// buildPlayer assembles the store, its target and the metrics registry
func buildPlayer(
	cliCfg *CLIConfig,
	logger *slog.Logger,
) (*store.Store[features.Media], *target.MediaElement, *metric.Registry, error) {
	all, err := features.All()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compose features: %w", err)
	}

	registry := metric.NewRegistry()

	opts := []store.Option[features.Media]{
		store.WithLogger[features.Media](logger),
		store.WithMetrics[features.Media](registry),
	}
	if cliCfg.RequestRate > 0 {
		opts = append(opts, store.WithRateLimit[features.Media](
			rate.Limit(cliCfg.RequestRate), cliCfg.RequestBurst))
	}

	player, err := store.New(all, opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create store: %w", err)
	}

	media := target.NewMediaElement(cliCfg.MediaDuration)
	return player, media, registry, nil
}

// runWithSignalHandling runs the simulator and the HTTP server until a
// shutdown signal arrives.
func runWithSignalHandling(
	cliCfg *CLIConfig,
	player *store.Store[features.Media],
	media *target.MediaElement,
	registry *metric.Registry,
	logger *slog.Logger,
) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	group, ctx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		return runSimulator(ctx, media, cliCfg.TickInterval)
	})

	srv := newServer(player, registry, logger)
	group.Go(func() error {
		return srv.serve(ctx, cliCfg.HTTPPort, cliCfg.ShutdownTimeout)
	})

	if cliCfg.AutoPlay {
		if _, err := player.DoWait(ctx, "play", nil); err != nil {
			slog.Warn("Autoplay failed", "error", err)
		}
	}

	logSummarySubscription(ctx, player)

	slog.Info("playkit started", "addr", fmt.Sprintf(":%d", cliCfg.HTTPPort))
	err := group.Wait()
	if err != nil && err != context.Canceled {
		return err
	}

	slog.Info("playkit shutdown complete")
	return nil
}

// playbackSummary is the derived value the demo logs: enough to follow
// playback without a timeupdate flood in the logs.
type playbackSummary struct {
	Paused bool
	Second int
}

// logSummarySubscription logs whole-second position changes, a worked
// example of a selector over the running store.
func logSummarySubscription(ctx context.Context, player *store.Store[features.Media]) {
	stop := selector.Tracked(player, func(r *selector.Reader) playbackSummary {
		return playbackSummary{
			Paused: r.Bool("paused"),
			Second: int(r.Float("currentTime")),
		}
	}, func(v playbackSummary) {
		slog.Debug("playback position", "paused", v.Paused, "second", v.Second)
	})
	context.AfterFunc(ctx, stop)
}
