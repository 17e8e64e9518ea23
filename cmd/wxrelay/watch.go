package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/proxy"
	"github.com/wxrelay/wxrelay/internal/status"
	"github.com/wxrelay/wxrelay/internal/watchdog"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the wx-relay watchdog",
	Long: `Start the watchdog that follows the proxy's heartbeat stream, probes
its /health endpoint on an interval, and relays status snapshots on its own
port. The watchdog runs as a separate process so it keeps reporting when the
proxy is down.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadWatchConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	logger, err := proxy.NewLogger(cfg.Logging)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize logger")
		return err
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	sink := watchdog.NewLogSink(&logger)
	relay := status.NewPublisher(&logger)
	client := watchdog.NewHeartbeatClient(cfg.Watchdog, sink, relay, &logger)
	prober := watchdog.NewProber(cfg.Watchdog, sink, &logger)

	server := proxy.NewServer(cfg.Watchdog.GetListen(), watchdog.SetupRoutes(client, relay, &logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("heartbeat client stopped")
		}
	}()
	go func() {
		defer wg.Done()
		if err := prober.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("prober stopped")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("listen", cfg.Watchdog.GetListen()).
		Str("proxy", cfg.Watchdog.GetProxyURL()).
		Msg("starting wx-relay watchdog")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		return err
	}

	<-done
	wg.Wait()
	log.Info().Msg("watchdog stopped")
	return nil
}

// loadWatchConfig loads the config file, or the built-in defaults when no
// file exists. The watchdog does not require providers, so provider
// validation is skipped here.
func loadWatchConfig() (*config.Config, error) {
	configPath := resolveConfigPath()
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
