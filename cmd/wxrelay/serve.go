package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wxrelay/wxrelay/cmd/wxrelay/di"
	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wx-relay proxy server",
	Long: `Start the proxy that serves weather data from the highest-priority
available provider, failing over when circuits open.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath := resolveConfigPath()

	container := di.NewContainer(configPath)
	defer func() {
		if err := container.Shutdown(); err != nil {
			log.Error().Err(err).Msg("container shutdown error")
		}
	}()

	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to initialize")
		return err
	}
	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to build server")
		return err
	}

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	orchSvc := di.MustInvoke[*di.OrchestratorService](container)
	publisherSvc := di.MustInvoke[*di.PublisherService](container)
	trackerSvc := di.MustInvoke[*di.TrackerService](container)

	// Seed the snapshot so /health and new stream subscribers have state
	// before the first request.
	publisherSvc.Publisher.Publish(router.StatusSnapshot(orchSvc.Providers, trackerSvc.Tracker))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		runtimeSvc := di.MustInvoke[*di.RuntimeService](container)
		go watchConfig(ctx, configPath, runtimeSvc.Runtime)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := serverSvc.Server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("listen", cfgSvc.Config.Server.GetListen()).
		Int("providers", len(orchSvc.Providers)).
		Msg("starting wx-relay proxy")

	if err := serverSvc.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		return err
	}

	<-done
	log.Info().Msg("server stopped")
	return nil
}

// watchConfig hot-reloads safely-reloadable tunables on file change.
// Providers and listen addresses stay fixed for the process lifetime; the
// log level is applied live and the rest lands in the runtime view.
func watchConfig(ctx context.Context, configPath string, runtime *config.Runtime) {
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config watcher disabled")
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Debug().Err(err).Msg("config watcher close")
		}
	}()

	watcher.OnReload(func(cfg *config.Config) error {
		runtime.Store(cfg)
		level := cfg.Logging.ParseLevel()
		zerolog.SetGlobalLevel(level)
		log.Info().Str("level", level.String()).Msg("config reloaded")
		return nil
	})

	if err := watcher.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("config watcher stopped")
	}
}
