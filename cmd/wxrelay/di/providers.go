package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/wxrelay/wxrelay/internal/cache"
	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/health"
	"github.com/wxrelay/wxrelay/internal/proxy"
	"github.com/wxrelay/wxrelay/internal/router"
	"github.com/wxrelay/wxrelay/internal/status"
	"github.com/wxrelay/wxrelay/internal/upstream"
)

// Service wrapper types for DI registration.

// ConfigService wraps the loaded configuration.
type ConfigService struct {
	Config *config.Config
}

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// RuntimeService wraps the hot-reloadable config view.
type RuntimeService struct {
	Runtime *config.Runtime
}

// TrackerService wraps the health tracker for DI.
type TrackerService struct {
	Tracker *health.Tracker
}

// CacheService wraps the response cache.
type CacheService struct {
	Cache cache.Cache
}

// PublisherService wraps the status publisher.
type PublisherService struct {
	Publisher *status.Publisher
}

// OrchestratorService wraps the failover orchestrator and its provider list.
type OrchestratorService struct {
	Orchestrator *router.Orchestrator
	Providers    []router.ProviderInfo
}

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *proxy.Server
}

// RegisterSingletons registers all service providers as singletons, in
// dependency order: config, logger, tracker, cache, publisher, orchestrator,
// handler, server.
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewRuntime)
	do.Provide(i, NewLogger)
	do.Provide(i, NewTracker)
	do.Provide(i, NewCache)
	do.Provide(i, NewPublisher)
	do.Provide(i, NewOrchestrator)
	do.Provide(i, NewProxyHandler)
	do.Provide(i, NewHTTPServer)
}

// NewConfig loads the configuration from the config path, falling back to
// the built-in defaults when the path is empty.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ConfigService{Config: cfg}, nil
}

// NewRuntime creates the reload-aware config view seeded with the loaded
// configuration. The config watcher swaps new configs in through it.
func NewRuntime(i do.Injector) (*RuntimeService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	return &RuntimeService{Runtime: config.NewRuntime(cfgSvc.Config)}, nil
}

// NewLogger creates the zerolog logger from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := proxy.NewLogger(cfgSvc.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &LoggerService{Logger: &logger}, nil
}

// NewTracker creates the per-provider circuit breaker tracker.
func NewTracker(i do.Injector) (*TrackerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	tracker := health.NewTracker(cfgSvc.Config.Health.Breaker, loggerSvc.Logger)
	return &TrackerService{Tracker: tracker}, nil
}

// NewCache creates the response cache.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	c, err := cache.New(cfgSvc.Config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CacheService{Cache: c}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (c *CacheService) Shutdown() error {
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}

// NewPublisher creates the status publisher.
func NewPublisher(i do.Injector) (*PublisherService, error) {
	loggerSvc := do.MustInvoke[*LoggerService](i)
	return &PublisherService{Publisher: status.NewPublisher(loggerSvc.Logger)}, nil
}

// NewOrchestrator creates the failover orchestrator. Every recorded attempt
// republishes the status snapshot.
func NewOrchestrator(i do.Injector) (*OrchestratorService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	trackerSvc := do.MustInvoke[*TrackerService](i)
	publisherSvc := do.MustInvoke[*PublisherService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Config
	providers := router.BuildProviders(cfg, trackerSvc.Tracker.IsAvailableFunc)
	client := upstream.NewClient(cfg.Server.GetFetchTimeout())

	tracker := trackerSvc.Tracker
	publisher := publisherSvc.Publisher
	onAttempt := func() {
		publisher.Publish(router.StatusSnapshot(providers, tracker))
	}

	orch := router.NewOrchestrator(providers, client, tracker, onAttempt, loggerSvc.Logger)
	return &OrchestratorService{Orchestrator: orch, Providers: providers}, nil
}

// NewProxyHandler creates the HTTP handler with all middleware.
func NewProxyHandler(i do.Injector) (*HandlerService, error) {
	orchSvc := do.MustInvoke[*OrchestratorService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	runtimeSvc := do.MustInvoke[*RuntimeService](i)
	publisherSvc := do.MustInvoke[*PublisherService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	dataHandler := proxy.NewDataHandler(
		orchSvc.Orchestrator,
		cacheSvc.Cache,
		runtimeSvc.Runtime,
	)

	handler := proxy.SetupRoutes(dataHandler, publisherSvc.Publisher, loggerSvc.Logger)
	return &HandlerService{Handler: handler}, nil
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	server := proxy.NewServer(cfgSvc.Config.Server.GetListen(), handlerSvc.Handler)
	return &ServerService{Server: server}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
