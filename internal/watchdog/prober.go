package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/config"
)

// Prober polls the proxy's /health endpoint on a fixed interval and raises a
// sink alert on every failed probe. It complements the heartbeat stream: the
// stream notices push silence, the prober notices a proxy that accepts
// connections but cannot answer.
type Prober struct {
	http      *resty.Client
	sink      Sink
	logger    *zerolog.Logger
	healthURL string
	interval  time.Duration
}

// NewProber creates a Prober from the watchdog config.
func NewProber(cfg config.WatchdogConfig, sink Sink, logger *zerolog.Logger) *Prober {
	return &Prober{
		http:      resty.New().SetTimeout(cfg.GetHTTPTimeout()),
		healthURL: cfg.HealthURL(),
		interval:  cfg.GetHealthCheckInterval(),
		sink:      sink,
		logger:    logger,
	}
}

// Run probes until ctx is canceled. The first probe fires after one full
// interval.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	resp, err := p.http.R().SetContext(ctx).Get(p.healthURL)

	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		p.alert(ctx, fmt.Errorf("%w: %w", ErrHealthCheckFailed, err))
	case resp.StatusCode() >= 400:
		p.alert(ctx, fmt.Errorf("%w: status %d", ErrHealthCheckFailed, resp.StatusCode()))
	default:
		if p.logger != nil {
			p.logger.Debug().Str("url", p.healthURL).Msg("health probe ok")
		}
	}
}

func (p *Prober) alert(ctx context.Context, err error) {
	if p.logger != nil {
		p.logger.Warn().Err(err).Str("url", p.healthURL).Msg("health probe failed")
	}
	if p.sink != nil {
		p.sink.Notify(ctx, Event{
			Kind:    EventHealthCheckFailed,
			Message: "proxy health check failed",
			Err:     err,
		})
	}
}
