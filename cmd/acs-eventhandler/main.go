package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Enriquefft/acs-eventhandler/internal/calling"
	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	"github.com/Enriquefft/acs-eventhandler/internal/config"
	"github.com/Enriquefft/acs-eventhandler/internal/delivery"
	"github.com/Enriquefft/acs-eventhandler/internal/delivery/webhook"
	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/gateway"
	"github.com/Enriquefft/acs-eventhandler/internal/handler"
	"github.com/Enriquefft/acs-eventhandler/internal/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/logging"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
	"github.com/Enriquefft/acs-eventhandler/internal/security"
	"github.com/Enriquefft/acs-eventhandler/internal/tailscale"
)

func main() {
	os.Exit(run())
}

// run wires and runs the handler until a signal arrives. It returns the
// process exit code so that deferred cleanup always runs.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid config")
		return 1
	}
	logging.Setup(cfg.Log.Level, nil)

	events := handler.NewCatalog(
		catalog.WithStrict(cfg.Catalog.Strict),
		catalog.WithLogger(logging.For("catalog")),
	)
	callDispatcher := calling.NewDispatcher(calling.WithLogger(logging.For("calling")))
	jobDispatcher := jobrouter.NewDispatcher(jobrouter.WithLogger(logging.For("jobrouter")))

	audit := &auditLog{logger: logging.For("audit")}
	defer callDispatcher.Attach(audit)()
	defer jobDispatcher.Attach(audit)()

	// Optional gateway forwarding.
	if cfg.Gateway.URL != "" {
		gw := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Token, logging.For("gateway"))
		if err := gw.Connect(); err != nil {
			log.Error().Err(err).Str("url", cfg.Gateway.URL).Msg("failed to connect to gateway")
			return 1
		}
		defer gw.Close()

		fwd := &gateway.Forwarder{Client: gw, Logger: logging.For("gateway")}
		defer fwd.AttachCalling(callDispatcher)()
		defer fwd.AttachJobRouter(jobDispatcher)()
	}

	proc := handler.New(events, []notify.Dispatcher{callDispatcher, jobDispatcher},
		handler.WithStrict(cfg.Catalog.Strict),
		handler.WithLogger(logging.For("handler")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guard := security.New(cfg.Security)
	server := &webhook.Server{
		Addr:   cfg.Webhook.Addr,
		Path:   cfg.Webhook.Path,
		Logger: logging.For("webhook"),
		Guard:  guard,
	}
	merge := &delivery.Merge{
		Sources: []delivery.Source{server},
		Logger:  logging.For("delivery"),
	}

	if cfg.Webhook.Funnel {
		funnel := &tailscale.Funnel{
			Addr:   cfg.Webhook.Addr,
			Path:   cfg.Webhook.Path,
			Logger: logging.For("tailscale"),
		}
		url, err := funnel.Start(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to start tailscale funnel")
			return 1
		}
		log.Info().Str("url", url).Msg("register this URL as the event subscription endpoint")
	}

	window := time.Duration(cfg.Webhook.DedupWindow) * time.Second
	go merge.StartCleanup(ctx, window)
	go cleanup(ctx, server, guard, window)

	envelopes := make(chan eventgrid.Envelope, 64)
	go func() {
		if err := merge.Run(ctx, envelopes); err != nil {
			log.Error().Err(err).Msg("delivery stopped")
		}
	}()

	log.Info().
		Str("addr", cfg.Webhook.Addr).
		Str("path", cfg.Webhook.Path).
		Int("kinds", events.Len()).
		Bool("strict", cfg.Catalog.Strict).
		Bool("gateway", cfg.Gateway.URL != "").
		Str("security", cfg.Security.Mode).
		Msg("acs-eventhandler started")

	// Run returns early only when every source has stopped, e.g. the
	// listener failed to bind.
	if err := proc.Run(ctx, envelopes); ctx.Err() == nil {
		log.Error().Err(err).Msg("event delivery stopped unexpectedly")
		return 1
	}
	log.Info().Msg("shutting down")
	return 0
}

// cleanup bounds the webhook's dedup set and the guard's rate buckets.
func cleanup(ctx context.Context, s *webhook.Server, g *security.Guard, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanSeen()
			g.Prune()
		}
	}
}
