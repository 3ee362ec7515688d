package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/secretsconfig/internal/api"
	"github.com/Checker-Finance/secretsconfig/internal/publisher"
	"github.com/Checker-Finance/secretsconfig/pkg/config"
	"github.com/Checker-Finance/secretsconfig/pkg/logger"
	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
	"github.com/Checker-Finance/secretsconfig/pkg/smconfig"
	"github.com/Checker-Finance/secretsconfig/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()
	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logg := logger.S()
	if err := cfg.Validate(); err != nil {
		logg.Fatalw("config.invalid", "error", err)
	}
	logg.Infof("starting [%s]...", cfg.ServiceName)

	section, err := smconfig.LoadSection(cfg.SectionPrefix)
	if err != nil {
		logg.Fatalw("config.section_invalid", "prefix", cfg.SectionPrefix, "error", err)
	}

	// --- AWS Secrets Manager store ---
	store, err := secrets.NewAWSStore(ctx, section.AWSOptions(), logger.Named("aws"))
	if err != nil {
		logg.Fatalw("failed to create AWS Secrets Manager store", "error", err)
	}

	// --- Configuration provider ---
	opts := smconfig.DefaultOptions()
	section.Apply(opts)
	provider := smconfig.New(store, opts, smconfig.WithLogger(logger.Named("smconfig")))

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.LoadTimeout)
	err = provider.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logg.Fatalw("smconfig.load_failed", "error", err)
	}

	// --- Optional NATS reload events ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		logg.Infow("connecting to NATS", "url", utils.MaskURL(cfg.NATSURL))
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}

		pub, err := publisher.New(nc, cfg.ReloadSubject, cfg.StreamService, logger.Named("publisher"))
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
		pub.Seed(provider.Snapshot())
		provider.OnReload(pub.OnReload)
	} else {
		logg.Warn("NATS_URL not configured; reload events disabled")
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		DisableStartupMessage: true,
	})
	handler := api.NewConfigHandler(logger.Named("api"), provider, cfg.ReloadTimeout)
	api.RegisterRoutes(app, nc, provider, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow(fmt.Sprintf("[%s] running", cfg.ServiceName),
		"env", cfg.Env,
		"keys", len(provider.Keys()),
		"poll_interval", opts.PollingInterval,
		"nats", nc != nil)

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	if err := provider.Close(); err != nil {
		logg.Warnw("smconfig.close_failed", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
}
