package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/api"
	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/logging"
	"github.com/samijaber1/aegis-watch/internal/notify"
	"github.com/samijaber1/aegis-watch/internal/policy"
	"github.com/samijaber1/aegis-watch/internal/probe"
	"github.com/samijaber1/aegis-watch/internal/scheduler"
)

// version is set at build time
var version = "dev"

type flags struct {
	configPath      string
	host            string
	port            int
	once            bool
	verbose         bool
	shutdownTimeout time.Duration
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if f.host != "" {
		cfg.Reporting.Host = f.host
	}
	if f.port != 0 {
		cfg.Reporting.DashboardPort = f.port
	}

	logger, err := logging.New(cfg.Logging, f.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, f, logger); err != nil {
		logger.Error("aegis-watch failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, f flags, logger *zap.Logger) error {
	logger.Info("starting aegis-watch",
		zap.String("version", version),
		zap.String("config", f.configPath),
		zap.Int("endpoints", len(cfg.Endpoints)),
		zap.Strings("storage", cfg.Storage.Backends))

	sinks, prom, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	notifiers, hub, err := notify.Build(cfg, logger.Named("notify"))
	if err != nil {
		return fmt.Errorf("failed to build alert channels: %w", err)
	}

	engine := policy.NewEngine()
	alerts := alert.NewManager(cfg.Alerting, notifiers, engine, logger.Named("alert"))
	alerts.SetStore(sinks)

	prober := probe.NewProber(cfg.Monitoring, logger.Named("probe"))
	sched := scheduler.New(cfg, prober.Probe, alerts, engine,
		scheduler.WithSink(sinks),
		scheduler.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.once {
		sched.RunCycle(ctx)
		return nil
	}

	if hub != nil {
		go hub.Run(ctx)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	opts := []api.Option{
		api.WithLogger(logger.Named("api")),
		api.WithCORSOrigins(cfg.Reporting.CORSOrigins),
	}
	if hub != nil {
		opts = append(opts, api.WithHub(hub))
	}
	if prom != nil {
		opts = append(opts, api.WithMetricsHandler(prom.Handler()))
	}
	addr := fmt.Sprintf("%s:%d", cfg.Reporting.Host, cfg.Reporting.DashboardPort)
	apiServer := api.NewServer(sched, addr, opts...)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-serverErrors:
		logger.Error("API server stopped", zap.Error(serveErr))
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down API server", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping scheduler", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return serveErr
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "config.yaml", "Path to the monitor configuration file")
	flag.StringVar(&f.host, "host", "", "Dashboard host (overrides reporting.host)")
	flag.IntVar(&f.port, "port", 0, "Dashboard port (overrides reporting.dashboard_port)")
	flag.BoolVar(&f.once, "once", false, "Run a single monitoring cycle and exit")
	flag.BoolVar(&f.verbose, "verbose", false, "Enable debug logging")
	flag.DurationVar(&f.shutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	flag.Parse()

	return f
}
