// Command poedeck runs the Omada PoE module standalone: the same
// module a button-deck host embeds, wired to a logging status sink and
// an in-process bus, with an optional HTTP listener for health, the
// device directory, and Prometheus metrics.
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
	"go.uber.org/zap/zapcore"

	"github.com/soltegren/poedeck/internal/config"
	"github.com/soltegren/poedeck/internal/deckmod"
	"github.com/soltegren/poedeck/internal/event"
	"github.com/soltegren/poedeck/internal/netdiag"
	"github.com/soltegren/poedeck/internal/server"
	"github.com/soltegren/poedeck/internal/version"
	"github.com/soltegren/poedeck/pkg/deck"
)

// statusLogger surfaces module status transitions in the runner log;
// an embedding host renders these in its UI instead.
type statusLogger struct {
	logger *zap.Logger
}

func (s *statusLogger) SetStatus(st deck.Status, detail string) {
	s.logger.Info("module status",
		zap.String("status", string(st)),
		zap.String("detail", detail))
}

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("poedeck starting", zap.String("version", version.Short()))

	bus := event.NewBus(logger)
	module := deckmod.New(deckmod.Params{
		DiscoveryInterval: cfg.GetDuration("poll.discovery"),
		StatusInterval:    cfg.GetDuration("poll.status"),
		ReconnectDelay:    cfg.GetDuration("poll.reconnect"),
		ConfirmDelay:      cfg.GetDuration("poll.confirm"),
		RequestTimeout:    cfg.GetDuration("omada.request_timeout"),
		RequestsPerSecond: cfg.GetFloat64("omada.requests_per_second"),
		Prober:            netdiag.NewProber(0, 0, logger),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := deck.Dependencies{
		Logger: logger,
		Status: &statusLogger{logger: logger.Named("status")},
		Bus:    bus,
	}
	if err := module.Init(ctx, deps); err != nil {
		logger.Fatal("failed to initialize module", zap.Error(err))
	}

	settings := deck.Options{
		"host":       cfg.GetString("omada.host"),
		"port":       cfg.GetInt("omada.port"),
		"username":   cfg.GetString("omada.username"),
		"password":   cfg.GetString("omada.password"),
		"site":       cfg.GetString("omada.site"),
		"verify_tls": cfg.GetBool("omada.verify_tls"),
	}
	if err := module.Configure(ctx, settings); err != nil {
		logger.Fatal("controller settings rejected", zap.Error(err))
	}

	var srv *server.Server
	if addr := cfg.GetString("metrics.listen"); addr != "" {
		srv = server.New(addr, module, logger.Named("http"))
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("HTTP server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("poedeck ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := module.Destroy(shutdownCtx); err != nil {
		logger.Error("module teardown error", zap.Error(err))
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	logger.Info("poedeck stopped")
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.GetString("logging.format") == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.GetString("logging.level")); err == nil {
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
