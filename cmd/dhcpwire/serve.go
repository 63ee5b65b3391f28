package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/athena-dhcpd/dhcpwire/internal/config"
	"github.com/athena-dhcpd/dhcpwire/internal/dhcp"
	"github.com/athena-dhcpd/dhcpwire/internal/logging"
	"github.com/athena-dhcpd/dhcpwire/internal/metrics"
)

func newServeCommand(stderr io.Writer) *ffcli.Command {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "/etc/dhcpwire/config.toml", "path to configuration file")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: name + " serve -config FILE",
		ShortHelp:  "run the DHCP responder and the metrics endpoint",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, stderr)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logOutput io.Writer) error {
	logger := logging.SetupFormat(cfg.Server.LogLevel, cfg.Server.LogFormat, logOutput)
	logger.Info("dhcpwire starting",
		"version", version,
		"interface", cfg.Server.Interface,
		"server_id", cfg.Server.ServerID,
		"reservations", len(cfg.Reservations))

	handler, err := dhcp.NewHandler(cfg, dhcp.NewRateLimiter(cfg.Server.RateLimit), logger)
	if err != nil {
		return err
	}
	server := dhcp.NewServer(handler, cfg.Server.Interface, cfg.Server.Listen, logger)

	metrics.ServerStartTime.SetToCurrentTime()
	metrics.ServerInfo.WithLabelValues(version).Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{
		Addr:              cfg.Server.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	g.Go(func() error {
		logger.Info("metrics endpoint listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("dhcpwire stopped")
	return err
}
