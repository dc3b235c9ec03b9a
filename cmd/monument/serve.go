package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/monument-sim/monument/pkg/api"
	"github.com/monument-sim/monument/pkg/config"
	"github.com/monument-sim/monument/pkg/services"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/telemetry"
	"github.com/monument-sim/monument/pkg/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	slog.Info("Starting Monument",
		"version", version.Full(),
		"port", cfg.Port,
		"data_dir", cfg.DataDir)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := telemetry.Init(ctx, version.AppName, version.GitCommit); err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	registry := store.NewRegistry(cfg.DataDir)
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("Registry close failed", "error", err)
		}
	}()

	engine := services.NewEngine()
	contextService := services.NewContextService(registry)
	admissionService := services.NewAdmissionService(registry, engine)

	sweeper := services.NewSweeper(registry, engine, cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	server := api.NewServer(contextService, admissionService)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Monument stopped")
	return nil
}
