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

	"digifootprint/internal/logging"
	"digifootprint/internal/server"
)

func main() {
	logging.Init("footprint")

	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	srv := server.New(cfg.NewService(), cfg)

	srv.StartMetrics(cfg.MetricsAddr)
	if cfg.GRPCAddr != "" {
		go func() {
			slog.Info("grpc health listening", "addr", cfg.GRPCAddr)
			if err := srv.StartGRPC(cfg.GRPCAddr); err != nil {
				slog.Error("grpc server error", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	srv.Stop()
}
