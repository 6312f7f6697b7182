package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpcapi "rental-order-backend/internal/api/grpc"
	httpapi "rental-order-backend/internal/api/http"
	"rental-order-backend/internal/app"
	"rental-order-backend/internal/config"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/scheduler"
	"rental-order-backend/internal/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Order Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress(), "storage", cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	handler := httpapi.NewHandler(a.Orders, a.Disputes, a.Proofs, a.Notifications, cfg.Storage.MaxFileBytes())
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, tokenManager),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !cfg.Scheduler.InProcessDisabled {
		cronScheduler, err := scheduler.NewScheduler(a.JobRunner())
		if err != nil {
			logger.Error("Failed to register jobs", "error", err)
			log.Fatalf("Failed to register jobs: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if addr := cfg.GetGRPCAddress(); addr != "" {
		grpcServer, health := grpcapi.NewServer(tokenManager)
		g.Go(func() error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("gRPC server listening", "address", addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			health.Shutdown()
			grpcServer.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}
