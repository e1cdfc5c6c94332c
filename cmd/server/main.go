package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cjamtp/rulegraph/internal/config"
	"github.com/cjamtp/rulegraph/internal/graph"
	"github.com/cjamtp/rulegraph/internal/logging"
	"github.com/cjamtp/rulegraph/internal/repository"
	"github.com/cjamtp/rulegraph/internal/schema"
	"github.com/cjamtp/rulegraph/internal/server"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, cfg.Debug)

	manager, err := graph.NewManager(graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}, logger)
	if err != nil {
		logger.Error("failed to configure graph connection", "error", err)
		os.Exit(1)
	}

	graphClient := graph.NewClient(manager)
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph connection failed", "error", err)
		}
	}()

	// Constraint setup failures are fatal: a catalog without uniqueness
	// guarantees must not serve traffic.
	if err := graph.CreateConstraints(ctx, graphClient, logger); err != nil {
		logger.Error("constraint setup failed", "error", err)
		os.Exit(1)
	}

	validator := schema.NewValidator(cfg.Schema)
	repo := repository.New(graphClient, validator)
	apiHandlers := server.NewAPIHandlers(logger, repo)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: graphClient},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
