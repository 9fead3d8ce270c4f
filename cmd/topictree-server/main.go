package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/MegaGrindStone/go-topic-tree/config"
	"github.com/MegaGrindStone/go-topic-tree/handler"
	"github.com/MegaGrindStone/go-topic-tree/llm"
	"github.com/MegaGrindStone/go-topic-tree/server"
	"github.com/MegaGrindStone/go-topic-tree/storage"
	"github.com/sony/gobreaker"
)

type closableCache interface {
	topictree.ResponseCache
	io.Closer
}

func main() {
	configPath := flag.String("config", os.Getenv("TOPICTREE_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	treeHandler, err := handler.NewDefault(cfg.Generation)
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	cache, err := openCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	var responseCache topictree.ResponseCache
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Error("Failed to close cache", "error", err)
			}
		}()
		responseCache = cache
	}

	var cb *gobreaker.CircuitBreaker
	if cfg.Breaker.Enabled {
		cb = llm.NewCircuitBreaker("llm", cfg.Breaker, logger)
	}

	srv := server.New(server.Options{
		NewLLM:         server.NewLLMFactory(cfg.LLM, cfg.Retry, cb, responseCache,
			topictree.ParseOptions{Repair: cfg.Generation.RepairJSON}, logger),
		Handler:        treeHandler,
		DefaultModel:   cfg.LLM.DefaultModel,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", cfg.Server.Address,
			"provider", cfg.LLM.Provider, "cache", cfg.Cache.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// openCache returns nil when caching is disabled.
func openCache(cfg config.CacheConfig) (closableCache, error) {
	switch cfg.Backend {
	case config.CacheBolt:
		cache, err := storage.NewBolt(cfg.BoltPath, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return cache, nil
	case config.CacheRedis:
		cache, err := storage.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, nil
	}
}
