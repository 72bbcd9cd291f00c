package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-sync/internal/config"
	"catalog-sync/internal/database"
	"catalog-sync/internal/handler"
	"catalog-sync/internal/repository"
	"catalog-sync/internal/router"
	"catalog-sync/internal/service"
	"catalog-sync/internal/snapshot"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("driver", cfg.Database.Driver).Msg("starting catalog API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	var (
		categoryRepo repository.CategoryRepository
		productRepo  repository.ProductRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		categoryRepo = repository.NewMemoryCategoryRepository()
		productRepo = repository.NewMemoryProductRepository()
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		categoryRepo = repository.NewCategoryRepository(pool, logger)
		productRepo = repository.NewProductRepository(pool, logger)
	}

	// Initialize services
	categoryService := service.NewCategoryService(categoryRepo, logger)
	productService := service.NewProductService(productRepo, logger)

	if cfg.Seed.Path != "" {
		if err := seed(ctx, cfg.Seed, categoryService, productService, logger); err != nil {
			return fmt.Errorf("failed to seed catalogue: %w", err)
		}
	}

	// Initialize HTTP handlers
	categoryHandler := handler.NewCategoryHandler(categoryService, logger)
	productHandler := handler.NewProductHandler(productService, logger)

	// Initialize router
	mux := router.New(categoryHandler, productHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// seed loads a catalogue snapshot from S3 or disk and imports it.
func seed(
	ctx context.Context,
	cfg config.SeedConfig,
	categories service.CategoryService,
	products service.ProductService,
	logger zerolog.Logger,
) error {
	var s3Loader snapshot.Loader
	if cfg.S3.Enabled {
		store, err := snapshot.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = store
		}
	}
	loader := snapshot.NewFallbackLoader(s3Loader, snapshot.NewFileLoader(logger), cfg.S3.Prefix, cfg.S3.Enabled, logger)

	snap, err := loader.Load(ctx, cfg.Path)
	if err != nil {
		return err
	}
	if err := categories.Import(ctx, snap.Categories); err != nil {
		return err
	}
	if err := products.Import(ctx, snap.Products); err != nil {
		return err
	}

	logger.Info().
		Str("path", cfg.Path).
		Int("categories", len(snap.Categories)).
		Int("products", len(snap.Products)).
		Msg("catalogue seeded")
	return nil
}
