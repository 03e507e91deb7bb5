package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"economize/internal/ai"
	"economize/internal/amqp"
	"economize/internal/backend"
	"economize/internal/cli"
	apphttp "economize/internal/http"
	"economize/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	// Gemini is optional: without an API key the suggestion endpoint
	// degrades to the default category and import staging returns
	// nothing.
	var aiClient *ai.Client
	if cfg.GeminiAPIKey != "" {
		aiClient, err = ai.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		defer aiClient.Close()
		logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
	}

	// AMQP is optional too: a missing broker only disables the
	// advisory event stream.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	purchaseService := services.NewPurchaseService(result.Backend, events)

	var extractor services.Extractor
	if aiClient != nil {
		extractor = aiClient
	}
	importService := services.NewImportService(extractor, result.Backend, result.Backend)

	var suggester apphttp.CategorySuggester
	if aiClient != nil {
		suggester = aiClient
	}
	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, purchaseService, importService, suggester, cfg.JWTSecret)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting economize server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
