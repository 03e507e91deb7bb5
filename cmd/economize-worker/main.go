// economize-worker consumes the purchase event stream and logs an
// audit trail of purchase changes. It is the attachment point for
// future async processing (notifications, exports).
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"economize/internal/amqp"
	"economize/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Starting economize-worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = amqpClient.ConsumePurchaseEvents(ctx, func(msg *amqp.PurchaseEventMessage) error {
		slog.Info("Purchase event",
			"owner_id", msg.OwnerID,
			"purchase_id", msg.PurchaseID,
			"action", msg.Action,
			"occurred_at", msg.OccurredAt)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
