// Command mailer consumes account events from RabbitMQ and records each
// delivered message in the mail log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/config"
	"github.com/iliyamo/user-management-api/internal/queue"
)

func main() {
	cfg, err := config.LoadMailer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer starting", zap.String("log_dir", cfg.MailLogDir))
	if err := queue.StartMailConsumer(ctx, cfg.AMQPURL, cfg.MailLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("mailer stopped", zap.Error(err))
	}
	logger.Info("mailer stopped")
}
