package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/config"
	"github.com/iliyamo/user-management-api/internal/database"
	"github.com/iliyamo/user-management-api/internal/handler"
	"github.com/iliyamo/user-management-api/internal/queue"
	"github.com/iliyamo/user-management-api/internal/repository"
	"github.com/iliyamo/user-management-api/internal/router"
	"github.com/iliyamo/user-management-api/internal/service"
	"github.com/iliyamo/user-management-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	hasher, err := utils.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	signer, err := utils.NewSigner(cfg.JWTSecret)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	var resetStore repository.ResetTokenStore = repository.NewResetTokenRepo(db)
	if cfg.ResetTokenStore == config.ResetStoreRedis {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		resetStore = repository.NewRedisResetTokenRepo(rdb, users, cfg.RedisPrefix)
	}
	logger.Info("reset token store", zap.String("backend", cfg.ResetTokenStore))

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		notifier = pub
	} else {
		logger.Info("RABBITMQ_URL not set, notifications disabled")
	}

	resets := service.NewResetTokens(resetStore, hasher, logger)
	creds := service.NewCredentialService(users, resets, hasher, signer, notifier, logger)
	userSvc := service.NewUserService(users, hasher, logger)

	e := router.New(
		router.Options{Logger: logger, CORSAllowOrigins: cfg.CORSAllowOrigins},
		handler.NewAuthHandler(creds, logger),
		handler.NewUserHandler(userSvc, logger),
		creds,
	)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
