package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/comforty/api"
	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/config"
	"github.com/example/comforty/pkg/notification"
	"github.com/example/comforty/pkg/payment"
	"github.com/example/comforty/pkg/repository"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting comforty API",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// MongoDB
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)

	// Ping dependencies
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := mongoRepo.Ping(ctx); err != nil {
		logger.Warn("MongoDB ping failed", zap.Error(err))
	} else {
		logger.Info("MongoDB connected successfully")
	}
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}
	cancel()

	// Stores
	orders := repository.NewOrderRepository(mongoRepo)
	products := repository.NewProductRepository(mongoRepo)
	users := repository.NewUserRepository(mongoRepo)
	carts := repository.NewCartRepository(redisRepo)
	stats := repository.NewStatsRepository(mongoRepo, users, products)
	audit := repository.NewAuditRecorder(mongoRepo, logger)

	// Collaborators
	gateway := payment.NewStripeGateway(&cfg.Stripe)
	mailer := notification.NewSMTPMailer(&cfg.SMTP)
	notifier := notification.NewEmailNotifier(mailer, users)

	// Reconciliation engine
	engine := checkout.NewEngine(orders, products, carts, gateway, notifier, audit, logger, cfg.Stripe.Currency)

	server := api.NewServer(cfg, logger, engine, orders, carts, stats, audit, gateway)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := redisRepo.Close(); err != nil {
		logger.Error("Failed to close Redis", zap.Error(err))
	}
	if err := mongoRepo.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close MongoDB", zap.Error(err))
	}

	logger.Info("Service stopped")
}
