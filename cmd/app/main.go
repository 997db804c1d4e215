package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DrowsyGuard/internal/config"
	"DrowsyGuard/pkg/log"
	"DrowsyGuard/pkg/metrics"
	"DrowsyGuard/pkg/redis"
	"DrowsyGuard/pkg/smtp"
	"DrowsyGuard/pkg/vision"
	websocketPkg "DrowsyGuard/pkg/websocket"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.NewLogger().Warnf("No .env file loaded, using process environment: %v", err)
	}

	logger := log.NewLogger()

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	thresholds, err := config.NewThresholds(validator)
	if err != nil {
		logger.Fatal(err)
	}

	landmarkClient := websocketPkg.NewLandmarkClient(logger)

	models := vision.New()
	if err := models.Init(config.NewVisionLoader(landmarkClient)); err != nil {
		logger.Fatalf("Error loading vision models: %v", err)
	}

	var redisServer redis.IRedis
	if os.Getenv("REDIS_ADDRESS") != "" {
		redisServer = redis.New()
	}

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithS3Client(),
		config.WithSMTPMailer(smtp.New()),
		config.WithLandmarkClient(landmarkClient),
		config.WithModels(models),
		config.WithThresholds(thresholds),
		config.WithMetrics(metrics.New()),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithField("thresholds", thresholds).Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
