package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"solarcast/internal/config"
	"solarcast/internal/predictor"
	"syscall"

	"github.com/go-redis/redis/v8"
)

func main() {
	source := flag.String("model", predictor.SourceFile, "model to serve: file or reference")
	group := flag.String("group", "predictors", "Redis consumer group")
	flag.Parse()

	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *source == predictor.SourceRedis {
		log.Fatalf("predictd cannot serve a redis model")
	}
	regressor, err := predictor.Open(predictor.Options{Source: *source, ArtifactPath: cfg.Predictor.ArtifactPath})
	if err != nil {
		log.Fatalf("Failed to open model: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	hostname, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	worker := predictor.NewWorker(redisClient, regressor, cfg.Redis.InputStream, cfg.Redis.OutputStream, *group, consumer)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signal
	go func() {
		<-quit
		log.Println("Shutting down predictor worker...")
		cancel()
	}()

	log.Printf("Predictor worker %s serving %s on %s. Press Ctrl+C to stop...", consumer, *source, cfg.Redis.InputStream)
	if err := worker.Run(ctx); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
	log.Println("Predictor worker stopped")
}
