package main

import (
	"log"
	"solarcast/internal/api"
	"solarcast/internal/config"
	"solarcast/internal/database"
	"solarcast/internal/forecast"
	"solarcast/internal/predictor"
	"solarcast/internal/server"

	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The database is optional: without it forecasts still run, only /observations is disabled
	var store server.SiteStore
	var obsStore forecast.ObservationStore
	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		log.Printf("❌ Database unavailable, running without persistence: %v", err)
	} else {
		defer db.Close()
		store = db
		obsStore = db
		log.Println("✓ Connected to database")
	}

	var redisClient *redis.Client
	if cfg.Predictor.Source == predictor.SourceRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	forecaster, err := forecast.NewFromConfig(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to initialize forecaster: %v", err)
	}

	client := api.NewOpenMeteoClient(cfg.WeatherTimeout())
	runner := forecast.NewRunner(client, obsStore, forecaster)

	httpServer := server.NewServer(runner, store, cfg.Site, cfg.AllSites(), cfg.DisplayLocation())

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := httpServer.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
