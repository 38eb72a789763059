package forecast

import (
	"errors"
	"fmt"
	"log"
	"solarcast/internal/config"
	"solarcast/internal/irradiance"
	"solarcast/internal/models"
	"solarcast/internal/predictor"

	"github.com/go-redis/redis/v8"
)

// NewFromConfig builds a Forecaster from the loaded configuration.
// redisClient is only used when predictor.source is redis.
// A missing model artifact is not fatal: runs fail with ErrPredictorUnavailable until one is trained.
func NewFromConfig(cfg *config.Config, redisClient *redis.Client) (*Forecaster, error) {
	albedo := irradiance.DefaultAlbedo
	if cfg.Transposition.Albedo != nil {
		albedo = *cfg.Transposition.Albedo
	}

	engine, err := irradiance.NewEngine(irradiance.Model(cfg.Transposition.Model), albedo)
	if err != nil {
		return nil, fmt.Errorf("failed to create transposition engine: %w", err)
	}

	regressor, err := predictor.Open(predictor.Options{
		Source:       cfg.Predictor.Source,
		ArtifactPath: cfg.Predictor.ArtifactPath,
		Client:       redisClient,
		InputStream:  cfg.Redis.InputStream,
		OutputStream: cfg.Redis.OutputStream,
		Timeout:      cfg.PredictorTimeout(),
	})
	switch {
	case errors.Is(err, models.ErrPredictorUnavailable):
		log.Printf("❌ %v", err)
		regressor = nil
	case err != nil:
		return nil, fmt.Errorf("failed to open predictor: %w", err)
	default:
		log.Printf("✓ Predictor ready (source: %s, transposition: %s)", cfg.Predictor.Source, engine.Model())
	}

	adapter, err := predictor.NewAdapter(regressor)
	if err != nil {
		return nil, fmt.Errorf("failed to create power adapter: %w", err)
	}

	return NewForecaster(engine, adapter), nil
}
