package main

import (
	"flag"
	"log"
	"solarcast/internal/config"
	"solarcast/internal/predictor"
)

func main() {
	samples := flag.Int("samples", 20000, "number of synthetic training rows")
	seed := flag.Int64("seed", 42, "random seed for the training rows")
	out := flag.String("out", "", "artifact path (defaults to predictor.artifact_path from config.yaml)")
	flag.Parse()

	path := *out
	if path == "" {
		path = "model.json"
		if cfg, err := config.Load("./config.yaml"); err != nil {
			log.Printf("Config not loaded, writing to %s: %v", path, err)
		} else if cfg.Predictor.ArtifactPath != "" {
			path = cfg.Predictor.ArtifactPath
		}
	}

	log.Printf("Synthesizing %d training rows (seed %d)...", *samples, *seed)
	set := predictor.Synthesize(*samples, *seed, predictor.NewReferenceModel())

	model, err := predictor.Fit(set.Irradiance, set.Temperature, set.Fraction)
	if err != nil {
		log.Fatalf("Failed to fit model: %v", err)
	}

	if err := model.SaveArtifact(path); err != nil {
		log.Fatalf("Failed to save model: %v", err)
	}

	a := model.Artifact()
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Model saved to %s", path)
	log.Printf("  Samples: %d", a.Samples)
	log.Printf("  RMSE: %.3g", a.RMSE)
	for i, term := range a.Terms {
		log.Printf("  %-24s %+.6g", term, a.Coefficients[i])
	}
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
