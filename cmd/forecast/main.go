package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"solarcast/internal/api"
	"solarcast/internal/config"
	"solarcast/internal/database"
	"solarcast/internal/forecast"
	"solarcast/internal/models"
	"solarcast/internal/predictor"
	"solarcast/internal/report"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
)

// maxWorkers caps concurrent weather fetches
const maxWorkers = 20

// SiteForecaster produces one site's forecast
type SiteForecaster interface {
	Forecast(ctx context.Context, site models.Site) (*models.SiteForecast, error)
}

// SiteResult holds the outcome for a single site
type SiteResult struct {
	Site           string
	Forecast       *models.SiteForecast
	Error          error
	ProcessingTime time.Duration
}

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml")
	schedule := flag.String("cron", "", `cron schedule for repeated runs, e.g. "0 * * * *"; empty runs once`)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var obsStore forecast.ObservationStore
	var db *database.DB
	if conn, err := database.NewDB(config.GetDatabaseDSN()); err != nil {
		log.Printf("❌ Database unavailable, forecasting configured sites only: %v", err)
	} else {
		db = conn
		defer db.Close()
		obsStore = db
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

	runner := forecast.NewRunner(api.NewOpenMeteoClient(cfg.WeatherTimeout()), obsStore, forecaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		sites := cfg.AllSites()
		if db != nil {
			stored, err := db.GetAllSites()
			if err != nil {
				log.Printf("❌ Failed to load sites from database: %v", err)
			}
			sites = mergeSites(sites, stored)
		}

		results := runForecasts(ctx, runner, sites, maxWorkers)
		writeReports(results, cfg.Report, cfg.DisplayLocation())
	}

	if *schedule == "" {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, run); err != nil {
		log.Fatalf("Invalid cron schedule %q: %v", *schedule, err)
	}
	c.Start()
	log.Printf("Scheduled forecasts with %q. Press Ctrl+C to stop...", *schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down forecast scheduler...")
	cancel()
	<-c.Stop().Done()
}

// mergeSites appends stored sites whose names are not configured already
func mergeSites(configured, stored []models.Site) []models.Site {
	seen := make(map[string]bool, len(configured))
	sites := append([]models.Site{}, configured...)
	for _, s := range configured {
		seen[s.Name] = true
	}
	for _, s := range stored {
		if !seen[s.Name] {
			seen[s.Name] = true
			sites = append(sites, s)
		}
	}
	return sites
}

func runForecasts(ctx context.Context, f SiteForecaster, sites []models.Site, maxWorkers int) []SiteResult {
	startTime := time.Now()
	if len(sites) == 0 {
		log.Println("No sites to forecast")
		return nil
	}

	numWorkers := maxWorkers
	if len(sites) < numWorkers {
		numWorkers = len(sites)
	}
	log.Printf("Forecasting %d sites with %d workers...", len(sites), numWorkers)

	// Create channels for job distribution and result collection
	jobs := make(chan models.Site, len(sites))
	results := make(chan SiteResult, len(sites))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(ctx, f, jobs, results, &wg)
	}

	for _, site := range sites {
		jobs <- site
	}
	close(jobs)

	// Wait for all workers to finish, then close results channel
	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []SiteResult
	totalEnergy := 0.0
	totalErrors := 0
	count := 0

	for result := range results {
		count++
		collected = append(collected, result)

		if result.Error != nil {
			log.Printf("[%d/%d] ❌ %s: %v (%.1fs)",
				count, len(sites), result.Site, result.Error, result.ProcessingTime.Seconds())
			totalErrors++
			continue
		}

		r := result.Forecast.Result
		totalEnergy += r.TotalEnergyKWh
		log.Printf("[%d/%d] ✓ %s: %.2f kWh, peak %.2f kW (%.1fs)",
			count, len(sites), result.Site, r.TotalEnergyKWh, r.PeakPowerKW, result.ProcessingTime.Seconds())
	}

	totalDuration := time.Since(startTime)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("Forecast complete in %.1f seconds", totalDuration.Seconds())
	log.Printf("  Sites: %d forecast, %d errors", count-totalErrors, totalErrors)
	log.Printf("  Energy: %.2f kWh across all sites", totalEnergy)
	log.Printf("  Avg time/site: %.1fs", totalDuration.Seconds()/float64(count))
	log.Printf("  Workers: %d", numWorkers)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return collected
}

// worker forecasts sites from the jobs channel
func worker(ctx context.Context, f SiteForecaster, jobs <-chan models.Site, results chan<- SiteResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for site := range jobs {
		startTime := time.Now()
		fc, err := f.Forecast(ctx, site)
		results <- SiteResult{
			Site:           site.Name,
			Forecast:       fc,
			Error:          err,
			ProcessingTime: time.Since(startTime),
		}
	}
}

// writeReports saves a chart and a table per successful site into the configured directories
func writeReports(results []SiteResult, cfg config.ReportConfig, display *time.Location) {
	for _, result := range results {
		if result.Error != nil {
			continue
		}
		log.Printf("%s: %s", result.Site, report.Headline(result.Forecast, display))

		if cfg.ChartPath != "" {
			path := filepath.Join(cfg.ChartPath, result.Site+".html")
			if err := writeFile(path, func(f *os.File) error { return report.RenderChart(f, result.Forecast, display) }); err != nil {
				log.Printf("❌ %v", err)
			}
		}
		if cfg.TablePath != "" {
			path := filepath.Join(cfg.TablePath, result.Site+".csv")
			if err := writeFile(path, func(f *os.File) error { return report.WriteTable(f, result.Forecast.Rows, display) }); err != nil {
				log.Printf("❌ %v", err)
			}
		}
	}
}

func writeFile(path string, render func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := render(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
