package config

import (
	"fmt"
	"os"
	"solarcast/internal/models"
	"solarcast/internal/predictor"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	instance *Config
	once     sync.Once
)

// Predictor sources
const (
	PredictorFile      = predictor.SourceFile
	PredictorRedis     = predictor.SourceRedis
	PredictorReference = predictor.SourceReference
)

type WeatherConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type TranspositionConfig struct {
	Model  string   `yaml:"model"`
	Albedo *float64 `yaml:"albedo"`
}

type PredictorConfig struct {
	Source         string `yaml:"source"`
	ArtifactPath   string `yaml:"artifact_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RedisSection struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	InputStream  string `yaml:"input_stream"`
	OutputStream string `yaml:"output_stream"`
}

type ReportConfig struct {
	Timezone  string `yaml:"timezone"`
	ChartPath string `yaml:"chart_path"`
	TablePath string `yaml:"table_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is loaded once from config.yaml
type Config struct {
	Site          models.Site         `yaml:"site"`
	Sites         []models.Site       `yaml:"sites"`
	Weather       WeatherConfig       `yaml:"weather"`
	Transposition TranspositionConfig `yaml:"transposition"`
	Predictor     PredictorConfig     `yaml:"predictor"`
	Redis         RedisSection        `yaml:"redis"`
	Report        ReportConfig        `yaml:"report"`
	Server        ServerConfig        `yaml:"server"`
}

// DefaultSite is the 5 kW south-facing installation in Jaipur used when no site is configured
func DefaultSite() models.Site {
	return models.Site{
		Name:        "jaipur",
		Location:    models.Location{Latitude: 26.9124, Longitude: 75.7873},
		Orientation: models.SurfaceOrientation{Tilt: 26, Azimuth: 180},
		CapacityKW:  5,
	}
}

func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}

		// .env only fills variables that are not already set
		_ = godotenv.Load()

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		instance.applyDefaults()

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

func (c *Config) applyDefaults() {
	if c.Site == (models.Site{}) {
		c.Site = DefaultSite()
	}

	if c.Weather.TimeoutSeconds == 0 {
		c.Weather.TimeoutSeconds = 10
	}

	if c.Transposition.Model == "" {
		c.Transposition.Model = "isotropic"
	}
	if c.Transposition.Albedo == nil {
		albedo := 0.25
		c.Transposition.Albedo = &albedo
	}

	if c.Predictor.Source == "" {
		c.Predictor.Source = PredictorFile
	}
	if c.Predictor.Source == PredictorFile && c.Predictor.ArtifactPath == "" {
		c.Predictor.ArtifactPath = "model.json"
	}
	if c.Predictor.TimeoutSeconds == 0 {
		c.Predictor.TimeoutSeconds = 60
	}

	env := GetRedisConfig()
	if c.Redis.Addr == "" {
		c.Redis.Addr = env.Addr
	}
	if c.Redis.Password == "" {
		c.Redis.Password = env.Password
	}
	if c.Redis.DB == 0 {
		c.Redis.DB = env.DB
	}
	if c.Redis.InputStream == "" {
		c.Redis.InputStream = env.Stream
	}
	if c.Redis.OutputStream == "" {
		c.Redis.OutputStream = env.ResultStream
	}

	if c.Report.Timezone == "" {
		c.Report.Timezone = "Asia/Kolkata"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (c *Config) validate() error {
	if err := ValidateSite(c.Site); err != nil {
		return fmt.Errorf("site: %w", err)
	}

	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		if err := ValidateSite(s); err != nil {
			return fmt.Errorf("sites[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("sites[%d]: duplicate site name %q", i, s.Name)
		}
		seen[s.Name] = true
	}

	if c.Weather.TimeoutSeconds < 0 {
		return fmt.Errorf("weather.timeout_seconds cannot be negative, got %d", c.Weather.TimeoutSeconds)
	}

	switch c.Transposition.Model {
	case "isotropic", "haydavies":
	default:
		return fmt.Errorf("transposition.model must be isotropic or haydavies, got %q", c.Transposition.Model)
	}
	if a := c.Transposition.Albedo; a != nil && !(*a >= 0 && *a <= 1) {
		return fmt.Errorf("transposition.albedo must be between 0 and 1, got %v", *a)
	}

	switch c.Predictor.Source {
	case PredictorFile, PredictorRedis, PredictorReference:
	default:
		return fmt.Errorf("predictor.source must be file, redis or reference, got %q", c.Predictor.Source)
	}

	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone: %w", err)
	}

	return nil
}

// ValidateSite checks a site definition for configuration errors
func ValidateSite(s models.Site) error {
	if s.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !s.Location.Valid() {
		return fmt.Errorf("%w: latitude %.4f, longitude %.4f", models.ErrInvalidLocation, s.Location.Latitude, s.Location.Longitude)
	}
	if !s.Orientation.Valid() {
		return fmt.Errorf("%w: tilt %.2f, azimuth %.2f", models.ErrInvalidOrientation, s.Orientation.Tilt, s.Orientation.Azimuth)
	}
	if !(s.CapacityKW > 0) {
		return fmt.Errorf("%w: %v kW", models.ErrInvalidCapacity, s.CapacityKW)
	}
	return nil
}

// DisplayLocation returns the time zone used for charts and tables
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeatherTimeout bounds a single weather feed request
func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.Weather.TimeoutSeconds) * time.Second
}

// PredictorTimeout bounds the wait for a remote prediction
func (c *Config) PredictorTimeout() time.Duration {
	return time.Duration(c.Predictor.TimeoutSeconds) * time.Second
}

// AllSites returns the configured sites, or the single default site when none are listed
func (c *Config) AllSites() []models.Site {
	if len(c.Sites) > 0 {
		return c.Sites
	}
	return []models.Site{c.Site}
}
