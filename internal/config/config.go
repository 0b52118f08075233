// Package config assembles runtime settings from defaults, an optional YAML file and the environment
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"miim/internal/database"
	"miim/internal/extraction"
	"miim/internal/scraper"
	"miim/internal/services"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "MIIM_CONFIG"
	apiKeyEnv         = "OPENAI_API_KEY"
	modelEnv          = "OPENAI_MODEL"
	endpointEnv       = "OPENAI_ENDPOINT"
	maxRetriesEnv     = "LLM_MAX_RETRIES"
	portEnv           = "PORT"
	ginModeEnv        = "GIN_MODE"
	workerEnabledEnv  = "WORKER_ENABLED"
	workerIntervalEnv = "WORKER_INTERVAL"
	batchSizeEnv      = "PIPELINE_BATCH_SIZE"
)

// Config holds every setting the binaries need
type Config struct {
	Database   database.Config        `yaml:"database"`
	LLM        LLMConfig              `yaml:"llm"`
	Pricing    extraction.Pricing     `yaml:"pricing"`
	Thresholds services.Thresholds    `yaml:"thresholds"`
	Pipeline   PipelineConfig         `yaml:"pipeline"`
	Quality    services.QualityConfig `yaml:"quality"`
	Server     ServerConfig           `yaml:"server"`
	Worker     WorkerConfig           `yaml:"worker"`
	Scraper    ScraperConfig          `yaml:"scraper"`
}

// LLMConfig selects the chat completions endpoint
type LLMConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PipelineConfig holds batch settings
type PipelineConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// WorkerConfig controls the background runner inside the server
type WorkerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ScraperConfig lists the news sources and how politely to fetch them
type ScraperConfig struct {
	RateLimit         time.Duration          `yaml:"rate_limit"`
	Timeout           time.Duration          `yaml:"timeout"`
	Keywords          []string               `yaml:"keywords"`
	MinKeywordMatches int                    `yaml:"min_keyword_matches"`
	Sources           []scraper.SourceConfig `yaml:"sources"`
}

// Load reads the YAML file named by MIIM_CONFIG (if any), applies environment
// overrides and validates the result. An unreadable file falls back to defaults.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				return cfg, fmt.Errorf("config: cannot parse %s: %w", path, err)
			}
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("config: pipeline batch size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config: llm max retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		return fmt.Errorf("config: worker interval must be positive, got %s", c.Worker.Interval)
	}
	return nil
}

// ExtractionConfig maps the LLM block onto the client settings.
// MaxRetries counts retries after the first attempt.
func (c Config) ExtractionConfig() extraction.Config {
	ec := extraction.DefaultConfig()
	ec.Endpoint = c.LLM.Endpoint
	ec.Model = c.LLM.Model
	ec.APIKey = c.LLM.APIKey
	if c.LLM.Timeout > 0 {
		ec.Timeout = c.LLM.Timeout
	}
	ec.Retry.MaxAttempts = c.LLM.MaxRetries + 1
	return ec
}

// PipelineServiceConfig returns the orchestrator settings
func (c Config) PipelineServiceConfig() services.PipelineConfig {
	return services.PipelineConfig{BatchSize: c.Pipeline.BatchSize, Pricing: c.Pricing}
}

func (c *Config) applyEnvOverrides() {
	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_HOST", &c.Database.Host)
	envString("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.DBName)
	envString("DB_SSLMODE", &c.Database.SSLMode)
	envString("DB_PATH", &c.Database.Path)

	envString(apiKeyEnv, &c.LLM.APIKey)
	envString(modelEnv, &c.LLM.Model)
	envString(endpointEnv, &c.LLM.Endpoint)
	envInt(maxRetriesEnv, &c.LLM.MaxRetries)

	envString(portEnv, &c.Server.Port)
	envString(ginModeEnv, &c.Server.GinMode)

	if v := os.Getenv(workerEnabledEnv); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Worker.Enabled = enabled
		} else {
			log.Printf("config: ignoring %s=%q: %v", workerEnabledEnv, v, err)
		}
	}
	if v := os.Getenv(workerIntervalEnv); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			c.Worker.Interval = interval
		} else {
			log.Printf("config: ignoring %s=%q: %v", workerIntervalEnv, v, err)
		}
	}

	envInt(batchSizeEnv, &c.Pipeline.BatchSize)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.Host != "" {
		base.Database.Host = override.Database.Host
	}
	if override.Database.Port != "" {
		base.Database.Port = override.Database.Port
	}
	if override.Database.User != "" {
		base.Database.User = override.Database.User
	}
	if override.Database.Password != "" {
		base.Database.Password = override.Database.Password
	}
	if override.Database.DBName != "" {
		base.Database.DBName = override.Database.DBName
	}
	if override.Database.SSLMode != "" {
		base.Database.SSLMode = override.Database.SSLMode
	}
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.MaxRetries != 0 {
		base.LLM.MaxRetries = override.LLM.MaxRetries
	}
	if override.LLM.Timeout != 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Pricing.InputPerMillion != 0 || override.Pricing.OutputPerMillion != 0 {
		base.Pricing = override.Pricing
	}

	// Thresholds are replaced as a unit so a partial block cannot mix with the defaults
	if override.Thresholds != (services.Thresholds{}) {
		base.Thresholds = override.Thresholds
	}

	if override.Pipeline.BatchSize != 0 {
		base.Pipeline.BatchSize = override.Pipeline.BatchSize
	}

	if override.Quality.Commit {
		base.Quality.Commit = true
	}
	if override.Quality.MaxDistance != 0 {
		base.Quality.MaxDistance = override.Quality.MaxDistance
	}
	if override.Quality.MaxLengthDiff != 0 {
		base.Quality.MaxLengthDiff = override.Quality.MaxLengthDiff
	}
	if override.Quality.MinNameLength != 0 {
		base.Quality.MinNameLength = override.Quality.MinNameLength
	}

	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}
	if override.Server.GinMode != "" {
		base.Server.GinMode = override.Server.GinMode
	}

	if override.Worker.Enabled {
		base.Worker.Enabled = true
	}
	if override.Worker.Interval != 0 {
		base.Worker.Interval = override.Worker.Interval
	}

	if override.Scraper.RateLimit != 0 {
		base.Scraper.RateLimit = override.Scraper.RateLimit
	}
	if override.Scraper.Timeout != 0 {
		base.Scraper.Timeout = override.Scraper.Timeout
	}
	if len(override.Scraper.Keywords) > 0 {
		base.Scraper.Keywords = override.Scraper.Keywords
	}
	if override.Scraper.MinKeywordMatches != 0 {
		base.Scraper.MinKeywordMatches = override.Scraper.MinKeywordMatches
	}
	if len(override.Scraper.Sources) > 0 {
		base.Scraper.Sources = override.Scraper.Sources
	}

	return base
}

func defaultConfig() Config {
	llm := extraction.DefaultConfig()
	return Config{
		Database: *database.LoadConfig(),
		LLM: LLMConfig{
			Endpoint:   llm.Endpoint,
			Model:      llm.Model,
			MaxRetries: llm.Retry.MaxAttempts - 1,
			Timeout:    llm.Timeout,
		},
		Pricing:    extraction.DefaultPricing(),
		Thresholds: services.DefaultThresholds(),
		Pipeline:   PipelineConfig{BatchSize: services.DefaultPipelineConfig().BatchSize},
		Quality:    services.DefaultQualityConfig(),
		Server:     ServerConfig{Port: "8080", GinMode: "debug"},
		Worker:     WorkerConfig{Enabled: false, Interval: time.Hour},
		Scraper: ScraperConfig{
			RateLimit:         2 * time.Second,
			Timeout:           30 * time.Second,
			MinKeywordMatches: scraper.MinKeywordMatches,
			Sources:           defaultSources(),
		},
	}
}

func defaultSources() []scraper.SourceConfig {
	return []scraper.SourceConfig{
		{
			Name:        "Leseco",
			ListingURLs: []string{"https://leseco.ma/business", "https://leseco.ma/maroc"},
			LinkPattern: `/(article|news)/`,
		},
		{
			Name:         "Challenge",
			ListingURLs:  []string{"https://www.challenge.ma/category/economie/", "https://www.challenge.ma/category/entreprises/"},
			LinkSelector: "article a[href]",
		},
		{
			Name:         "FNH",
			ListingURLs:  []string{"https://fnh.ma/economie/", "https://fnh.ma/entreprises/", "https://fnh.ma/bourse-finances/"},
			LinkSelector: "article a[href], h2 a[href], h3 a[href]",
		},
		{
			Name:         "TelQuel",
			ListingURLs:  []string{"https://telquel.ma/economie", "https://telquel.ma/entreprises"},
			LinkSelector: "article a[href], h2 a[href], h3 a[href]",
		},
		{
			Name:         "L'Economiste",
			ListingURLs:  []string{"https://www.leconomiste.com/economie", "https://www.leconomiste.com/entreprises"},
			LinkSelector: "article a[href]",
		},
		{
			Name:         "MAP Business",
			ListingURLs:  []string{"https://www.mapbusiness.ma/economie", "https://www.mapbusiness.ma/entreprises", "https://www.mapbusiness.ma/industrie"},
			LinkSelector: "article a[href], h2 a[href], h3 a[href], h4 a[href]",
		},
		{
			Name:        "MCINET",
			ListingURLs: []string{"https://www.mcinet.gov.ma/fr/actualites"},
			LinkPattern: `/fr/actualites/.+`,
			MaxArticles: 50,
		},
	}
}
