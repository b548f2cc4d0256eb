package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "THREATWIRE_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	triggerSecretEnv    = "TRIGGER_SECRET"
	classifierKeyEnv    = "CLASSIFIER_API_KEY"
	classifierModelEnv  = "CLASSIFIER_MODEL"
	notifyWebhookURLEnv = "NOTIFY_WEBHOOK_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Notify     NotifyConfig     `yaml:"notify"`
	Logging    LoggingConfig    `yaml:"logging"`
	Feeds      []FeedConfig     `yaml:"feeds"`
}

// ServerConfig describes the HTTP trigger surface.
type ServerConfig struct {
	ListenAddr    string `yaml:"listenAddr"`
	TriggerSecret string `yaml:"triggerSecret"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines the optional periodic trigger.
type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ClassifierConfig defines how to contact the AI classification endpoint.
type ClassifierConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	Concurrency  int    `yaml:"concurrency"`
}

// IngestConfig carries the pipeline knobs: windows, caps, and retry limits.
type IngestConfig struct {
	MaxNewPerRun      int      `yaml:"maxNewPerRun"`
	CutoffDays        int      `yaml:"cutoffDays"`
	DupWindowHours    int      `yaml:"dupWindowHours"`
	MaxRetries        int      `yaml:"maxRetries"`
	ReprocessLimit    int      `yaml:"reprocessLimit"`
	BackfillLimit     int      `yaml:"backfillLimit"`
	FetchConcurrency  int      `yaml:"fetchConcurrency"`
	SponsoredKeywords []string `yaml:"sponsoredKeywords"`
}

// NotifyConfig wires the optional run-summary webhook.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes a single syndication source.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}
	for i := range cfg.Feeds {
		if cfg.Feeds[i].Kind == "" {
			cfg.Feeds[i].Kind = "rss"
		}
	}

	return cfg
}

// Validate rejects configurations that cannot run at all. Everything checked
// here is fatal before any feed work starts.
func (c Config) Validate() error {
	if c.Server.TriggerSecret == "" {
		return fmt.Errorf("config: trigger secret is required (set %s)", triggerSecretEnv)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database DSN is required (set %s)", databaseDSNEnv)
	}
	if c.Classifier.Enabled && c.Classifier.APIKey == "" {
		return fmt.Errorf("config: classifier enabled without an API key (set %s)", classifierKeyEnv)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(triggerSecretEnv); v != "" {
		c.Server.TriggerSecret = v
	}

	if v := os.Getenv(classifierKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}

	if v := os.Getenv(classifierModelEnv); v != "" {
		c.Classifier.Model = v
	}

	if v := os.Getenv(notifyWebhookURLEnv); v != "" {
		c.Notify.WebhookURL = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}
	if override.Server.TriggerSecret != "" {
		base.Server.TriggerSecret = override.Server.TriggerSecret
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	base.Scheduler.Enabled = base.Scheduler.Enabled || override.Scheduler.Enabled

	base.Classifier.Enabled = base.Classifier.Enabled || override.Classifier.Enabled
	if override.Classifier.Endpoint != "" {
		base.Classifier.Endpoint = override.Classifier.Endpoint
	}
	if override.Classifier.Model != "" {
		base.Classifier.Model = override.Classifier.Model
	}
	if override.Classifier.APIKey != "" {
		base.Classifier.APIKey = override.Classifier.APIKey
	}
	if override.Classifier.SystemPrompt != "" {
		base.Classifier.SystemPrompt = override.Classifier.SystemPrompt
	}
	if override.Classifier.Concurrency > 0 {
		base.Classifier.Concurrency = override.Classifier.Concurrency
	}

	if override.Ingest.MaxNewPerRun > 0 {
		base.Ingest.MaxNewPerRun = override.Ingest.MaxNewPerRun
	}
	if override.Ingest.CutoffDays > 0 {
		base.Ingest.CutoffDays = override.Ingest.CutoffDays
	}
	if override.Ingest.DupWindowHours > 0 {
		base.Ingest.DupWindowHours = override.Ingest.DupWindowHours
	}
	if override.Ingest.MaxRetries > 0 {
		base.Ingest.MaxRetries = override.Ingest.MaxRetries
	}
	if override.Ingest.ReprocessLimit > 0 {
		base.Ingest.ReprocessLimit = override.Ingest.ReprocessLimit
	}
	if override.Ingest.BackfillLimit > 0 {
		base.Ingest.BackfillLimit = override.Ingest.BackfillLimit
	}
	if override.Ingest.FetchConcurrency > 0 {
		base.Ingest.FetchConcurrency = override.Ingest.FetchConcurrency
	}
	if len(override.Ingest.SponsoredKeywords) > 0 {
		base.Ingest.SponsoredKeywords = override.Ingest.SponsoredKeywords
	}

	if override.Notify.WebhookURL != "" {
		base.Notify.WebhookURL = override.Notify.WebhookURL
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		Database: DatabaseConfig{
			DSN: "",
		},
		Scheduler: SchedulerConfig{Enabled: false, Interval: 4 * time.Hour},
		Classifier: ClassifierConfig{
			Enabled:      false,
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You analyze cybersecurity news articles.",
			Concurrency:  2,
		},
		Ingest: IngestConfig{
			MaxNewPerRun:     30,
			CutoffDays:       7,
			DupWindowHours:   72,
			MaxRetries:       2,
			ReprocessLimit:   5,
			BackfillLimit:    20,
			FetchConcurrency: 4,
		},
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{Name: "The Hacker News", URL: "https://feeds.feedburner.com/TheHackersNews", Kind: "rss"},
			{Name: "BleepingComputer", URL: "https://www.bleepingcomputer.com/feed/", Kind: "rss"},
			{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/", Kind: "rss"},
		},
	}
}
