package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"hnlingo/internal/model"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "./hnlingo.yaml"

// Config is the application's configuration model.
type Config struct {
	HN          HNConfig          `yaml:"hn"`
	Traversal   TraversalConfig   `yaml:"traversal"`
	Translation TranslationConfig `yaml:"translation"`
	Listings    []ListingConfig   `yaml:"listings"`
	Storage     StorageConfig     `yaml:"storage"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

type HNConfig struct {
	// If empty, read from env HACKER_NEWS_API_URL
	BaseURL    string   `yaml:"baseURL"`
	Timeout    Duration `yaml:"timeout"`
	Retries    int      `yaml:"retries"`
	RetryDelay Duration `yaml:"retryDelay"`
}

type TraversalConfig struct {
	WaveSize  int      `yaml:"waveSize"`
	WaveDelay Duration `yaml:"waveDelay"`
	MaxDepth  int      `yaml:"maxDepth"`
}

type TranslationConfig struct {
	Provider string `yaml:"provider"` // "openrouter", "openai" or "none"
	BaseURL  string `yaml:"baseURL"`
	// If empty, read from env OPENROUTER_API_KEY, then OPENAI_API_KEY
	APIKey         string   `yaml:"apiKey"`
	Model          string   `yaml:"model"`
	TargetLanguage string   `yaml:"targetLanguage"`
	MaxChars       int      `yaml:"maxChars"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"maxTokens"`
	Timeout        Duration `yaml:"timeout"`
	// Requests per second towards the provider; 0 disables pacing.
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
	Referer string  `yaml:"referer"`
	Title   string  `yaml:"title"`
}

type ListingConfig struct {
	Name     string `yaml:"name"`
	Limit    int    `yaml:"limit"`
	Comments bool   `yaml:"comments"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration struct {
	time.Duration
}

func D(d time.Duration) Duration { return Duration{d} }

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when a file leaves a field out.
func Default() Config {
	return Config{
		HN: HNConfig{
			BaseURL:    "https://hacker-news.firebaseio.com/v0",
			Timeout:    D(10 * time.Second),
			Retries:    3,
			RetryDelay: D(time.Second),
		},
		Traversal: TraversalConfig{WaveSize: 10, WaveDelay: D(time.Second), MaxDepth: 2},
		Translation: TranslationConfig{
			Provider:       "openrouter",
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "deepseek/deepseek-chat:free",
			TargetLanguage: "Chinese",
			MaxChars:       8000,
			Temperature:    0.1,
			MaxTokens:      4000,
			Timeout:        D(60 * time.Second),
			Title:          "hnlingo",
		},
		Listings: []ListingConfig{
			{Name: "top", Limit: 30, Comments: true},
			{Name: "new", Limit: 30},
			{Name: "ask", Limit: 20, Comments: true},
		},
		Storage:  StorageConfig{DBPath: "./hnlingo.db"},
		Schedule: ScheduleConfig{Cron: "0 * * * *", Timezone: "UTC"},
		Log:      LogConfig{Level: "info"},
	}
}

// ResolveEnv applies environment overrides.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("HACKER_NEWS_API_URL"); v != "" {
		c.HN.BaseURL = v
	}
	if c.Translation.APIKey == "" {
		c.Translation.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if c.Translation.APIKey == "" {
		c.Translation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("HNLINGO_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.HN.BaseURL == "" {
		errs = append(errs, errors.New("hn.baseURL is empty"))
	}
	if c.HN.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("hn.timeout must be positive"))
	}
	if c.HN.Retries < 0 {
		errs = append(errs, errors.New("hn.retries must not be negative"))
	}
	if c.HN.RetryDelay.Duration < 0 {
		errs = append(errs, errors.New("hn.retryDelay must not be negative"))
	}
	if c.Traversal.WaveSize <= 0 {
		errs = append(errs, errors.New("traversal.waveSize must be positive"))
	}
	if c.Traversal.WaveDelay.Duration < 0 {
		errs = append(errs, errors.New("traversal.waveDelay must not be negative"))
	}
	if c.Traversal.MaxDepth < 0 {
		errs = append(errs, errors.New("traversal.maxDepth must not be negative"))
	}
	switch c.Translation.Provider {
	case "openrouter", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("translation.provider %q is not one of openrouter, openai, none", c.Translation.Provider))
	}
	if c.Translation.MaxChars <= 0 {
		errs = append(errs, errors.New("translation.maxChars must be positive"))
	}
	if c.Translation.TargetLanguage == "" {
		errs = append(errs, errors.New("translation.targetLanguage is empty"))
	}
	if c.Translation.RPS < 0 {
		errs = append(errs, errors.New("translation.rps must not be negative"))
	}
	for i, l := range c.Listings {
		switch {
		case l.Name == "":
			errs = append(errs, fmt.Errorf("listings[%d]: empty name", i))
		case !model.IsKnownListing(l.Name):
			errs = append(errs, fmt.Errorf("listings[%d]: unknown listing %q", i, l.Name))
		}
		if l.Limit <= 0 {
			errs = append(errs, fmt.Errorf("listings[%d]: limit must be positive", i))
		}
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
		}
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ModelListings converts the configured listings.
func (c Config) ModelListings() []model.Listing {
	out := make([]model.Listing, len(c.Listings))
	for i, l := range c.Listings {
		out[i] = model.Listing{Name: l.Name, Limit: l.Limit, Comments: l.Comments}
	}
	return out
}

// Listing returns the configured listing called name, or a default one
// without comments if it is not configured.
func (c Config) Listing(name string) model.Listing {
	for _, l := range c.ModelListings() {
		if l.Name == name {
			return l
		}
	}
	return model.Listing{Name: name, Limit: 30}
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
