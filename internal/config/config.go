// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port       int           `yaml:"port"`
	APIKey     string        `yaml:"api_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey         string `yaml:"openai_key"`
	OpenAIModel       string `yaml:"openai_model"`
	GeminiKey         string `yaml:"gemini_key"`
	GeminiURL         string `yaml:"gemini_url"`
	GeminiModel       string `yaml:"gemini_model"`
	MaxOutputTokens   int    `yaml:"max_output_tokens"`
	ConcurrentLimit   int    `yaml:"concurrent_limit"`    // max concurrent AI calls
	RequestsPerMinute int    `yaml:"requests_per_minute"` // provider call budget, negative disables throttling
	OutputDir         string `yaml:"output_dir"`          // tailored documents land here
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type SourcesConfig struct {
	ExtractorURL       string `yaml:"extractor_url"`        // jobspy bridge service
	SponsorRegisterURL string `yaml:"sponsor_register_url"` // licensed-sponsor lookup service
}

type PipelineConfig struct {
	Concurrency         int           `yaml:"concurrency"` // parallel source crawls
	TopN                int           `yaml:"top_n"`
	MinSuitabilityScore int           `yaml:"min_suitability_score"`
	SourceTimeout       time.Duration `yaml:"source_timeout"`    // 0 = wait indefinitely
	ExpiryAge           time.Duration `yaml:"expiry_age"`        // job staleness cutoff
	ExpiryInterval      time.Duration `yaml:"expiry_interval"`   // expiry sweep cadence
	ScheduleInterval    time.Duration `yaml:"schedule_interval"` // 0 = manual runs only
}

type SearchConfig struct {
	Terms         []string `yaml:"terms"`
	Country       string   `yaml:"country"`
	Locations     []string `yaml:"locations"`
	Sources       []string `yaml:"sources"`
	ResultsWanted int      `yaml:"results_wanted"`
	HoursOld      int      `yaml:"hours_old"`
}

type ProfileConfig struct {
	Summary    string   `yaml:"summary"`
	Skills     []string `yaml:"skills"`
	Experience string   `yaml:"experience"`
	TargetRole string   `yaml:"target_role"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Telegram TelegramConfig `yaml:"telegram"`
	Sources  SourcesConfig  `yaml:"sources"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Search   SearchConfig   `yaml:"search"`
	Profile  ProfileConfig  `yaml:"profile"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.AI.RequestsPerMinute == 0 {
		cfg.AI.RequestsPerMinute = 30
	}
	if cfg.AI.OutputDir == "" {
		cfg.AI.OutputDir = "output"
	}
	if cfg.Pipeline.Concurrency <= 0 {
		cfg.Pipeline.Concurrency = 3
	}
	if cfg.Pipeline.TopN <= 0 {
		cfg.Pipeline.TopN = 5
	}
	if cfg.Pipeline.MinSuitabilityScore <= 0 {
		cfg.Pipeline.MinSuitabilityScore = 60
	}
	if cfg.Pipeline.ExpiryAge <= 0 {
		cfg.Pipeline.ExpiryAge = 30 * 24 * time.Hour
	}
	if cfg.Pipeline.ExpiryInterval <= 0 {
		cfg.Pipeline.ExpiryInterval = time.Hour
	}
	if len(cfg.Search.Terms) == 0 {
		cfg.Search.Terms = []string{"software engineer"}
	}
	if cfg.Search.Country == "" {
		cfg.Search.Country = "united kingdom"
	}
	if cfg.Search.ResultsWanted <= 0 {
		cfg.Search.ResultsWanted = 200
	}
	if cfg.Search.HoursOld <= 0 {
		cfg.Search.HoursOld = 72
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Sources.ExtractorURL == "" {
		return nil, errors.New("sources.extractor_url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
