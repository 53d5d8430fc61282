// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the JSON document stores.
	DataDir string `koanf:"data_dir"`

	// Provider credentials and endpoints. A provider with an empty key is
	// treated as unconfigured and skipped without network calls.
	StatsBaseURL    string `koanf:"stats_base_url"`
	StatsAPIKey     string `koanf:"stats_api_key"`
	OfficialBaseURL string `koanf:"official_base_url"`
	OfficialAPIKey  string `koanf:"official_api_key"`
	OddsBaseURL     string `koanf:"odds_base_url"`
	OddsAPIKey      string `koanf:"odds_api_key"`

	// ProviderTimeoutSec bounds a single provider's collection attempt.
	ProviderTimeoutSec int `koanf:"provider_timeout_sec"`

	// CollectTimeoutSec bounds the whole provider fan-out.
	CollectTimeoutSec int `koanf:"collect_timeout_sec"`

	// Generative backend settings.
	BackendBaseURL     string   `koanf:"backend_base_url"`
	BackendAPIKey      string   `koanf:"backend_api_key"`
	ModelChain         []string `koanf:"model_chain"`
	GenerateTimeoutSec int      `koanf:"generate_timeout_sec"`

	// Cache TTLs in minutes.
	CollectionTTLMin int `koanf:"collection_ttl_min"`
	PredictionTTLMin int `koanf:"prediction_ttl_min"`

	// RetentionHours bounds how long stale cache entries survive compaction.
	RetentionHours int `koanf:"retention_hours"`

	// HistoryCap bounds the prediction history ring.
	HistoryCap int `koanf:"history_cap"`

	// Notice delivery pipeline sizing.
	NoticeQueueSize   int `koanf:"notice_queue_size"`
	NoticeWorkerCount int `koanf:"notice_worker_count"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		DataDir:             "data",
		StatsBaseURL:        "https://api.sportstats.example.com/v1",
		OfficialBaseURL:     "https://api.football-official.example.com/v4",
		OddsBaseURL:         "https://api.oddsfeed.example.com/v3",
		ProviderTimeoutSec:  12,
		CollectTimeoutSec:   60,
		BackendBaseURL:      "https://api.openai.com/v1",
		ModelChain:          []string{"gpt-4o-mini", "gpt-3.5-turbo"},
		GenerateTimeoutSec:  90,
		CollectionTTLMin:    30,
		PredictionTTLMin:    30,
		RetentionHours:      48,
		HistoryCap:          5000,
		NoticeQueueSize:     1024,
		NoticeWorkerCount:   runtime.NumCPU(),
		MaxLeaderboardLimit: 100,
	}
}
