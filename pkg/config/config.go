/*
Package config manages TOML config for the suggestion engine.

InitConfig handles automatic config file creation and loading with fallback to defaults.
LoadConfig and SaveConfig provide direct fs for runtime changes.
Update allows targeted parameter changes with persistence.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure.
type Config struct {
	Index      IndexConfig      `toml:"index"`
	Ranking    RankingConfig    `toml:"ranking"`
	Cache      CacheConfig      `toml:"cache"`
	Trending   TrendingConfig   `toml:"trending"`
	History    HistoryConfig    `toml:"history"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Fuzzy      FuzzyConfig      `toml:"fuzzy"`
	Server     ServerConfig     `toml:"server"`
}

// ServerConfig controls the HTTP transport: listen address, CORS, and
// per-route rate limits.
type ServerConfig struct {
	Addr                string   `toml:"addr"`
	CORSAllowedOrigins  []string `toml:"cors_allowed_origins"`
	RateLimitSuggestRPM int      `toml:"rate_limit_suggest_rpm"`
	RateLimitAdminRPM   int      `toml:"rate_limit_admin_rpm"`
}

// IndexConfig controls the Prefix Index's top-K cache width and phrase
// length ceiling.
type IndexConfig struct {
	TopK            int `toml:"top_k"`
	MaxPhraseLength int `toml:"max_phrase_length"`
	RebuildMaxCount int `toml:"rebuild_max_count"`
}

// RankingConfig holds the Ranking Composer's blend weights and the
// per-lookup deadline.
type RankingConfig struct {
	WeightPopular    float64 `toml:"weight_popular"`
	WeightTrending   float64 `toml:"weight_trending"`
	WeightPersonal   float64 `toml:"weight_personal"`
	LookupDeadlineMs int     `toml:"lookup_deadline_ms"`
}

// CacheConfig controls the read-through suggestion cache's TTLs.
type CacheConfig struct {
	HotTTLSeconds  int `toml:"hot_ttl_seconds"`
	UserTTLSeconds int `toml:"user_ttl_seconds"`
}

// TrendingConfig controls the sliding trending window. HalfLifeSeconds is
// exposed here rather than hard-coded, per the half-life open question.
type TrendingConfig struct {
	WindowMinutes   int     `toml:"window_minutes"`
	TopN            int     `toml:"top_n"`
	HalfLifeSeconds float64 `toml:"half_life_seconds"`
	EvictionFloor   float64 `toml:"eviction_floor"`
}

// HistoryConfig controls per-user personal history.
type HistoryConfig struct {
	Depth      int `toml:"depth"`
	ExpiryDays int `toml:"expiry_days"`
}

// AggregatorConfig controls the ingest batching, flush cadence, and
// backoff/overflow behavior on Log Store failure.
type AggregatorConfig struct {
	FlushIntervalSeconds int    `toml:"flush_interval_seconds"`
	FlushMaxPhrases      int    `toml:"flush_max_phrases"`
	FreshnessSeconds     int    `toml:"freshness_seconds"`
	BackoffBaseMs        int    `toml:"backoff_base_ms"`
	BackoffMaxMs         int    `toml:"backoff_max_ms"`
	BackoffMaxAttempts   int    `toml:"backoff_max_attempts"`
	OverflowLogPath      string `toml:"overflow_log_path"`
}

// FuzzyConfig controls the single-edit fuzzy fallback.
type FuzzyConfig struct {
	MinPrefixLength int `toml:"min_prefix_length"`
}

// DefaultConfig returns a Config with the defaults named throughout the
// suggestion engine's component design.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			TopK:            10,
			MaxPhraseLength: 128,
			RebuildMaxCount: 100_000,
		},
		Ranking: RankingConfig{
			WeightPopular:    1.0,
			WeightTrending:   0.6,
			WeightPersonal:   1.5,
			LookupDeadlineMs: 50,
		},
		Cache: CacheConfig{
			HotTTLSeconds:  30,
			UserTTLSeconds: 5,
		},
		Trending: TrendingConfig{
			WindowMinutes:   60,
			TopN:            1000,
			HalfLifeSeconds: 1800,
			EvictionFloor:   0.01,
		},
		History: HistoryConfig{
			Depth:      50,
			ExpiryDays: 30,
		},
		Aggregator: AggregatorConfig{
			FlushIntervalSeconds: 5,
			FlushMaxPhrases:      10_000,
			FreshnessSeconds:     60,
			BackoffBaseMs:        200,
			BackoffMaxMs:         10_000,
			BackoffMaxAttempts:   8,
			OverflowLogPath:      "overflow.log",
		},
		Fuzzy: FuzzyConfig{
			MinPrefixLength: 3,
		},
		Server: ServerConfig{
			Addr:                ":8080",
			CORSAllowedOrigins:  []string{},
			RateLimitSuggestRPM: 600,
			RateLimitAdminRPM:   60,
		},
	}
}

// InitConfig loads config from file or creates default if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			return nil, err
		}
		log.Debugf("Created default config file at: ( %s )", configPath)
		return cfg, nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config, using defaults: %v", err)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// LoadConfig loads from a TOML file.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Errorf("Failed to decode config file: %v", err)
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig saves into a TOML file.
func SaveConfig(cfg *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("Failed to create config file: %v", err)
		return err
	}
	defer file.Close()
	encoder := toml.NewEncoder(file)
	return encoder.Encode(cfg)
}

// Update changes the named ranking weights and top-K width, then saves to
// file. Nil pointers leave the current value untouched.
func (c *Config) Update(configPath string, topK *int, wPop, wTrend, wPersonal *float64) error {
	if topK != nil {
		c.Index.TopK = *topK
	}
	if wPop != nil {
		c.Ranking.WeightPopular = *wPop
	}
	if wTrend != nil {
		c.Ranking.WeightTrending = *wTrend
	}
	if wPersonal != nil {
		c.Ranking.WeightPersonal = *wPersonal
	}
	return SaveConfig(c, configPath)
}
