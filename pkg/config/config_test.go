package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Index.TopK != 10 {
		t.Errorf("Index.TopK = %d, want 10", cfg.Index.TopK)
	}
	if cfg.Ranking.WeightPopular != 1.0 || cfg.Ranking.WeightTrending != 0.6 || cfg.Ranking.WeightPersonal != 1.5 {
		t.Errorf("unexpected ranking defaults: %+v", cfg.Ranking)
	}
	if cfg.Trending.HalfLifeSeconds != 1800 {
		t.Errorf("Trending.HalfLifeSeconds = %v, want 1800 (half of the 60-minute window)", cfg.Trending.HalfLifeSeconds)
	}
}

func TestInitConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suggestd.toml")

	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if cfg.Index.TopK != 10 {
		t.Fatalf("expected default config, got TopK=%d", cfg.Index.TopK)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Index.TopK != cfg.Index.TopK {
		t.Errorf("round-tripped TopK = %d, want %d", loaded.Index.TopK, cfg.Index.TopK)
	}
}

func TestUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suggestd.toml")
	cfg := DefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	newTopK := 20
	newWPersonal := 2.0
	if err := cfg.Update(path, &newTopK, nil, nil, &newWPersonal); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.Index.TopK != 20 {
		t.Errorf("Index.TopK = %d, want 20", cfg.Index.TopK)
	}
	if cfg.Ranking.WeightPersonal != 2.0 {
		t.Errorf("Ranking.WeightPersonal = %v, want 2.0", cfg.Ranking.WeightPersonal)
	}
	if cfg.Ranking.WeightPopular != 1.0 {
		t.Errorf("untouched WeightPopular changed: %v", cfg.Ranking.WeightPopular)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig after Update: %v", err)
	}
	if reloaded.Index.TopK != 20 {
		t.Errorf("persisted TopK = %d, want 20", reloaded.Index.TopK)
	}
}
