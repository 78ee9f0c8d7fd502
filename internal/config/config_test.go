package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad language", func(c *Config) { c.Scraper.Language = "en" }},
		{"bad force language", func(c *Config) { c.Scraper.ForceLanguage = "rm" }},
		{"zero rows", func(c *Config) { c.Scraper.RowsPerPage = 0 }},
		{"negative max", func(c *Config) { c.Scraper.MaxArticles = -1 }},
		{"bad fetcher", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad storage", func(c *Config) { c.Storage.Type = "csv" }},
		{"zero buffer", func(c *Config) { c.Storage.BufferSize = 0 }},
		{"no output path", func(c *Config) { c.Storage.OutputPath = "" }},
		{"bad base url", func(c *Config) { c.Scraper.BaseURL = "ftp://x" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"negative retries", func(c *Config) { c.Fetcher.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dhscrape.yaml")
	content := `
scraper:
  language: de
  rows_per_page: 50
  politeness_delay: 2s
storage:
  buffer_size: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.Language != "de" {
		t.Errorf("language = %q, want de", cfg.Scraper.Language)
	}
	if cfg.Scraper.RowsPerPage != 50 {
		t.Errorf("rows_per_page = %d, want 50", cfg.Scraper.RowsPerPage)
	}
	if cfg.Scraper.PolitenessDelay != 2*time.Second {
		t.Errorf("politeness_delay = %v, want 2s", cfg.Scraper.PolitenessDelay)
	}
	if cfg.Storage.BufferSize != 7 {
		t.Errorf("buffer_size = %d, want 7", cfg.Storage.BufferSize)
	}
	// Untouched keys keep their defaults.
	if cfg.Scraper.BaseURL != "https://hls-dhs-dss.ch" {
		t.Errorf("base_url = %q", cfg.Scraper.BaseURL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestIsLanguage(t *testing.T) {
	for _, l := range []string{"fr", "de", "it"} {
		if !IsLanguage(l) {
			t.Errorf("IsLanguage(%q) = false", l)
		}
	}
	if IsLanguage("") || IsLanguage("en") {
		t.Error("unexpected language accepted")
	}
}
