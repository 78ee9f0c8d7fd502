package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Scraper.BaseURL); err != nil {
		return fmt.Errorf("scraper.base_url: %w", err)
	}
	if cfg.Scraper.Language != "" && !IsLanguage(cfg.Scraper.Language) {
		return fmt.Errorf("scraper.language must be fr/de/it, got %q", cfg.Scraper.Language)
	}
	if cfg.Scraper.ForceLanguage != "" && !IsLanguage(cfg.Scraper.ForceLanguage) {
		return fmt.Errorf("scraper.force_language must be fr/de/it, got %q", cfg.Scraper.ForceLanguage)
	}
	if cfg.Scraper.PolitenessDelay < 0 {
		return fmt.Errorf("scraper.politeness_delay must be >= 0")
	}
	if cfg.Scraper.RowsPerPage < 1 {
		return fmt.Errorf("scraper.rows_per_page must be >= 1, got %d", cfg.Scraper.RowsPerPage)
	}
	if cfg.Scraper.SearchRows < 1 {
		return fmt.Errorf("scraper.search_rows must be >= 1, got %d", cfg.Scraper.SearchRows)
	}
	if cfg.Scraper.MaxArticles < 0 {
		return fmt.Errorf("scraper.max_articles must be >= 0, got %d", cfg.Scraper.MaxArticles)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	validStorageTypes := map[string]bool{
		"jsonl": true, "mongodb": true, "multi": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: jsonl, mongodb, multi)", cfg.Storage.Type)
	}
	if cfg.Storage.BufferSize < 1 {
		return fmt.Errorf("storage.buffer_size must be >= 1, got %d", cfg.Storage.BufferSize)
	}
	if cfg.Storage.Type != "mongodb" && cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path is required for %s storage", cfg.Storage.Type)
	}
	if cfg.Storage.Type != "jsonl" && cfg.Storage.Mongo.URI == "" {
		return fmt.Errorf("storage.mongo.uri is required for %s storage", cfg.Storage.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks that a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
