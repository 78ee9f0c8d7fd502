package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ScraperVersion is stamped on every serialized article.
const ScraperVersion = "0.2.0"

// DefaultMetagridURL is the cross-reference lookup template.
const DefaultMetagridURL = "https://api.metagrid.ch/widget/dhs/person/<article_id>.json?lang=<language>&include=true"

// Languages are the editions of the encyclopedia. An empty language means
// the server default (German).
var Languages = []string{"fr", "de", "it"}

// IsLanguage reports whether lang is one of the three editions.
func IsLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Config is the root configuration for dhscrape.
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"  yaml:"scraper"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Wikidata WikidataConfig `mapstructure:"wikidata" yaml:"wikidata"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// ScraperConfig controls the crawl controller and field parsers.
type ScraperConfig struct {
	BaseURL         string        `mapstructure:"base_url"         yaml:"base_url"`
	Language        string        `mapstructure:"language"         yaml:"language"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	RowsPerPage     int           `mapstructure:"rows_per_page"    yaml:"rows_per_page"`
	SearchRows      int           `mapstructure:"search_rows"      yaml:"search_rows"`
	MaxArticles     int           `mapstructure:"max_articles"     yaml:"max_articles"`
	ParseArticles   bool          `mapstructure:"parse_articles"   yaml:"parse_articles"`
	SkipDuplicates  bool          `mapstructure:"skip_duplicates"  yaml:"skip_duplicates"`
	ForceLanguage   string        `mapstructure:"force_language"   yaml:"force_language"`
	DropPages       bool          `mapstructure:"drop_pages"       yaml:"drop_pages"`
	TextSeparator   string        `mapstructure:"text_separator"   yaml:"text_separator"`
	MetagridURL     string        `mapstructure:"metagrid_url"     yaml:"metagrid_url"`
	CheckpointPath  string        `mapstructure:"checkpoint_path"  yaml:"checkpoint_path"`
}

// FetcherConfig controls the request fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Type               string      `mapstructure:"type"                 yaml:"type"`
	OutputPath         string      `mapstructure:"output_path"          yaml:"output_path"`
	BufferSize         int         `mapstructure:"buffer_size"          yaml:"buffer_size"`
	IncludePageContent bool        `mapstructure:"include_page_content" yaml:"include_page_content"`
	Mongo              MongoConfig `mapstructure:"mongo"                yaml:"mongo"`
}

// MongoConfig controls the MongoDB backend.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// WikidataConfig points to the cross-reference CSV export.
type WikidataConfig struct {
	LinksFile string `mapstructure:"links_file" yaml:"links_file"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with the values the public site expects.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:         "https://hls-dhs-dss.ch",
			Language:        "fr",
			PolitenessDelay: 500 * time.Millisecond,
			RowsPerPage:     20,
			SearchRows:      100,
			SkipDuplicates:  true,
			TextSeparator:   "\n\n",
			MetagridURL:     DefaultMetagridURL,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			UserAgent:       "dhscrape/" + Version,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
			MaxRetries:      3,
			RetryDelay:      time.Second,
		},
		Storage: StorageConfig{
			Type:       "jsonl",
			OutputPath: "./output/articles.jsonl",
			BufferSize: 100,
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "dhs",
				Collection: "articles",
				Timeout:    30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
