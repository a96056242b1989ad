package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Config holds parser configuration.
type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	PagePath      string        `mapstructure:"page_path"`
	Pages         int           `mapstructure:"pages"`
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	OutputFile    string        `mapstructure:"output"`
	OutputFormat  string        `mapstructure:"format"` // csv, json, or dual
	ReportFile    string        `mapstructure:"report"`
	BatchSize     int           `mapstructure:"batch_size"`
	Dedupe        bool          `mapstructure:"dedupe"`
	DedupeMaxSize int           `mapstructure:"dedupe_max_size"`
	MaxPrice      float64       `mapstructure:"max_price"`
	MinRating     int           `mapstructure:"min_rating"`
	InStockOnly   bool          `mapstructure:"in_stock_only"`
	TopDeals      int           `mapstructure:"top_deals"`
	Details       bool          `mapstructure:"details"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	Verbose       bool          `mapstructure:"verbose"`
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://books.toscrape.com",
		PagePath:      "catalogue/page-%d.html",
		Pages:         3,
		Delay:         500 * time.Millisecond,
		Timeout:       10 * time.Second,
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		OutputFile:    "",
		OutputFormat:  "csv",
		ReportFile:    "",
		BatchSize:     64,
		Dedupe:        false,
		DedupeMaxSize: 100000,
		MaxPrice:      15,
		MinRating:     4,
		InStockOnly:   true,
		TopDeals:      5,
		Details:       false,
		MetricsAddr:   "",
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if strings.Count(c.PagePath, "%d") != 1 {
		return fmt.Errorf("page path must contain exactly one %%d verb")
	}
	if c.Pages <= 0 {
		return fmt.Errorf("pages must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Dedupe && c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive when dedupe is enabled")
	}
	if math.IsNaN(c.MaxPrice) || c.MaxPrice < 0 {
		return fmt.Errorf("max price cannot be negative")
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return fmt.Errorf("min rating must be between 0 and 5")
	}
	if c.TopDeals < 0 {
		return fmt.Errorf("top deals cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// PageURL builds the absolute catalogue URL for a 1-based page index.
func (c *Config) PageURL(page int) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(fmt.Sprintf(c.PagePath, page))
	if err != nil {
		return "", fmt.Errorf("parse page path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// DefaultOutputFile names an export file after the run timestamp.
func DefaultOutputFile(format string, now time.Time) string {
	ext := ".csv"
	if format == "json" {
		ext = ".jsonl"
	}
	return "products_" + now.Format("20060102_150405") + ext
}
