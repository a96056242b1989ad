package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PARSER_PAGES.
const EnvPrefix = "PARSER"

// Load reads configuration from an optional YAML file and the environment.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags
// are applied by the caller on top of the returned value.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("product-parser")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("page_path", cfg.PagePath)
	v.SetDefault("pages", cfg.Pages)
	v.SetDefault("delay", cfg.Delay)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("output", cfg.OutputFile)
	v.SetDefault("format", cfg.OutputFormat)
	v.SetDefault("report", cfg.ReportFile)
	v.SetDefault("batch_size", cfg.BatchSize)
	v.SetDefault("dedupe", cfg.Dedupe)
	v.SetDefault("dedupe_max_size", cfg.DedupeMaxSize)
	v.SetDefault("max_price", cfg.MaxPrice)
	v.SetDefault("min_rating", cfg.MinRating)
	v.SetDefault("in_stock_only", cfg.InStockOnly)
	v.SetDefault("top_deals", cfg.TopDeals)
	v.SetDefault("details", cfg.Details)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("verbose", cfg.Verbose)
}
