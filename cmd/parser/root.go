package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aluiziolira/go-product-parser/config"
)

func newRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "product-parser",
		Short: "Collect bookstore catalogue listings and export them to CSV",
		Long: `product-parser fetches catalogue pages from a bookstore demo site one at a
time, extracts title, price, rating, stock status and image for every listing,
prints summary statistics and the best deals, and exports the products.

Settings are read from product-parser.yaml (or --config), then PARSER_*
environment variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to a YAML config file")
	flags.Int("pages", defaults.Pages, "Number of catalogue pages to parse")
	flags.String("base-url", defaults.BaseURL, "Catalogue base URL")
	flags.String("page-path", defaults.PagePath, "Page path template relative to the base URL")
	flags.Duration("delay", defaults.Delay, "Politeness delay between pages")
	flags.Duration("timeout", defaults.Timeout, "Per-request timeout")
	flags.StringP("output", "o", defaults.OutputFile, "Export file path (default products_<timestamp>.csv)")
	flags.String("format", defaults.OutputFormat, "Export format: csv, json, or dual")
	flags.String("report", defaults.ReportFile, "Write a Markdown run report to this path")
	flags.Bool("dedupe", defaults.Dedupe, "Skip products with an already exported URL")
	flags.Float64("max-price", defaults.MaxPrice, "Deal price ceiling")
	flags.Int("min-rating", defaults.MinRating, "Deal rating floor (0-5)")
	flags.Bool("in-stock-only", defaults.InStockOnly, "Only list in-stock products as deals (--in-stock-only=false includes sold-out items)")
	flags.Int("top-deals", defaults.TopDeals, "Number of deals to print")
	flags.Bool("details", defaults.Details, "Fetch each printed deal's product page for description, availability and UPC")
	flags.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", defaults.Verbose, "Enable verbose logging")

	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		if applyErr := apply(); applyErr != nil {
			err = fmt.Errorf("flag --%s: %w", name, applyErr)
		}
	}

	set("pages", func() (e error) { cfg.Pages, e = flags.GetInt("pages"); return })
	set("base-url", func() (e error) { cfg.BaseURL, e = flags.GetString("base-url"); return })
	set("page-path", func() (e error) { cfg.PagePath, e = flags.GetString("page-path"); return })
	set("delay", func() (e error) { cfg.Delay, e = flags.GetDuration("delay"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("output", func() (e error) { cfg.OutputFile, e = flags.GetString("output"); return })
	set("format", func() (e error) {
		format, e := flags.GetString("format")
		cfg.OutputFormat = strings.ToLower(format)
		return e
	})
	set("report", func() (e error) { cfg.ReportFile, e = flags.GetString("report"); return })
	set("dedupe", func() (e error) { cfg.Dedupe, e = flags.GetBool("dedupe"); return })
	set("max-price", func() (e error) { cfg.MaxPrice, e = flags.GetFloat64("max-price"); return })
	set("min-rating", func() (e error) { cfg.MinRating, e = flags.GetInt("min-rating"); return })
	set("in-stock-only", func() (e error) { cfg.InStockOnly, e = flags.GetBool("in-stock-only"); return })
	set("top-deals", func() (e error) { cfg.TopDeals, e = flags.GetInt("top-deals"); return })
	set("details", func() (e error) { cfg.Details, e = flags.GetBool("details"); return })
	set("metrics-addr", func() (e error) { cfg.MetricsAddr, e = flags.GetString("metrics-addr"); return })
	set("verbose", func() (e error) { cfg.Verbose, e = flags.GetBool("verbose"); return })

	return err
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
