package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-product-parser/analysis"
	"github.com/aluiziolira/go-product-parser/config"
	"github.com/aluiziolira/go-product-parser/models"
	"github.com/aluiziolira/go-product-parser/pipeline"
	"github.com/aluiziolira/go-product-parser/report"
	"github.com/aluiziolira/go-product-parser/scraper"
)

const separator = "============================================================"

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, level := newLogger(cfg.Verbose, out)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	fmt.Fprintln(out, separator)
	fmt.Fprintln(out, "  PRODUCT PARSER")
	fmt.Fprintln(out, separator)

	slog.Info("starting parse",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.Pages),
		slog.Duration("delay", cfg.Delay),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	stopMetrics := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer stopMetrics()

	result, err := s.Collect(ctx, cfg.Pages)
	if err != nil {
		return fmt.Errorf("collecting pages: %w", err)
	}
	fmt.Fprintf(out, "\n[DONE] Total products collected: %d\n", len(result.Products))

	stats := analysis.Summarize(result.Products)
	printStatistics(out, stats)

	criteria := analysis.DealCriteria{
		MaxPrice:    cfg.MaxPrice,
		MinRating:   cfg.MinRating,
		InStockOnly: cfg.InStockOnly,
	}
	deals := analysis.FindDeals(result.Products, criteria)
	top := analysis.TopDeals(deals, cfg.TopDeals)
	if cfg.Details && len(top) > 0 {
		top = s.AttachDetails(ctx, top)
	}
	printDeals(out, criteria, top)

	outputFile := ""
	if len(result.Products) == 0 {
		slog.Warn("no products to save")
	} else {
		outputFile = cfg.OutputFile
		if outputFile == "" {
			outputFile = config.DefaultOutputFile(cfg.OutputFormat, time.Now())
		}
		opts := pipeline.Options{
			BatchSize:     cfg.BatchSize,
			Dedupe:        cfg.Dedupe,
			DedupeMaxSize: cfg.DedupeMaxSize,
		}
		if _, err := pipeline.ExportFormat(result.Products, cfg.OutputFormat, outputFile, opts); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n[SAVED] Data exported to: %s\n", outputFile)
	}

	if cfg.ReportFile != "" {
		summary := report.Summary{
			BaseURL:    cfg.BaseURL,
			Result:     result,
			Statistics: stats,
			Criteria:   criteria,
			Deals:      deals,
			Details:    collectDetails(top),
			OutputFile: outputFile,
		}
		if err := writeReport(cfg.ReportFile, summary); err != nil {
			return err
		}
		fmt.Fprintf(out, "[REPORT] Summary written to: %s\n", cfg.ReportFile)
	}

	printRun(out, result)
	fmt.Fprintln(out, "\n[COMPLETE] Parser finished successfully!")
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func writeReport(path string, summary report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.NewMarkdownWriter(f).Write(summary); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func printStatistics(out io.Writer, stats models.Statistics) {
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "  STATISTICS")
	fmt.Fprintln(out, separator)
	fmt.Fprintf(out, "  Total products:    %d\n", stats.Count)
	fmt.Fprintf(out, "  In stock:          %d\n", stats.InStock)
	fmt.Fprintf(out, "  Out of stock:      %d\n", stats.OutOfStock)
	fmt.Fprintf(out, "  Average price:     %s\n", analysis.FormatPrice(stats.PriceAvg))
	fmt.Fprintf(out, "  Price range:       %s - %s\n", analysis.FormatPrice(stats.PriceMin), analysis.FormatPrice(stats.PriceMax))
	fmt.Fprintf(out, "  Average rating:    %s (%.1f/5)\n", analysis.Stars(stats.RatingAvg), stats.RatingAvg)
	fmt.Fprintln(out, separator)
}

func printDeals(out io.Writer, criteria analysis.DealCriteria, top []models.Product) {
	if len(top) == 0 {
		return
	}
	ceiling := "any price"
	if !math.IsInf(criteria.MaxPrice, 1) {
		ceiling = "under " + analysis.FormatPrice(criteria.MaxPrice)
	}
	stock := ""
	if criteria.InStockOnly {
		stock = ", in stock"
	}
	fmt.Fprintf(out, "\n[DEALS] Best deals (%s, %d+ stars%s):\n", ceiling, criteria.MinRating, stock)
	for _, deal := range top {
		fmt.Fprintf(out, "  * %s - %s - %s\n", shorten(deal.Title, 40), deal.Price, strings.Repeat("★", deal.Rating))
		if d := deal.Details; d != nil {
			fmt.Fprintf(out, "      UPC %s | %s\n", d.UPC, d.Availability)
			fmt.Fprintf(out, "      %s\n", d.Description)
		}
	}
}

func collectDetails(products []models.Product) []models.ProductDetails {
	var details []models.ProductDetails
	for _, p := range products {
		if p.Details != nil {
			details = append(details, *p.Details)
		}
	}
	return details
}

func printRun(out io.Writer, result *models.RunResult) {
	fmt.Fprintf(out, "\n  Pages:         %d (%d failed)\n", result.PageCount, result.FailedPages)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(out, "  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Fprintf(out, "  Duration:      %s\n", formatDuration(result.EndTime.Sub(result.StartTime)))
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func newLogger(verbose bool, out io.Writer) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
