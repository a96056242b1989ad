package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-product-parser/config"
	"github.com/aluiziolira/go-product-parser/models"
)

const (
	ctxPageKey   = "page"
	ctxBufferKey = "products"
	ctxStartKey  = "start"
	ctxStatusKey = "status"
	ctxDetailKey = "details"
)

// pageBuffer receives the products of one page in document order.
type pageBuffer struct {
	products []models.Product
}

// Scraper fetches catalogue pages one at a time through a synchronous colly
// collector and accumulates the extracted products.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	now   func() time.Time
	sleep func(context.Context, time.Duration)

	requestCount int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	s.configureHandlers()
	return s, nil
}

// Collect fetches pages 1..numPages in order, waiting the configured delay
// between pages. Failed pages are logged and skipped; the run only stops early
// when ctx is cancelled, and then returns what was gathered so far.
func (s *Scraper) Collect(ctx context.Context, numPages int) (*models.RunResult, error) {
	if numPages < 1 {
		return nil, ErrInvalidPageCount
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		Products:     make([]models.Product, 0, numPages*20),
		StartTime:    s.now(),
		ErrorsByType: make(map[string]int),
	}
	requestsBefore := s.requestCount

	for page := 1; page <= numPages; page++ {
		if err := ctx.Err(); err != nil {
			slog.Info("collection stopped", slog.Int("next_page", page), slog.Any("reason", err))
			break
		}

		products, err := s.FetchPage(ctx, page)
		result.PageCount++
		if err != nil {
			var fetchErr *FetchError
			category := "other"
			if errors.As(err, &fetchErr) {
				category = fetchErr.Category
				result.FailedURLs = append(result.FailedURLs, fetchErr.URL)
			}
			result.FailedPages++
			result.ErrorsByType[category]++
			slog.Error("page fetch failed",
				slog.Int("page", page),
				slog.String("category", category),
				slog.Any("error", err),
			)
		}
		result.Products = append(result.Products, products...)

		if page < numPages {
			s.sleep(ctx, s.cfg.Delay)
		}
	}

	result.EndTime = s.now()
	result.RequestCount = s.requestCount - requestsBefore
	slog.Info("collection finished",
		slog.Int("pages", result.PageCount),
		slog.Int("failed_pages", result.FailedPages),
		slog.Int("products", len(result.Products)),
	)
	return result, nil
}

// FetchPage requests a single catalogue page and returns its products in
// document order. Any transport, status or parse failure yields an empty
// slice and a *FetchError.
func (s *Scraper) FetchPage(ctx context.Context, page int) ([]models.Product, error) {
	pageURL, err := s.cfg.PageURL(page)
	if err != nil {
		return nil, &FetchError{Page: page, Category: "other", Err: err}
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, &FetchError{Page: page, URL: pageURL, Category: "canceled", Err: ctx.Err()}
	}

	slog.Info("parsing page", slog.Int("page", page), slog.String("url", pageURL))

	buffer := &pageBuffer{}
	reqCtx := colly.NewContext()
	reqCtx.Put(ctxPageKey, page)
	reqCtx.Put(ctxBufferKey, buffer)

	if category, err := s.request(pageURL, reqCtx); err != nil {
		s.Metrics.IncPage("failed")
		return nil, &FetchError{Page: page, URL: pageURL, Category: category, Err: err}
	}

	s.Metrics.IncPage("ok")
	if len(buffer.products) == 0 {
		slog.Warn("no products found on page", slog.Int("page", page))
	} else {
		slog.Info("page parsed", slog.Int("page", page), slog.Int("products", len(buffer.products)))
	}
	return buffer.products, nil
}

// request issues one synchronous GET and returns the classified failure along
// with its error_type label.
func (s *Scraper) request(target string, reqCtx *colly.Context) (string, error) {
	err := s.collector.Request(http.MethodGet, target, nil, reqCtx, nil)
	if err == nil {
		return "", nil
	}
	status, _ := reqCtx.GetAny(ctxStatusKey).(int)
	classified := classifyError(err, status)
	category := errorTypeLabel(classified)
	s.Metrics.IncError(category)
	return category, classified
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStartKey, time.Now())
		s.requestCount++
		s.Metrics.IncRequest("started")
	})

	s.collector.OnResponse(func(r *colly.Response) {
		s.Metrics.IncRequest("completed")
		if start, ok := r.Request.Ctx.GetAny(ctxStartKey).(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r == nil {
			return
		}
		if r.Ctx != nil {
			r.Ctx.Put(ctxStatusKey, r.StatusCode)
		}
		if r.StatusCode >= http.StatusBadRequest {
			slog.Debug("non-success response",
				slog.Int("status", r.StatusCode),
				slog.String("url", requestURL(r.Request)),
			)
		}
	})

	s.collector.OnHTML(listingSelector, func(e *colly.HTMLElement) {
		buffer, ok := e.Request.Ctx.GetAny(ctxBufferKey).(*pageBuffer)
		if !ok {
			return
		}
		product := ExtractProduct(e, s.now())
		buffer.products = append(buffer.products, product)
		s.Metrics.IncProducts()
		slog.Debug("product parsed",
			slog.String("title", truncate(product.Title, 50)),
			slog.String("price", product.Price),
			slog.String("rating", strings.Repeat("★", product.Rating)),
		)
	})

	s.collector.OnHTML("html", func(e *colly.HTMLElement) {
		details, ok := e.Request.Ctx.GetAny(ctxDetailKey).(*models.ProductDetails)
		if !ok {
			return
		}
		readDetails(e.DOM, details)
	})
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		// colly rejects anything but 200-202, so a surviving status is a failure.
		if err != nil || statusCode < 200 || statusCode >= 300 {
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func requestURL(r *colly.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
