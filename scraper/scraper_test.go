package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-product-parser/config"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "rejected 2xx", err: errors.New("No Content"), statusCode: http.StatusNoContent, expected: "http_status"},
		{name: "partial content", err: errors.New("Partial Content"), statusCode: http.StatusPartialContent, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestCollectFetchesPagesInOrder(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()

	var visited []int
	for page := 1; page <= 3; page++ {
		page := page
		body := buildCatalogPage(page, 20)
		transport.RegisterResponder("GET", pageURL(t, cfg, page), func(req *http.Request) (*http.Response, error) {
			visited = append(visited, page)
			return htmlResponse(body), nil
		})
	}

	s := newTestScraper(t, cfg, transport)
	result, err := s.Collect(context.Background(), 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if fmt.Sprint(visited) != "[1 2 3]" {
		t.Fatalf("visited pages = %v, want [1 2 3]", visited)
	}
	if got := transport.GetTotalCallCount(); got != 3 {
		t.Fatalf("fetch attempts = %d, want 3", got)
	}
	if result.PageCount != 3 || result.FailedPages != 0 {
		t.Fatalf("pages=%d failed=%d, want 3/0", result.PageCount, result.FailedPages)
	}
	if result.RequestCount != 3 {
		t.Fatalf("request count = %d, want 3", result.RequestCount)
	}
	if got := len(result.Products); got != 60 {
		t.Fatalf("products = %d, want 60", got)
	}
	for i, product := range result.Products {
		want := fmt.Sprintf("Book %d", i+1)
		if product.Title != want {
			t.Fatalf("product %d title = %q, want %q", i, product.Title, want)
		}
		if i > 0 && product.ParsedAt.Before(result.Products[i-1].ParsedAt) {
			t.Fatalf("parsed_at decreased at index %d", i)
		}
	}

	first := result.Products[0]
	if first.URL != "http://example.test/catalogue/book-1/index.html" {
		t.Fatalf("url = %q", first.URL)
	}
	if first.ImageURL != "http://example.test/media/cache/book-1.jpg" {
		t.Fatalf("image url = %q", first.ImageURL)
	}
	if first.Price != "£1.00" || first.PriceValue != 1.0 {
		t.Fatalf("price = %q/%v, want £1.00/1", first.Price, first.PriceValue)
	}
	if first.Rating != 2 || !first.InStock {
		t.Fatalf("rating=%d in_stock=%v, want 2/true", first.Rating, first.InStock)
	}
}

func TestCollectContinuesAfterFailedPage(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		category  string
	}{
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, ""),
			category:  "http_status",
		},
		{
			name:      "not found",
			responder: httpmock.NewStringResponder(http.StatusNotFound, ""),
			category:  "not_found",
		},
		{
			name:      "rate limited",
			responder: httpmock.NewStringResponder(http.StatusTooManyRequests, ""),
			category:  "rate_limited",
		},
		{
			name:      "forbidden",
			responder: httpmock.NewStringResponder(http.StatusForbidden, ""),
			category:  "forbidden",
		},
		{
			name:      "no content",
			responder: httpmock.NewStringResponder(http.StatusNoContent, ""),
			category:  "http_status",
		},
		{
			name:      "transport error",
			responder: httpmock.NewErrorResponder(errors.New("connection reset")),
			category:  "other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", pageURL(t, cfg, 1), tt.responder)
			transport.RegisterResponder("GET", pageURL(t, cfg, 2), htmlResponder(buildCatalogPage(2, 20)))

			s := newTestScraper(t, cfg, transport)
			result, err := s.Collect(context.Background(), 2)
			if err != nil {
				t.Fatalf("collect: %v", err)
			}

			if got := len(result.Products); got != 20 {
				t.Fatalf("products = %d, want 20", got)
			}
			if result.FailedPages != 1 {
				t.Fatalf("failed pages = %d, want 1", result.FailedPages)
			}
			if got := result.ErrorsByType[tt.category]; got != 1 {
				t.Fatalf("errors by type = %v, want one %q", result.ErrorsByType, tt.category)
			}
			if len(result.FailedURLs) != 1 || result.FailedURLs[0] != pageURL(t, cfg, 1) {
				t.Fatalf("failed urls = %v", result.FailedURLs)
			}
		})
	}
}

func TestFetchPageReturnsFetchError(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", pageURL(t, cfg, 51), httpmock.NewStringResponder(http.StatusNotFound, ""))

	s := newTestScraper(t, cfg, transport)
	products, err := s.FetchPage(context.Background(), 51)
	if len(products) != 0 {
		t.Fatalf("products = %d, want 0", len(products))
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Page != 51 || fetchErr.Category != "not_found" {
		t.Fatalf("fetch error = %+v", fetchErr)
	}
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound in chain, got %v", err)
	}
}

func TestCollectEmptyPageDoesNotStopRun(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", pageURL(t, cfg, 1), htmlResponder(buildCatalogPage(1, 0)))
	transport.RegisterResponder("GET", pageURL(t, cfg, 2), htmlResponder(buildCatalogPage(2, 5)))

	s := newTestScraper(t, cfg, transport)
	result, err := s.Collect(context.Background(), 2)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 2 {
		t.Fatalf("fetch attempts = %d, want 2", got)
	}
	if got := len(result.Products); got != 5 {
		t.Fatalf("products = %d, want 5", got)
	}
	if result.FailedPages != 0 {
		t.Fatalf("failed pages = %d, want 0", result.FailedPages)
	}
}

func TestCollectWaitsBetweenPages(t *testing.T) {
	cfg := testConfig()
	cfg.Delay = 750 * time.Millisecond
	transport := httpmock.NewMockTransport()
	for page := 1; page <= 3; page++ {
		transport.RegisterResponder("GET", pageURL(t, cfg, page), htmlResponder(buildCatalogPage(page, 1)))
	}

	s := newTestScraper(t, cfg, transport)
	var delays []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	}

	if _, err := s.Collect(context.Background(), 3); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(delays) != 2 {
		t.Fatalf("delays = %v, want two pauses", delays)
	}
	for _, d := range delays {
		if d != cfg.Delay {
			t.Fatalf("delay = %v, want %v", d, cfg.Delay)
		}
	}
}

func TestCollectInvalidPageCount(t *testing.T) {
	s := newTestScraper(t, testConfig(), httpmock.NewMockTransport())
	for _, n := range []int{0, -1} {
		if _, err := s.Collect(context.Background(), n); !errors.Is(err, ErrInvalidPageCount) {
			t.Fatalf("Collect(%d) error = %v, want ErrInvalidPageCount", n, err)
		}
	}
}

func TestCollectStopsWhenContextCancelled(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	for page := 1; page <= 3; page++ {
		transport.RegisterResponder("GET", pageURL(t, cfg, page), htmlResponder(buildCatalogPage(page, 2)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestScraper(t, cfg, transport)
	s.sleep = func(context.Context, time.Duration) {
		cancel()
	}

	result, err := s.Collect(ctx, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("fetch attempts = %d, want 1", got)
	}
	if got := len(result.Products); got != 2 {
		t.Fatalf("products = %d, want 2", got)
	}
}

func TestCollectReturnsFreshSequencePerRun(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", pageURL(t, cfg, 1), htmlResponder(buildCatalogPage(1, 3)))

	s := newTestScraper(t, cfg, transport)
	first, err := s.Collect(context.Background(), 1)
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	second, err := s.Collect(context.Background(), 1)
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if len(first.Products) != 3 || len(second.Products) != 3 {
		t.Fatalf("products = %d/%d, want 3/3", len(first.Products), len(second.Products))
	}
	first.Products[0].Title = "mutated"
	if second.Products[0].Title != "Book 1" {
		t.Fatalf("runs share backing storage")
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.Delay = 0
	cfg.Timeout = 2 * time.Second
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, transport http.RoundTripper) *Scraper {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)
	s.sleep = func(context.Context, time.Duration) {}
	return s
}

func pageURL(t *testing.T, cfg *config.Config, page int) string {
	t.Helper()
	u, err := cfg.PageURL(page)
	if err != nil {
		t.Fatalf("page url: %v", err)
	}
	return u
}

func htmlResponse(body string) *http.Response {
	resp := httpmock.NewStringResponse(http.StatusOK, body)
	resp.Header.Set("Content-Type", "text/html")
	return resp
}

func htmlResponder(body string) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		return htmlResponse(body), nil
	}
}

func buildCatalogPage(page, count int) string {
	var builder strings.Builder
	builder.WriteString("<html><body><section><ol class=\"row\">")

	for i := 1; i <= count; i++ {
		id := (page-1)*20 + i
		builder.WriteString("<li><article class=\"product_pod\">")
		fmt.Fprintf(&builder, "<div class=\"image_container\"><a href=\"book-%d/index.html\"><img src=\"../media/cache/book-%d.jpg\" class=\"thumbnail\"></a></div>", id, id)
		builder.WriteString("<p class=\"star-rating Two\"></p>")
		fmt.Fprintf(&builder, "<h3><a href=\"book-%d/index.html\" title=\"Book %d\">Book %d</a></h3>", id, id, id)
		builder.WriteString("<div class=\"product_price\">")
		fmt.Fprintf(&builder, "<p class=\"price_color\">&pound;%0.2f</p>", float64(id))
		builder.WriteString("<p class=\"instock availability\"><i class=\"icon-ok\"></i>\n    In stock\n</p>")
		builder.WriteString("</div></article></li>")
	}

	builder.WriteString("</ol></section></body></html>")
	return builder.String()
}
