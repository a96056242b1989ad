package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-product-parser/models"
	"github.com/aluiziolira/go-product-parser/parser"
)

const detailURL = "http://example.test/catalogue/a-light-in-the-attic_1000/index.html"

func TestFetchDetails(t *testing.T) {
	atLimit := strings.Repeat("x", parser.MaxDescriptionLength)
	overLimit := atLimit + "y"

	tests := []struct {
		name         string
		body         string
		description  string
		availability string
		upc          string
	}{
		{
			name: "complete page",
			body: productPage(
				"It's hard to imagine a world without A Light in the Attic.",
				"In stock (22 available)",
				"a897fe39b1053632",
			),
			description:  "It's hard to imagine a world without A Light in the Attic.",
			availability: "In stock (22 available)",
			upc:          "a897fe39b1053632",
		},
		{
			name:         "missing fields",
			body:         "<html><body><article class=\"product_page\"><h1>Bare</h1></article></body></html>",
			description:  parser.DefaultDescription,
			availability: parser.DefaultAvailability,
			upc:          parser.DefaultUPC,
		},
		{
			name:         "description at limit",
			body:         productPage(atLimit, "In stock", "u1"),
			description:  atLimit,
			availability: "In stock",
			upc:          "u1",
		},
		{
			name:         "description over limit",
			body:         productPage(overLimit, "Out of stock", "u2"),
			description:  atLimit + "...",
			availability: "Out of stock",
			upc:          "u2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", detailURL, htmlResponder(tt.body))

			s := newTestScraper(t, testConfig(), transport)
			details, err := s.FetchDetails(context.Background(), detailURL)
			if err != nil {
				t.Fatalf("fetch details: %v", err)
			}

			if details.URL != detailURL {
				t.Errorf("url = %q, want %q", details.URL, detailURL)
			}
			if details.Description != tt.description {
				t.Errorf("description = %q, want %q", details.Description, tt.description)
			}
			if details.Availability != tt.availability {
				t.Errorf("availability = %q, want %q", details.Availability, tt.availability)
			}
			if details.UPC != tt.upc {
				t.Errorf("upc = %q, want %q", details.UPC, tt.upc)
			}
		})
	}
}

func TestFetchDetailsFailure(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL, httpmock.NewStringResponder(http.StatusNotFound, ""))

	s := newTestScraper(t, testConfig(), transport)
	details, err := s.FetchDetails(context.Background(), detailURL)
	if details != nil {
		t.Fatalf("details = %+v, want nil", details)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.URL != detailURL || fetchErr.Category != "not_found" || fetchErr.Page != 0 {
		t.Fatalf("fetch error = %+v", fetchErr)
	}
	if !strings.HasPrefix(err.Error(), "fetch "+detailURL) {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestFetchDetailsEmptyURL(t *testing.T) {
	s := newTestScraper(t, testConfig(), httpmock.NewMockTransport())
	details, err := s.FetchDetails(context.Background(), "")

	var fetchErr *FetchError
	if details != nil || !errors.As(err, &fetchErr) {
		t.Fatalf("got %+v, %v; want nil and *FetchError", details, err)
	}
}

func TestAttachDetails(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	okURL := "http://example.test/catalogue/book-1/index.html"
	missingURL := "http://example.test/catalogue/book-2/index.html"
	transport.RegisterResponder("GET", okURL, htmlResponder(productPage("First book.", "In stock", "upc-1")))
	transport.RegisterResponder("GET", missingURL, httpmock.NewStringResponder(http.StatusNotFound, ""))

	s := newTestScraper(t, cfg, transport)
	var delays int
	s.sleep = func(context.Context, time.Duration) { delays++ }

	products := []models.Product{
		{Title: "Book 1", URL: okURL},
		{Title: "Book 2", URL: missingURL},
		{Title: "No link"},
	}
	enriched := s.AttachDetails(context.Background(), products)

	if len(enriched) != len(products) {
		t.Fatalf("enriched = %d, want %d", len(enriched), len(products))
	}
	if enriched[0].Details == nil || enriched[0].Details.UPC != "upc-1" {
		t.Fatalf("first details = %+v", enriched[0].Details)
	}
	if enriched[1].Details != nil || enriched[2].Details != nil {
		t.Fatalf("failed products should keep nil details: %+v, %+v", enriched[1].Details, enriched[2].Details)
	}
	for i, product := range products {
		if product.Details != nil {
			t.Fatalf("input product %d was modified", i)
		}
	}
	if got := transport.GetTotalCallCount(); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
	if delays != 2 {
		t.Fatalf("delays = %d, want 2", delays)
	}
}

func TestAttachDetailsStopsWhenContextCancelled(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL, htmlResponder(productPage("d", "In stock", "u")))

	s := newTestScraper(t, testConfig(), transport)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enriched := s.AttachDetails(ctx, []models.Product{{URL: detailURL}, {URL: detailURL}})
	if transport.GetTotalCallCount() != 0 {
		t.Fatalf("requests = %d, want 0", transport.GetTotalCallCount())
	}
	if enriched[0].Details != nil || enriched[1].Details != nil {
		t.Fatalf("expected no details after cancellation")
	}
}

func productPage(description, availability, upc string) string {
	return fmt.Sprintf(`<html><body><article class="product_page">
<div class="product_main"><h1>A Light in the Attic</h1>
<p class="instock availability">
    <i class="icon-ok"></i>
    %s
</p></div>
<div id="product_description" class="sub-header"><h2>Product Description</h2></div>
<p>%s</p>
<table class="table table-striped">
<tr><th>UPC</th><td>%s</td></tr>
<tr><th>Product Type</th><td>Books</td></tr>
</table>
</article></body></html>`, availability, description, upc)
}
