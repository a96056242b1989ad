package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-product-parser/models"
	"github.com/aluiziolira/go-product-parser/parser"
)

// Product page selectors.
const (
	descriptionSelector = "#product_description ~ p"
	upcSelector         = "table tr:nth-child(1) td"
)

var errEmptyProductURL = errors.New("product has no url")

// FetchDetails requests one product page and reads its description,
// availability text and UPC. Fields missing from the page keep their parser
// defaults. A failed request returns nil and a *FetchError.
func (s *Scraper) FetchDetails(ctx context.Context, productURL string) (*models.ProductDetails, error) {
	if productURL == "" {
		return nil, &FetchError{Category: "other", Err: errEmptyProductURL}
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, &FetchError{URL: productURL, Category: "canceled", Err: ctx.Err()}
	}

	details := &models.ProductDetails{
		URL:          productURL,
		Description:  parser.DefaultDescription,
		Availability: parser.DefaultAvailability,
		UPC:          parser.DefaultUPC,
	}
	reqCtx := colly.NewContext()
	reqCtx.Put(ctxDetailKey, details)

	if category, err := s.request(productURL, reqCtx); err != nil {
		return nil, &FetchError{URL: productURL, Category: category, Err: err}
	}
	slog.Debug("product details parsed", slog.String("url", productURL), slog.String("upc", details.UPC))
	return details, nil
}

// AttachDetails returns a copy of products with Details filled in from each
// product page. Pages are fetched one at a time with the configured delay in
// between; a product whose page fails keeps nil Details. The input slice is
// not modified.
func (s *Scraper) AttachDetails(ctx context.Context, products []models.Product) []models.Product {
	if ctx == nil {
		ctx = context.Background()
	}

	enriched := make([]models.Product, len(products))
	copy(enriched, products)

	for i := range enriched {
		if i > 0 {
			s.sleep(ctx, s.cfg.Delay)
		}
		if err := ctx.Err(); err != nil {
			slog.Info("detail fetching stopped", slog.Int("remaining", len(enriched)-i), slog.Any("reason", err))
			break
		}

		details, err := s.FetchDetails(ctx, enriched[i].URL)
		if err != nil {
			slog.Warn("product details unavailable",
				slog.String("title", truncate(enriched[i].Title, 50)),
				slog.Any("error", err),
			)
			continue
		}
		enriched[i].Details = details
	}
	return enriched
}

func readDetails(doc *goquery.Selection, details *models.ProductDetails) {
	if text := firstText(doc, descriptionSelector); text != "" {
		details.Description = truncate(text, parser.MaxDescriptionLength)
	}
	if text := firstText(doc, stockSelector); text != "" {
		details.Availability = text
	}
	if text := firstText(doc, upcSelector); text != "" {
		details.UPC = text
	}
}

func firstText(doc *goquery.Selection, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
