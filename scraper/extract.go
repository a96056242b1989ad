package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-product-parser/models"
	"github.com/aluiziolira/go-product-parser/parser"
)

// Listing selectors for the catalogue markup.
const (
	listingSelector = "article.product_pod"
	titleSelector   = "h3 a"
	priceSelector   = ".price_color"
	ratingSelector  = ".star-rating"
	stockSelector   = ".availability"
)

// ExtractProduct builds a Product from one listing element. Each field is read
// independently; anything missing or malformed falls back to its default from
// the parser package, so extraction always yields a record.
func ExtractProduct(e *colly.HTMLElement, now time.Time) models.Product {
	product := models.Product{
		Title:      parser.DefaultTitle,
		Price:      parser.DefaultPrice,
		PriceValue: parser.DefaultPriceValue,
		Rating:     parser.DefaultRating,
		InStock:    parser.DefaultInStock,
		URL:        parser.DefaultURL,
		ImageURL:   parser.DefaultImageURL,
		ParsedAt:   now,
	}
	if e == nil {
		return product
	}

	if title := extractTitle(e); title != "" {
		product.Title = title
	}
	if href := strings.TrimSpace(e.ChildAttr(titleSelector, "href")); href != "" {
		product.URL = absoluteURL(e, href)
	}
	if price := strings.TrimSpace(e.ChildText(priceSelector)); price != "" {
		product.Price = price
		product.PriceValue = parser.ParsePrice(price)
	}
	product.Rating = extractRating(e.DOM)
	product.InStock = parser.IsInStock(e.ChildText(stockSelector))
	if src := extractImageSource(e); src != "" {
		product.ImageURL = absoluteURL(e, src)
	}

	return product
}

func extractTitle(e *colly.HTMLElement) string {
	if title := strings.TrimSpace(e.ChildAttr(titleSelector, "title")); title != "" {
		return title
	}
	return strings.TrimSpace(e.ChildText(titleSelector))
}

func extractRating(sel *goquery.Selection) int {
	if sel == nil {
		return parser.DefaultRating
	}
	classes, ok := sel.Find(ratingSelector).First().Attr("class")
	if !ok {
		return parser.DefaultRating
	}
	for _, class := range strings.Fields(classes) {
		if rating := parser.RatingToNumeric(class); rating != parser.DefaultRating {
			return parser.ClampRating(rating)
		}
	}
	return parser.DefaultRating
}

func extractImageSource(e *colly.HTMLElement) string {
	if src := strings.TrimSpace(e.ChildAttr("img.thumbnail", "src")); src != "" {
		return src
	}
	return strings.TrimSpace(e.ChildAttr("img", "src"))
}

func absoluteURL(e *colly.HTMLElement, ref string) string {
	if e.Request == nil || e.Request.URL == nil {
		return ref
	}
	return e.Request.AbsoluteURL(ref)
}
