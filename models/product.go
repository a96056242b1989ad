// Package models defines data structures for the parser.
package models

import "time"

// Product is a single catalogue listing captured from a page.
type Product struct {
	Title      string    `csv:"title" json:"title"`
	Price      string    `csv:"price" json:"price"`
	PriceValue float64   `csv:"price_value" json:"price_value"`
	Rating     int       `csv:"rating" json:"rating"`
	InStock    bool      `csv:"in_stock" json:"in_stock"`
	URL        string    `csv:"url" json:"url"`
	ImageURL   string    `csv:"image_url" json:"image_url"`
	ParsedAt   time.Time `csv:"parsed_at" json:"parsed_at"`

	// Details is only set when the product page was fetched as well.
	Details *ProductDetails `csv:"-" json:"details,omitempty"`
}

// ProductDetails holds the fields read from a single product page.
type ProductDetails struct {
	URL          string `json:"url"`
	Description  string `json:"description"`
	Availability string `json:"availability"`
	UPC          string `json:"upc"`
}

// Statistics aggregates a collected product sequence.
type Statistics struct {
	Count      int     `json:"count"`
	InStock    int     `json:"in_stock"`
	OutOfStock int     `json:"out_of_stock"`
	PriceMin   float64 `json:"price_min"`
	PriceAvg   float64 `json:"price_avg"`
	PriceMax   float64 `json:"price_max"`
	RatingAvg  float64 `json:"rating_avg"`
}

// RunResult holds the overall result of a collection run
type RunResult struct {
	Products     []Product
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	FailedPages  int
	FailedURLs   []string
	ErrorsByType map[string]int
	RequestCount int
}
