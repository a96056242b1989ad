// Package parser normalises raw listing fields into typed product values.
package parser

import (
	"strconv"
	"strings"
	"unicode"
)

// Defaults substituted when a listing field cannot be extracted.
const (
	DefaultTitle      = "Unknown"
	DefaultPrice      = ""
	DefaultPriceValue = 0.0
	DefaultRating     = 0
	DefaultInStock    = false
	DefaultURL        = ""
	DefaultImageURL   = ""
)

// Defaults substituted when a product page field cannot be extracted.
const (
	DefaultDescription  = "No description"
	DefaultAvailability = "Unknown"
	DefaultUPC          = "N/A"
)

// MaxRating is the highest star count a listing can carry.
const MaxRating = 5

// MaxDescriptionLength is how many characters of a product description are
// kept before it is cut and suffixed with "...".
const MaxDescriptionLength = 200

// ParsePrice strips leading currency markers and converts the remainder to a
// float. Unparseable or negative input yields DefaultPriceValue.
func ParsePrice(price string) float64 {
	cleaned := NormalizePrice(price)
	if cleaned == "" {
		return DefaultPriceValue
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return DefaultPriceValue
	}
	return value
}

// NormalizePrice removes everything before the first digit along with
// thousands separators and surrounding whitespace.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	start := strings.IndexFunc(price, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	})
	if start < 0 {
		return ""
	}
	price = strings.ReplaceAll(price[start:], ",", "")
	return strings.TrimSpace(price)
}

// IsInStock reports whether the availability text marks the item as in stock.
func IsInStock(text string) bool {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if text == "" || strings.Contains(text, "out of stock") {
		return false
	}
	return strings.Contains(text, "in stock")
}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return DefaultRating
	}
}

// ClampRating keeps a star count within [0, MaxRating].
func ClampRating(rating int) int {
	if rating < 0 {
		return 0
	}
	if rating > MaxRating {
		return MaxRating
	}
	return rating
}
