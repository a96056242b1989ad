// Package analysis computes aggregates and deal lists over collected products.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/aluiziolira/go-product-parser/models"
)

// Summarize aggregates the full product sequence. An empty sequence yields the
// zero Statistics value.
func Summarize(products []models.Product) models.Statistics {
	var stats models.Statistics
	if len(products) == 0 {
		return stats
	}

	var totalPrice float64
	var totalRating int
	stats.PriceMin = products[0].PriceValue
	stats.PriceMax = products[0].PriceValue

	for _, p := range products {
		stats.Count++
		if p.InStock {
			stats.InStock++
		}

		totalPrice += p.PriceValue
		if p.PriceValue < stats.PriceMin {
			stats.PriceMin = p.PriceValue
		}
		if p.PriceValue > stats.PriceMax {
			stats.PriceMax = p.PriceValue
		}
		totalRating += p.Rating
	}

	stats.OutOfStock = stats.Count - stats.InStock
	stats.PriceAvg = totalPrice / float64(stats.Count)
	stats.RatingAvg = float64(totalRating) / float64(stats.Count)
	return stats
}

// FormatPrice renders a value with two decimals and the pound sign.
func FormatPrice(value float64) string {
	return fmt.Sprintf("£%.2f", value)
}

// Stars renders a rating average as a whole number of stars.
func Stars(rating float64) string {
	n := int(math.Round(rating))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n)
}
