package analysis

import (
	"math"
	"sort"

	"github.com/aluiziolira/go-product-parser/models"
)

// DealCriteria bounds the products FindDeals returns.
type DealCriteria struct {
	MaxPrice    float64
	MinRating   int
	InStockOnly bool
}

// DefaultDealCriteria places no constraint on either dimension.
func DefaultDealCriteria() DealCriteria {
	return DealCriteria{
		MaxPrice:  math.Inf(1),
		MinRating: 0,
	}
}

// Match reports whether p satisfies the criteria.
func (c DealCriteria) Match(p models.Product) bool {
	if p.PriceValue > c.MaxPrice || p.Rating < c.MinRating {
		return false
	}
	return !c.InStockOnly || p.InStock
}

// FindDeals returns the matching products in their original order.
func FindDeals(products []models.Product, criteria DealCriteria) []models.Product {
	deals := make([]models.Product, 0)
	for _, p := range products {
		if criteria.Match(p) {
			deals = append(deals, p)
		}
	}
	return deals
}

// TopDeals returns up to n of the cheapest deals, ties keeping their order.
func TopDeals(deals []models.Product, n int) []models.Product {
	if n <= 0 {
		return nil
	}
	sorted := make([]models.Product, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriceValue < sorted[j].PriceValue
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
