package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBasePrice is used for categories missing from the base price table.
const DefaultBasePrice = 30

const (
	staticRangeLowFactor  = 0.7
	staticRangeHighFactor = 1.5
)

// DefaultBasePrices are typical prices per marketplace category in USD.
var DefaultBasePrices = map[string]float64{
	"Electronics":       200,
	"Textbooks":         50,
	"Services":          25,
	"Furniture":         100,
	"Academic Supplies": 20,
}

// BasePrices maps a category to the price used when no comparable data exists.
type BasePrices map[string]float64

// NewBasePrices returns a copy of the default table.
func NewBasePrices() BasePrices {
	bp := make(BasePrices, len(DefaultBasePrices))
	for k, v := range DefaultBasePrices {
		bp[k] = v
	}
	return bp
}

// Lookup returns the base price for category, falling back to DefaultBasePrice.
func (bp BasePrices) Lookup(category string) float64 {
	if price, ok := bp[category]; ok {
		return price
	}
	return DefaultBasePrice
}

// Categories returns the categories with a base price, sorted by name.
func (bp BasePrices) Categories() []string {
	categories := make([]string, 0, len(bp))
	for c := range bp {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// LoadBasePrices reads per-category overrides from a YAML mapping such as
//
//	Electronics: 180
//	Bikes: 120
//
// and merges them over the defaults. Non-positive values are rejected.
func LoadBasePrices(path string) (BasePrices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read base prices: %w", err)
	}

	var overrides map[string]float64
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse base prices: %w", err)
	}

	bp := NewBasePrices()
	for category, price := range overrides {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		if price <= 0 {
			return nil, fmt.Errorf("base price for %q must be positive, got %v", category, price)
		}
		bp[category] = price
	}
	return bp, nil
}

// staticEstimate is the terminal fallback. It never fails.
func staticEstimate(basePrices BasePrices, req Request) PriceAnalysis {
	price := roundPrice(basePrices.Lookup(req.Category) * req.Condition.Multiplier())

	return PriceAnalysis{
		SuggestedPrice: price,
		PriceRange: PriceRange{
			Min: roundPrice(float64(price) * staticRangeLowFactor),
			Max: roundPrice(float64(price) * staticRangeHighFactor),
		},
		Confidence:      ConfidenceLow,
		Reasoning:       fmt.Sprintf("Estimated from typical %s prices, adjusted for %s condition. Not enough comparable listings were found, so treat this as a starting point.", categoryLabel(req.Category), conditionLabel(req.Condition)),
		SimilarListings: []SimilarListing{},
	}
}

func categoryLabel(category string) string {
	if strings.TrimSpace(category) == "" {
		return "marketplace"
	}
	return category
}

func conditionLabel(c Condition) string {
	if c == "" {
		return "unspecified"
	}
	return string(c)
}
