package pricing

import (
	"context"
	"strings"
	"time"
)

// Condition is the seller-reported condition of an item.
type Condition string

const (
	ConditionNew     Condition = "New"
	ConditionLikeNew Condition = "Like New"
	ConditionGood    Condition = "Good"
	ConditionUsed    Condition = "Used"
	ConditionFair    Condition = "Fair"
)

// Conditions lists the known conditions from best to worst.
var Conditions = []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionUsed, ConditionFair}

// ParseCondition matches s against the known conditions, ignoring case and
// surrounding whitespace. Unknown values are returned as-is so callers can
// still display them; they price like Good.
func ParseCondition(s string) Condition {
	trimmed := strings.TrimSpace(s)
	for _, c := range Conditions {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return Condition(trimmed)
}

// Known reports whether c is one of the listed conditions.
func (c Condition) Known() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// Multiplier returns the price adjustment applied for the condition.
func (c Condition) Multiplier() float64 {
	switch c {
	case ConditionNew:
		return 1.0
	case ConditionLikeNew:
		return 0.9
	case ConditionGood:
		return 0.8
	case ConditionUsed:
		return 0.7
	case ConditionFair:
		return 0.6
	default:
		return 0.8
	}
}

// Confidence is a coarse indicator of how much data backs an estimate.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ListingSample is an existing listing used as price evidence.
type ListingSample struct {
	Title     string
	Category  string
	Condition Condition
	Price     float64
	CreatedAt time.Time
}

// PriceRange is an inclusive suggested price band in whole dollars.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SimilarListing is a comparable listing shown next to a suggestion.
type SimilarListing struct {
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Condition Condition `json:"condition"`
	DaysAgo   int       `json:"daysAgo"`
}

// PriceAnalysis is the advisory result for one listing.
type PriceAnalysis struct {
	SuggestedPrice  int              `json:"suggestedPrice"`
	PriceRange      PriceRange       `json:"priceRange"`
	Confidence      Confidence       `json:"confidence"`
	Reasoning       string           `json:"reasoning"`
	SimilarListings []SimilarListing `json:"similarListings"`
}

// Request describes the listing being priced.
type Request struct {
	Title       string
	Category    string
	Condition   Condition
	Description string
}

// SampleSource returns the most recent listings of a category, newest first.
type SampleSource interface {
	QueryRecentByCategory(ctx context.Context, category string, limit int) ([]ListingSample, error)
}

// TextGenerator completes a free-form prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
