// Package listings holds the marketplace listing document, the clients that
// read listings from the hosted document stores and the browse logic shared
// by the API and the bot.
package listings

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/campusconnect/campusconnect/internal/pricing"
)

// Listing statuses.
const (
	StatusActive  = "active"
	StatusSold    = "sold"
	StatusRemoved = "removed"
)

// Listing is a marketplace listing as stored in the document store.
type Listing struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Condition    pricing.Condition `json:"condition"`
	Price        float64           `json:"price"`
	University   string            `json:"university"`
	SellerID     string            `json:"sellerId"`
	SellerRating float64           `json:"sellerRating"`
	RatingCount  int               `json:"ratingCount"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}

var (
	ErrMissingTitle    = errors.New("listing has no title")
	ErrMissingCategory = errors.New("listing has no category")
)

// Store reads listings from a document store.
type Store interface {
	// RecentByCategory returns up to limit listings of category, newest first.
	// An empty category matches every category.
	RecentByCategory(ctx context.Context, category string, limit int) ([]Listing, error)
}

// Normalize validates a decoded listing in place. Documents without a title
// or category are rejected; every other field is defaulted rather than left
// in a state that would poison price arithmetic.
func (l *Listing) Normalize() error {
	l.Title = strings.TrimSpace(l.Title)
	l.Category = strings.TrimSpace(l.Category)
	l.Description = strings.TrimSpace(l.Description)
	l.University = strings.TrimSpace(l.University)

	if l.Title == "" {
		return ErrMissingTitle
	}
	if l.Category == "" {
		return ErrMissingCategory
	}

	l.Condition = pricing.ParseCondition(string(l.Condition))

	if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price < 0 {
		l.Price = 0
	}

	if math.IsNaN(l.SellerRating) || l.SellerRating < 0 {
		l.SellerRating = 0
	}
	if l.SellerRating > 5 {
		l.SellerRating = 5
	}
	if l.RatingCount < 0 {
		l.RatingCount = 0
	}

	switch strings.ToLower(strings.TrimSpace(l.Status)) {
	case StatusSold:
		l.Status = StatusSold
	case StatusRemoved:
		l.Status = StatusRemoved
	default:
		l.Status = StatusActive
	}

	return nil
}

// Sample converts the listing into price evidence.
func (l Listing) Sample() pricing.ListingSample {
	return pricing.ListingSample{
		Title:     l.Title,
		Category:  l.Category,
		Condition: l.Condition,
		Price:     l.Price,
		CreatedAt: l.CreatedAt,
	}
}
