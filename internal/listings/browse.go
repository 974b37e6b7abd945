package listings

import (
	"sort"
	"strings"

	"github.com/campusconnect/campusconnect/internal/pricing"
)

// Rating prior used when weighting seller ratings: a seller with few reviews
// is pulled towards priorRating as if they had priorWeight extra reviews.
const (
	priorRating = 3.5
	priorWeight = 5.0
)

// DefaultPageSize is used when a page size is not given.
const DefaultPageSize = 20

// MaxPageSize caps a single page.
const MaxPageSize = 100

// Filter narrows a set of listings. Zero values disable a criterion.
type Filter struct {
	Category   string
	University string
	Condition  pricing.Condition
	MinPrice   float64
	MaxPrice   float64
	Query      string
	// IncludeInactive keeps sold and removed listings.
	IncludeInactive bool
}

// Matches reports whether l passes every criterion of f.
func (f Filter) Matches(l Listing) bool {
	if !f.IncludeInactive && l.Status != StatusActive {
		return false
	}
	if f.Category != "" && !strings.EqualFold(l.Category, f.Category) {
		return false
	}
	if f.University != "" && !strings.EqualFold(l.University, f.University) {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.MinPrice > 0 && l.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.Price > f.MaxPrice {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
	}
	return true
}

// Apply returns the listings matching f, preserving order.
func (f Filter) Apply(listings []Listing) []Listing {
	var out []Listing
	for _, l := range listings {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}

// WeightedRating is the seller rating shrunk towards the prior by review count.
func WeightedRating(l Listing) float64 {
	n := float64(l.RatingCount)
	return (priorRating*priorWeight + l.SellerRating*n) / (priorWeight + n)
}

// SortByRating orders listings by weighted seller rating, newest first on ties.
func SortByRating(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		ri, rj := WeightedRating(listings[i]), WeightedRating(listings[j])
		if ri != rj {
			return ri > rj
		}
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}

// Page is one page of listings.
type Page struct {
	Items    []Listing
	Page     int
	PageSize int
	Total    int
}

// Paginate returns page (1-based) of listings. Out-of-range pages are empty.
func Paginate(listings []Listing, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	p := Page{Items: []Listing{}, Page: page, PageSize: pageSize, Total: len(listings)}
	// compare page counts before multiplying so a huge page cannot overflow
	pages := (len(listings) + pageSize - 1) / pageSize
	if page > pages {
		return p
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(listings) {
		end = len(listings)
	}
	p.Items = listings[start:end]
	return p
}
