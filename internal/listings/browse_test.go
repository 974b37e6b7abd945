package listings

import (
	"math"
	"testing"
	"time"

	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/stretchr/testify/assert"
)

func browseFixture() []Listing {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []Listing{
		{ID: "1", Title: "Organic Chemistry textbook", Category: "Textbooks", Condition: pricing.ConditionGood, Price: 40, University: "State U", Status: StatusActive, SellerRating: 4.8, RatingCount: 20, CreatedAt: base},
		{ID: "2", Title: "Desk lamp", Description: "LED, works great", Category: "Furniture", Condition: pricing.ConditionUsed, Price: 15, University: "State U", Status: StatusActive, SellerRating: 5, RatingCount: 1, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Title: "Calculus textbook", Category: "Textbooks", Condition: pricing.ConditionNew, Price: 90, University: "Tech", Status: StatusActive, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Title: "Biology textbook", Category: "Textbooks", Condition: pricing.ConditionFair, Price: 10, University: "State U", Status: StatusSold, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(listings []Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter hides sold", Filter{}, []string{"1", "2", "3"}},
		{"include inactive", Filter{IncludeInactive: true}, []string{"1", "2", "3", "4"}},
		{"category ignores case", Filter{Category: "textbooks"}, []string{"1", "3"}},
		{"university", Filter{University: "state u"}, []string{"1", "2"}},
		{"condition", Filter{Condition: pricing.ConditionNew}, []string{"3"}},
		{"price band", Filter{MinPrice: 15, MaxPrice: 40}, []string{"1", "2"}},
		{"query matches description", Filter{Query: "led"}, []string{"2"}},
		{"query matches title", Filter{Query: "TEXTBOOK", University: "Tech"}, []string{"3"}},
		{"no match", Filter{Query: "bicycle"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(browseFixture())))
		})
	}
}

func TestSortByRating(t *testing.T) {
	listings := browseFixture()[:3]
	SortByRating(listings)

	// 4.8 over 20 reviews beats a single 5-star review; unrated sellers sit at the prior.
	assert.Equal(t, []string{"1", "2", "3"}, ids(listings))
	assert.InDelta(t, 3.5, WeightedRating(listings[2]), 0.0001)

	tied := []Listing{
		{ID: "old", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "new", CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	SortByRating(tied)
	assert.Equal(t, []string{"new", "old"}, ids(tied))
}

func TestPaginate(t *testing.T) {
	all := browseFixture()

	p := Paginate(all, 1, 3)
	assert.Equal(t, []string{"1", "2", "3"}, ids(p.Items))
	assert.Equal(t, 4, p.Total)

	p = Paginate(all, 2, 3)
	assert.Equal(t, []string{"4"}, ids(p.Items))

	p = Paginate(all, 5, 3)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)

	p = Paginate(all, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Len(t, p.Items, 4)

	p = Paginate(all, 1, 1000)
	assert.Equal(t, MaxPageSize, p.PageSize)

	p = Paginate(all, math.MaxInt/20+2, 20)
	assert.Empty(t, p.Items)
	assert.Equal(t, 4, p.Total)

	p = Paginate(all, math.MaxInt, MaxPageSize)
	assert.Empty(t, p.Items)

	p = Paginate(nil, 1, 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, 0, p.Total)
}
