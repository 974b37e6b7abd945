package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadListings(t *testing.T) {
	items, err := readListings(strings.NewReader(`[
		{"id": "1", "title": "Desk", "category": "Furniture", "condition": "good", "price": 60},
		{"title": "Calculator", "category": "Electronics", "price": 25.5, "status": "sold"}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Desk", items[0].Title)
	assert.Equal(t, 25.5, items[1].Price)

	_, err = readListings(strings.NewReader(`{"title": "not an array"}`))
	assert.ErrorContains(t, err, "failed to parse listings")
}

func TestSeedListings(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	items := []listings.Listing{
		{ID: "1", Title: "Desk", Category: "Furniture", Price: 60},
		{ID: "2", Category: "Furniture", Price: 10},
		{ID: "3", Title: "Lamp", Price: 10},
		{ID: "4", Title: "Chair", Category: "Furniture", Condition: "used", Price: 25},
	}

	imported, err := seedListings(ctx, store, items)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	got, err := store.RecentByCategory(ctx, "Furniture", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	chair, err := store.GetListing(ctx, "4")
	require.NoError(t, err)
	require.NotNil(t, chair)
	assert.Equal(t, pricing.ConditionUsed, chair.Condition)
}

func TestAnalyzeCommand(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CAMPUSCONNECT_DB_PATH", ":memory:")
	t.Setenv("LISTING_SOURCE", "sqlite")
	t.Setenv("CACHE_TYPE", "memory")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("BOT_TOKEN", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"analyze", "--title", "Graphing calculator", "--category", "Electronics", "--condition", "new"})
	require.NoError(t, rootCmd.Execute())

	var analysis pricing.PriceAnalysis
	require.NoError(t, json.Unmarshal(out.Bytes(), &analysis))
	assert.Equal(t, 200, analysis.SuggestedPrice)
	assert.Equal(t, pricing.PriceRange{Min: 140, Max: 300}, analysis.PriceRange)
	assert.Equal(t, pricing.ConfidenceLow, analysis.Confidence)
	assert.Empty(t, analysis.SimilarListings)
}
