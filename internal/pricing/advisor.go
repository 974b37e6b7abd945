// Package pricing suggests prices for new marketplace listings from recent
// comparable listings, falling back to a generative model and finally to a
// fixed per-category table.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// SampleLimit is how many recent same-category listings are considered.
	SampleLimit = 50

	// MaxSimilarListings caps the comparable listings returned to the caller.
	MaxSimilarListings = 5
)

// Advisor produces price suggestions. It keeps no state between calls and is
// safe for concurrent use.
type Advisor struct {
	source     SampleSource
	generator  TextGenerator
	basePrices BasePrices
	now        func() time.Time
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithGenerator enables the AI fallback tier.
func WithGenerator(g TextGenerator) Option {
	return func(a *Advisor) { a.generator = g }
}

// WithBasePrices replaces the static fallback table.
func WithBasePrices(bp BasePrices) Option {
	return func(a *Advisor) {
		if bp != nil {
			a.basePrices = bp
		}
	}
}

// WithClock sets the time source used for listing ages.
func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

// NewAdvisor creates an advisor reading samples from source. A nil source
// makes every call use the static fallback.
func NewAdvisor(source SampleSource, opts ...Option) *Advisor {
	a := &Advisor{
		source:     source,
		basePrices: NewBasePrices(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze suggests a price for req. It always returns a usable result:
// failures of the sample source or the generator only lower the confidence.
func (a *Advisor) Analyze(ctx context.Context, req Request) PriceAnalysis {
	logger := log.With().Str("category", req.Category).Str("title", req.Title).Logger()

	if a.source == nil {
		logger.Debug().Msg("no sample source configured, using static price")
		return staticEstimate(a.basePrices, req)
	}

	samples, err := a.source.QueryRecentByCategory(ctx, req.Category, SampleLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch price samples, using static price")
		return staticEstimate(a.basePrices, req)
	}

	keywords := Keywords(req.Title)
	similar := similarSamples(samples, keywords)

	var prices []float64
	for _, s := range similar {
		if s.Price > 0 {
			prices = append(prices, s.Price)
		}
	}

	if len(prices) > 0 {
		result := a.statisticalEstimate(req, similar, prices)
		logger.Info().
			Int("samples", len(samples)).
			Int("similar", len(similar)).
			Int("suggestedPrice", result.SuggestedPrice).
			Str("confidence", string(result.Confidence)).
			Msg("price suggested from similar listings")
		return result
	}

	if a.generator != nil {
		result, err := a.aiEstimate(ctx, req, promptContext(samples, similar))
		if err == nil {
			logger.Info().
				Int("samples", len(samples)).
				Int("suggestedPrice", result.SuggestedPrice).
				Msg("price suggested by ai")
			return result
		}
		logger.Warn().Err(err).Msg("ai price estimate failed, using static price")
	}

	result := staticEstimate(a.basePrices, req)
	logger.Info().
		Int("samples", len(samples)).
		Int("suggestedPrice", result.SuggestedPrice).
		Msg("price suggested from category table")
	return result
}

// similarSamples returns the samples whose title shares a keyword with the
// query, newest first.
func similarSamples(samples []ListingSample, keywords []string) []ListingSample {
	var similar []ListingSample
	for _, s := range samples {
		if MatchesAny(s.Title, keywords) {
			similar = append(similar, s)
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].CreatedAt.After(similar[j].CreatedAt)
	})
	return similar
}

func (a *Advisor) statisticalEstimate(req Request, similar []ListingSample, prices []float64) PriceAnalysis {
	stats := computeStats(prices)
	multiplier := req.Condition.Multiplier()

	now := a.now()
	listings := make([]SimilarListing, 0, MaxSimilarListings)
	for i, s := range similar {
		if i == MaxSimilarListings {
			break
		}
		listings = append(listings, SimilarListing{
			Title:     s.Title,
			Price:     s.Price,
			Condition: s.Condition,
			DaysAgo:   daysBetween(s.CreatedAt, now),
		})
	}

	return PriceAnalysis{
		SuggestedPrice: roundPrice((stats.mean + stats.median) / 2 * multiplier),
		PriceRange: PriceRange{
			Min: roundPrice(stats.min * rangeLowFactor),
			Max: roundPrice(stats.max * rangeHighFactor),
		},
		Confidence: ConfidenceFor(stats.count),
		Reasoning: fmt.Sprintf("Based on %d similar %s listings with an average price of $%d, adjusted for %s condition (x%.1f).",
			stats.count, categoryLabel(req.Category), roundPrice(stats.mean), conditionLabel(req.Condition), multiplier),
		SimilarListings: listings,
	}
}

func (a *Advisor) aiEstimate(ctx context.Context, req Request, examples []ListingSample) (PriceAnalysis, error) {
	text, err := a.generator.Generate(ctx, buildPrompt(req, examples))
	if err != nil {
		return PriceAnalysis{}, fmt.Errorf("generate: %w", err)
	}

	est, err := parseAIResponse(text)
	if err != nil {
		return PriceAnalysis{}, fmt.Errorf("parse response: %w", err)
	}

	return PriceAnalysis{
		SuggestedPrice:  est.suggested,
		PriceRange:      PriceRange{Min: est.min, Max: est.max},
		Confidence:      ConfidenceMedium,
		Reasoning:       est.reasoning,
		SimilarListings: []SimilarListing{},
	}, nil
}

// promptContext picks the listings quoted to the model: similar ones first,
// then the rest of the category, newest first within each group.
func promptContext(samples, similar []ListingSample) []ListingSample {
	examples := make([]ListingSample, 0, maxPromptSamples)
	examples = append(examples, similar...)
	if len(examples) >= maxPromptSamples {
		return examples[:maxPromptSamples]
	}

	seen := make(map[ListingSample]bool, len(similar))
	for _, s := range similar {
		seen[s] = true
	}
	for _, s := range samples {
		if len(examples) == maxPromptSamples {
			break
		}
		if !seen[s] {
			examples = append(examples, s)
		}
	}
	return examples
}

// daysBetween returns whole days elapsed from t to now, never negative.
func daysBetween(t, now time.Time) int {
	if t.IsZero() || t.After(now) {
		return 0
	}
	return int(now.Sub(t) / (24 * time.Hour))
}
