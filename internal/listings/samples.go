package listings

import (
	"context"
	"fmt"

	"github.com/campusconnect/campusconnect/internal/pricing"
)

// SampleSource adapts a Store to the price advisor. Removed listings are not
// used as evidence.
type SampleSource struct {
	store Store
}

// NewSampleSource creates a sample source reading from store.
func NewSampleSource(store Store) *SampleSource {
	return &SampleSource{store: store}
}

// QueryRecentByCategory implements pricing.SampleSource.
func (s *SampleSource) QueryRecentByCategory(ctx context.Context, category string, limit int) ([]pricing.ListingSample, error) {
	docs, err := s.store.RecentByCategory(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	samples := make([]pricing.ListingSample, 0, len(docs))
	for _, l := range docs {
		if l.Status == StatusRemoved {
			continue
		}
		samples = append(samples, l.Sample())
	}
	return samples, nil
}
