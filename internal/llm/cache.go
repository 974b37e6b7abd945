package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/campusconnect/campusconnect/internal/storage"
	"github.com/rs/zerolog/log"
)

// VisionCache persists image analysis results by image hash.
type VisionCache interface {
	GetVisionCache(imageHash string) (*storage.VisionCacheEntry, error)
	SetVisionCache(imageHash string, entry *storage.VisionCacheEntry) error
}

// CachedAnalyzer wraps an Analyzer with a persistent cache.
type CachedAnalyzer struct {
	inner Analyzer
	store VisionCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store VisionCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashImages hashes the images in order. Each image is length-prefixed so
// [A,B] and [AB] differ.
func hashImages(images [][]byte) string {
	h := sha256.New()
	for _, img := range images {
		binary.Write(h, binary.LittleEndian, int64(len(img)))
		h.Write(img)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AnalyzeImages implements Analyzer. Cache failures are logged and the
// inner analyzer is used.
func (c *CachedAnalyzer) AnalyzeImages(ctx context.Context, images [][]byte) (*AnalysisResult, error) {
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	hash := hashImages(images)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("vision cache hit")
			return &AnalysisResult{
				Item: &ItemDescription{
					Title:       cached.Title,
					Description: cached.Description,
					Category:    cached.Category,
					Condition:   cached.Condition,
				},
			}, nil
		}
	}

	result, err := c.inner.AnalyzeImages(ctx, images)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Item != nil {
		entry := &storage.VisionCacheEntry{
			Title:       result.Item.Title,
			Description: result.Item.Description,
			Category:    result.Item.Category,
			Condition:   result.Item.Condition,
		}
		if err := c.store.SetVisionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
		}
	}

	return result, nil
}
