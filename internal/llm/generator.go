package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/campusconnect/campusconnect/internal/cache"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/rs/zerolog/log"
)

// DefaultGenerationTTL is how long generated text is reused.
const DefaultGenerationTTL = 6 * time.Hour

const generationKeyPrefix = "llm:generate:"

// CachedGenerator memoizes a TextGenerator. Identical prompts within the TTL
// return the stored text without calling the model.
type CachedGenerator struct {
	inner    pricing.TextGenerator
	cache    cache.Cache
	ttl      time.Duration
	validate func(text string) error
}

// NewCachedGenerator wraps inner. A non-positive ttl uses DefaultGenerationTTL.
func NewCachedGenerator(inner pricing.TextGenerator, c cache.Cache, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = DefaultGenerationTTL
	}
	return &CachedGenerator{inner: inner, cache: c, ttl: ttl}
}

// WithValidator makes the generator return, but not store, text that
// validate rejects, so the next identical prompt asks the model again.
func (g *CachedGenerator) WithValidator(validate func(text string) error) *CachedGenerator {
	g.validate = validate
	return g
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return generationKeyPrefix + hex.EncodeToString(sum[:])
}

// Generate implements pricing.TextGenerator. Errors from the inner generator
// and text failing the validator are not cached.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)

	cached, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		log.Debug().Str("key", key).Msg("generation cache hit")
		return string(cached), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		log.Warn().Err(err).Msg("failed to read generation cache")
	}

	text, err := g.inner.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if g.validate != nil {
		if err := g.validate(text); err != nil {
			log.Warn().Err(err).Msg("generated text rejected, not caching")
			return text, nil
		}
	}

	if err := g.cache.Set(ctx, key, []byte(text), g.ttl); err != nil {
		log.Warn().Err(err).Msg("failed to cache generated text")
	}

	return text, nil
}
