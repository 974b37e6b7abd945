package main

import (
	"context"
	"fmt"
	"time"

	"github.com/campusconnect/campusconnect/internal/cache"
	"github.com/campusconnect/campusconnect/internal/config"
	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/session"
	"github.com/campusconnect/campusconnect/internal/storage"
	"github.com/rs/zerolog/log"
)

// app holds the services shared by the commands.
type app struct {
	store      *storage.SQLiteStore
	listings   listings.Store
	cache      cache.Cache
	analyzer   llm.Analyzer
	advisor    *pricing.Advisor
	sessions   *session.Manager
	basePrices pricing.BasePrices

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	log.Info().Str("dbPath", cfg.Storage.DBPath).Msg("store initialized")

	if err := a.initListings(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initCache(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.basePrices = pricing.NewBasePrices()
	if path := cfg.Pricing.BasePricesFile; path != "" {
		a.basePrices, err = pricing.LoadBasePrices(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info().Str("file", path).Int("categories", len(a.basePrices)).Msg("loaded base prices")
	}

	opts := []pricing.Option{pricing.WithBasePrices(a.basePrices)}
	if cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiOpts{
			APIKey:     cfg.Gemini.APIKey,
			Categories: a.basePrices.Categories(),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		generator := llm.NewCachedGenerator(gemini, a.cache, cfg.Cache.TTL).
			WithValidator(pricing.ValidateAIResponse)
		opts = append(opts, pricing.WithGenerator(generator))
		a.analyzer = llm.NewCachedAnalyzer(gemini, store)
		log.Info().Msg("gemini client initialized")
	} else {
		log.Warn().Msg("GEMINI_API_KEY is not set, AI pricing and photo analysis are disabled")
	}

	a.advisor = pricing.NewAdvisor(listings.NewSampleSource(a.listings), opts...)
	a.sessions = session.NewManager(store)

	return a, nil
}

func (a *app) initListings(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.ListingSource {
	case config.SourceFirestore:
		a.listings = listings.NewFirestoreStore(listings.FirestoreOpts{
			ProjectID:  cfg.Firestore.ProjectID,
			Collection: cfg.Firestore.Collection,
			APIKey:     cfg.Firestore.APIKey,
			AuthToken:  cfg.Firestore.AuthToken,
		})
	case config.SourceMongo:
		mongo, err := listings.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		a.listings = mongo
		a.closers = append(a.closers, mongo.Close)
	default:
		a.listings = a.store
	}

	log.Info().Str("source", cfg.Storage.ListingSource).Msg("listing source initialized")
	return nil
}

func (a *app) initCache(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Type == config.CacheRedis {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisOpts{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cache = redisCache
	} else {
		a.cache = cache.NewMemoryCache(time.Minute)
	}
	a.closers = append(a.closers, a.cache.Close)

	log.Info().Str("type", cfg.Cache.Type).Msg("cache initialized")
	return nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil
}
