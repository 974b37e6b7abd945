package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Import listings from a JSON array into the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := readListings(f)
		if err != nil {
			return err
		}

		store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer store.Close()

		imported, err := seedListings(cmd.Context(), store, items)
		if err != nil {
			return err
		}
		log.Info().
			Int("imported", imported).
			Int("skipped", len(items)-imported).
			Str("dbPath", cfg.Storage.DBPath).
			Msg("seeded listings")
		return nil
	},
}

func readListings(r io.Reader) ([]listings.Listing, error) {
	var items []listings.Listing
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse listings: %w", err)
	}
	return items, nil
}

type listingSaver interface {
	SaveListing(ctx context.Context, l *listings.Listing) error
}

// seedListings saves items and returns how many were stored. Listings that
// fail validation are logged and skipped; any other error stops the import.
func seedListings(ctx context.Context, store listingSaver, items []listings.Listing) (int, error) {
	imported := 0
	for i := range items {
		err := store.SaveListing(ctx, &items[i])
		switch {
		case err == nil:
			imported++
		case errors.Is(err, listings.ErrMissingTitle), errors.Is(err, listings.ErrMissingCategory):
			log.Warn().Err(err).Int("index", i).Str("id", items[i].ID).Msg("skipping listing")
		default:
			return imported, err
		}
	}
	return imported, nil
}
