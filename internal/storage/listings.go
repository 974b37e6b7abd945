package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/google/uuid"
)

const listingColumns = `id, title, description, category, condition, price, university,
	seller_id, seller_rating, rating_count, status, created_at`

// SaveListing validates and stores a listing, replacing any listing with the
// same id. A missing id or creation time is filled in.
func (s *SQLiteStore) SaveListing(ctx context.Context, l *listings.Listing) error {
	if err := l.Normalize(); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// created_at is stored and sorted as text, so every row is written in UTC.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			condition = excluded.condition,
			price = excluded.price,
			university = excluded.university,
			seller_id = excluded.seller_id,
			seller_rating = excluded.seller_rating,
			rating_count = excluded.rating_count,
			status = excluded.status,
			created_at = excluded.created_at
	`, l.ID, l.Title, l.Description, l.Category, string(l.Condition), l.Price, l.University,
		l.SellerID, l.SellerRating, l.RatingCount, l.Status, l.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// GetListing retrieves a listing by id.
// Returns nil, nil if the listing doesn't exist.
func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*listings.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}
	return &l, nil
}

// RecentByCategory implements listings.Store.
func (s *SQLiteStore) RecentByCategory(ctx context.Context, category string, limit int) ([]listings.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE (? = '' OR category = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, category, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var result []listings.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result = append(result, l)
	}

	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(row scanner) (listings.Listing, error) {
	var l listings.Listing
	var condition string
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Category, &condition, &l.Price, &l.University,
		&l.SellerID, &l.SellerRating, &l.RatingCount, &l.Status, &l.CreatedAt)
	l.Condition = pricing.Condition(condition)
	return l, err
}
