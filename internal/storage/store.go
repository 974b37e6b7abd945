package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// StoredSession is a persisted user session.
type StoredSession struct {
	ID         string
	UserID     string
	University string
	StartedAt  time.Time
	// EndedAt is zero while the session is open.
	EndedAt time.Time
}

// Active reports whether the session has not been ended.
func (s StoredSession) Active() bool {
	return s.EndedAt.IsZero()
}

// VisionCacheEntry is a cached image analysis result.
type VisionCacheEntry struct {
	Title       string
	Description string
	Category    string
	Condition   string
}

// SQLiteStore keeps listings, sessions and the image analysis cache in SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath. Use ":memory:"
// for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a busy timeout keep the API and the bot from tripping over each other
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	listingsQuery := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		condition TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		university TEXT NOT NULL DEFAULT '',
		seller_id TEXT NOT NULL DEFAULT '',
		seller_rating REAL NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(listingsQuery); err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_listings_category_created ON listings (category, created_at DESC)"); err != nil {
		return fmt.Errorf("failed to create listings index: %w", err)
	}

	sessionsQuery := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		university TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);
	`
	if _, err := s.db.Exec(sessionsQuery); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	visionCacheQuery := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT,
		condition TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(visionCacheQuery); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession stores or updates a session.
func (s *SQLiteStore) SaveSession(session *StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endedAt sql.NullTime
	if !session.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: session.EndedAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, user_id, university, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			university = excluded.university,
			ended_at = excluded.ended_at
	`, session.ID, session.UserID, session.University, session.StartedAt.UTC(), endedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by id.
// Returns nil, nil if the session doesn't exist.
func (s *SQLiteStore) GetSession(id string) (*StoredSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var session StoredSession
	var endedAt sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, user_id, university, started_at, ended_at FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.UserID, &session.University, &session.StartedAt, &endedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if endedAt.Valid {
		session.EndedAt = endedAt.Time
	}
	return &session, nil
}

// EndSession marks a session as ended. Ending an unknown or already ended
// session is a no-op.
func (s *SQLiteStore) EndSession(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// ActiveSessions returns every session that has not been ended, oldest first.
func (s *SQLiteStore) ActiveSessions() ([]StoredSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, user_id, university, started_at FROM sessions WHERE ended_at IS NULL ORDER BY started_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []StoredSession
	for rows.Next() {
		var session StoredSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.University, &session.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// GetVisionCache retrieves a cached image analysis by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionCache(imageHash string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	var category, condition sql.NullString
	err := s.db.QueryRow(
		"SELECT title, description, category, condition FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&entry.Title, &entry.Description, &category, &condition)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	entry.Category = category.String
	entry.Condition = condition.String

	return &entry, nil
}

// SetVisionCache stores an image analysis result.
func (s *SQLiteStore) SetVisionCache(imageHash string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (image_hash, title, description, category, condition)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			condition = excluded.condition,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, entry.Title, entry.Description, entry.Category, entry.Condition)
	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}
