package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/solsmith/solsmith/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. It is the alternative to
// the per-user JSON layout for deployments that prefer a single database
// file; the interface seam is also where encryption-at-rest would plug in.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes read-modify-write compositions to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		first_name TEXT NOT NULL,
		language_code TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_interaction INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallets (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(user_id),
		public_key TEXT NOT NULL,
		private_key TEXT NOT NULL,
		pattern_kind TEXT NOT NULL,
		pattern TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, public_key)
	);
	CREATE INDEX IF NOT EXISTS idx_wallets_user ON wallets(user_id, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user profile with wallets in creation order, or
// (nil, nil) when the user is unknown.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, language_code, created_at, last_interaction
		FROM users WHERE user_id = ?`, userID)

	var profile domain.UserProfile
	var createdAt, lastInteraction int64
	err := row.Scan(
		&profile.UserID, &profile.Username, &profile.FirstName,
		&profile.LanguageCode, &createdAt, &lastInteraction,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	profile.CreatedAt = time.Unix(createdAt, 0).UTC()
	profile.LastInteraction = time.Unix(lastInteraction, 0).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT public_key, private_key, pattern_kind, pattern, created_at
		FROM wallets WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.KeyRecord
		var kind string
		var recCreated int64
		if err := rows.Scan(&rec.PublicKey, &rec.PrivateKey, &kind, &rec.Pattern, &recCreated); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		rec.PatternKind = domain.PatternKind(kind)
		rec.CreatedAt = time.Unix(recCreated, 0).UTC()
		profile.Wallets = append(profile.Wallets, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return &profile, nil
}

// PutUser writes the full profile record, replacing the wallet list.
func (s *SQLiteStore) PutUser(ctx context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, profile)
}

func (s *SQLiteStore) put(ctx context.Context, profile *domain.UserProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, language_code, created_at, last_interaction)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			language_code = excluded.language_code,
			last_interaction = excluded.last_interaction`,
		profile.UserID, profile.Username, profile.FirstName, profile.LanguageCode,
		profile.CreatedAt.Unix(), profile.LastInteraction.Unix())
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", profile.UserID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE user_id = ?`, profile.UserID); err != nil {
		return fmt.Errorf("clear wallets for %s: %w", profile.UserID, err)
	}
	for _, rec := range profile.Wallets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, public_key, private_key, pattern_kind, pattern, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			profile.UserID, rec.PublicKey, rec.PrivateKey, string(rec.PatternKind),
			rec.Pattern, rec.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert wallet %s for %s: %w", rec.PublicKey, profile.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user record %s: %w", profile.UserID, err)
	}
	return nil
}

// AppendWallet adds a wallet record, creating the profile via seed when
// absent.
func (s *SQLiteStore) AppendWallet(ctx context.Context, userID string, rec domain.KeyRecord, seed func() *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = seed()
	}
	if !profile.AddWallet(rec) {
		return fmt.Errorf("append wallet for %s: %w", userID, ErrDuplicateWallet)
	}
	profile.LastInteraction = rec.CreatedAt
	return s.put(ctx, profile)
}

// TouchLastInteraction updates the last-interaction timestamp. Unknown users
// are a no-op.
func (s *SQLiteStore) TouchLastInteraction(ctx context.Context, userID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_interaction = ? WHERE user_id = ?`, t.Unix(), userID)
	if err != nil {
		return fmt.Errorf("touch last interaction for %s: %w", userID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
