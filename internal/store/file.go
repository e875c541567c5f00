package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/solsmith/solsmith/internal/domain"
)

// FileStore implements Repository with one human-readable JSON file per user
// under its base directory. Every update is a whole-file rewrite through a
// temp file and rename, so readers never observe a torn record.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the base directory if needed and returns a file-backed
// repository.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create users directory: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// userLock returns the mutex serializing writes for one user.
func (s *FileStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// GetUser retrieves a user profile, or (nil, nil) if none exists.
func (s *FileStore) GetUser(_ context.Context, userID string) (*domain.UserProfile, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user record %s: %w", userID, err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode user record %s: %w", userID, err)
	}
	return &profile, nil
}

// PutUser writes the full profile record atomically.
func (s *FileStore) PutUser(_ context.Context, profile *domain.UserProfile) error {
	return s.write(profile)
}

func (s *FileStore) write(profile *domain.UserProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user record %s: %w", profile.UserID, err)
	}

	target := s.path(profile.UserID)
	tmp, err := os.CreateTemp(s.dir, profile.UserID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write user record %s: %w", profile.UserID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close user record %s: %w", profile.UserID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace user record %s: %w", profile.UserID, err)
	}
	return nil
}

// AppendWallet adds a wallet record, creating the profile via seed when
// absent.
func (s *FileStore) AppendWallet(ctx context.Context, userID string, rec domain.KeyRecord, seed func() *domain.UserProfile) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

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
	return s.write(profile)
}

// TouchLastInteraction updates the last-interaction timestamp. Unknown users
// are a no-op.
func (s *FileStore) TouchLastInteraction(ctx context.Context, userID string, t time.Time) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	profile, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	profile.LastInteraction = t
	return s.write(profile)
}

// Ping verifies the base directory is still accessible.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("stat users directory: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
