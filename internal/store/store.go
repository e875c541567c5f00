// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solsmith/solsmith/internal/config"
	"github.com/solsmith/solsmith/internal/domain"
)

// ErrDuplicateWallet is returned by AppendWallet when the profile already
// holds a wallet with the same public key.
var ErrDuplicateWallet = errors.New("wallet with this public key already exists")

// Repository defines the interface for persisting user profiles and their
// generated wallets. A miss is not an error: GetUser returns (nil, nil) for
// an unknown user.
//
// AppendWallet and TouchLastInteraction are get+mutate+put compositions, not
// separately atomic across processes; concurrent writers for the same user
// resolve as last-write-wins with whole-record replacement.
type Repository interface {
	// GetUser retrieves a user profile, or (nil, nil) if none exists.
	GetUser(ctx context.Context, userID string) (*domain.UserProfile, error)

	// PutUser writes the full profile record.
	PutUser(ctx context.Context, profile *domain.UserProfile) error

	// AppendWallet adds a wallet record to the user's profile, creating the
	// profile via seed when none exists yet. Returns ErrDuplicateWallet if
	// the public key is already present.
	AppendWallet(ctx context.Context, userID string, rec domain.KeyRecord, seed func() *domain.UserProfile) error

	// TouchLastInteraction updates the last-interaction timestamp for an
	// existing profile. Unknown users are a no-op.
	TouchLastInteraction(ctx context.Context, userID string, t time.Time) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases storage resources.
	Close() error
}

// Open selects and initializes the configured storage backend.
func Open(cfg *config.Config) (Repository, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		repo, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	default:
		repo, err := NewFileStore(cfg.UsersDir())
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return repo, nil
	}
}
