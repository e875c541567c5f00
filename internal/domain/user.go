// Package domain contains core domain types for the SOL SMITH bot.
package domain

import (
	"time"
)

// UserProfile holds identity and wallet history for one chat participant.
// Wallets keep insertion order; the numbered list shown to the user is
// derived from that order.
type UserProfile struct {
	UserID          string      `json:"user_id"`
	Username        string      `json:"username"`
	FirstName       string      `json:"first_name"`
	LanguageCode    string      `json:"language_code"`
	CreatedAt       time.Time   `json:"created_at"`
	LastInteraction time.Time   `json:"last_interaction"`
	Wallets         []KeyRecord `json:"wallets"`
}

// NewUserProfile creates a profile with timestamps set to now.
func NewUserProfile(userID, username, firstName, languageCode string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:          userID,
		Username:        username,
		FirstName:       firstName,
		LanguageCode:    languageCode,
		CreatedAt:       now,
		LastInteraction: now,
	}
}

// DisplayName returns the name used when addressing the user.
func (u *UserProfile) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}

// HasWallet reports whether a wallet with the given public key already exists.
func (u *UserProfile) HasWallet(publicKey string) bool {
	for _, w := range u.Wallets {
		if w.PublicKey == publicKey {
			return true
		}
	}
	return false
}

// AddWallet appends a wallet record, skipping duplicates.
// Returns false if a wallet with the same public key is already present.
func (u *UserProfile) AddWallet(rec KeyRecord) bool {
	if u.HasWallet(rec.PublicKey) {
		return false
	}
	u.Wallets = append(u.Wallets, rec)
	return true
}
