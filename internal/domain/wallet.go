package domain

import (
	"fmt"
	"time"
)

// PatternKind states whether a desired address must start or end with the
// user-supplied pattern.
type PatternKind string

const (
	// PatternPrefix matches addresses that begin with the pattern.
	PatternPrefix PatternKind = "prefix"
	// PatternSuffix matches addresses that end with the pattern.
	PatternSuffix PatternKind = "suffix"
)

// Valid reports whether k is a known pattern kind.
func (k PatternKind) Valid() bool {
	return k == PatternPrefix || k == PatternSuffix
}

// GrindFlag returns the solana-keygen grind flag for this pattern kind.
func (k PatternKind) GrindFlag() (string, error) {
	switch k {
	case PatternPrefix:
		return "--starts-with", nil
	case PatternSuffix:
		return "--ends-with", nil
	default:
		return "", fmt.Errorf("unknown pattern kind %q", string(k))
	}
}

// KeyRecord is one generated keypair. Immutable once created.
type KeyRecord struct {
	PublicKey   string      `json:"public_key"`
	PrivateKey  string      `json:"private_key"`
	CreatedAt   time.Time   `json:"created_at"`
	PatternKind PatternKind `json:"pattern_kind"`
	Pattern     string      `json:"pattern"`
}
