// Package grinder runs the external solana-keygen utility for one vanity
// address request and reconciles its on-disk artifact into a key record.
package grinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/solsmith/solsmith/internal/domain"
)

// Sentinel errors for the generation taxonomy.
var (
	// ErrExternalFailure indicates the keygen subprocess could not be
	// spawned or exited non-zero.
	ErrExternalFailure = errors.New("external keygen failed")
	// ErrNoArtifact indicates the subprocess reported success but no
	// usable keypair artifact was found.
	ErrNoArtifact = errors.New("no keypair artifact produced")
	// ErrInvalidPattern indicates the requested pattern cannot appear in a
	// base58 address.
	ErrInvalidPattern = errors.New("pattern contains characters not valid in a Solana address")
)

// base58Alphabet is the character set valid in Solana addresses.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidatePattern checks that a pattern could occur in a base58 address.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	for _, r := range pattern {
		if !strings.ContainsRune(base58Alphabet, r) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, r)
		}
	}
	return nil
}

// Runner invokes solana-keygen grind, one isolated scratch directory per
// request so concurrent generations cannot collide on artifact discovery.
type Runner struct {
	bin     string
	workDir string
}

// NewRunner creates a runner. workDir is the scratch root; it is created on
// first use.
func NewRunner(bin, workDir string) *Runner {
	return &Runner{bin: bin, workDir: workDir}
}

// Generate runs the keygen utility for exactly one match and returns the
// resulting key record. The subprocess is killed when ctx is canceled, and
// the scratch directory (including any produced artifact) is always removed
// before returning.
func (r *Runner) Generate(ctx context.Context, kind domain.PatternKind, pattern string) (domain.KeyRecord, error) {
	if err := ValidatePattern(pattern); err != nil {
		return domain.KeyRecord{}, err
	}
	flag, err := kind.GrindFlag()
	if err != nil {
		return domain.KeyRecord{}, err
	}

	if err := os.MkdirAll(r.workDir, 0o700); err != nil {
		return domain.KeyRecord{}, fmt.Errorf("create work directory: %w", err)
	}
	// One request id per invocation keeps artifact discovery unambiguous
	// when several chats grind concurrently.
	scratch := filepath.Join(r.workDir, uuid.NewString())
	if err := os.Mkdir(scratch, 0o700); err != nil {
		return domain.KeyRecord{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			slog.Warn("failed to remove scratch directory", "dir", scratch, "error", rmErr)
		}
	}()

	started := time.Now()
	cmd := exec.CommandContext(ctx, r.bin, "grind", flag, pattern+":1")
	cmd.Dir = scratch
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return domain.KeyRecord{}, fmt.Errorf("generation canceled: %w", ctx.Err())
		}
		slog.Error("keygen subprocess failed",
			"pattern", pattern, "kind", string(kind), "error", err,
			"output", truncate(string(output), 512))
		return domain.KeyRecord{}, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}

	rec, err := r.collectArtifact(scratch, kind, pattern)
	if err != nil {
		return domain.KeyRecord{}, err
	}

	slog.Info("vanity keypair generated",
		"public_key", rec.PublicKey, "kind", string(kind),
		"pattern", pattern, "duration", time.Since(started))
	return rec, nil
}

// collectArtifact locates the keypair file the utility wrote, reads it, and
// deletes it. The raw file content is the stored secret; the public key comes
// from the file name and is cross-checked against the keypair itself.
func (r *Runner) collectArtifact(dir string, kind domain.PatternKind, pattern string) (domain.KeyRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("scan scratch directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		publicKey := strings.TrimSuffix(name, ".json")
		if !matchesPattern(publicKey, kind, pattern) {
			continue
		}

		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return domain.KeyRecord{}, fmt.Errorf("read artifact %s: %w", name, err)
		}
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("failed to remove artifact after reading", "path", path, "error", rmErr)
		}

		// Advisory only: the utility is trusted to write consistent
		// artifacts, so a mismatch is logged but not fatal.
		if err := verifyArtifact(publicKey, raw); err != nil {
			slog.Warn("keypair artifact failed verification", "public_key", publicKey, "error", err)
		}

		return domain.KeyRecord{
			PublicKey:   publicKey,
			PrivateKey:  strings.TrimSpace(string(raw)),
			CreatedAt:   time.Now().UTC(),
			PatternKind: kind,
			Pattern:     pattern,
		}, nil
	}

	return domain.KeyRecord{}, fmt.Errorf("%w: pattern %q", ErrNoArtifact, pattern)
}

// verifyArtifact checks the artifact parses as a solana-keygen keypair whose
// public key matches the file name.
func verifyArtifact(publicKey string, raw []byte) error {
	want, err := solana.PublicKeyFromBase58(publicKey)
	if err != nil {
		return fmt.Errorf("artifact name is not a valid public key: %w", err)
	}
	// The artifact is a JSON array of byte values, not a base64 string.
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("decode keypair artifact: %w", err)
	}
	if len(values) != 64 {
		return fmt.Errorf("keypair artifact has %d bytes, want 64", len(values))
	}
	key := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("keypair artifact byte %d out of range: %d", i, v)
		}
		key[i] = byte(v)
	}
	if !solana.PrivateKey(key).PublicKey().Equals(want) {
		return fmt.Errorf("artifact keypair does not match file name %s", publicKey)
	}
	return nil
}

func matchesPattern(publicKey string, kind domain.PatternKind, pattern string) bool {
	switch kind {
	case domain.PatternSuffix:
		return strings.HasSuffix(publicKey, pattern)
	default:
		return strings.HasPrefix(publicKey, pattern)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
