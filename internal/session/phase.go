// Package session holds the per-chat conversation state machine and the
// registry that serializes event handling per chat while letting different
// chats proceed concurrently.
package session

import (
	"sync/atomic"
	"time"

	"github.com/solsmith/solsmith/internal/domain"
	"github.com/solsmith/solsmith/internal/gateway"
)

// Phase is the conversation state of one chat. A chat without a registry
// entry is implicitly PhaseIdle.
type Phase int

const (
	// PhaseIdle indicates no multi-step interaction is in progress.
	PhaseIdle Phase = iota
	// PhaseAwaitingPatternChoice means the pattern-kind chooser is shown.
	PhaseAwaitingPatternChoice
	// PhaseAwaitingPatternValue means the bot asked for the pattern text.
	PhaseAwaitingPatternValue
	// PhaseGenerating means a keygen subprocess is running for this chat.
	PhaseGenerating
	// PhaseAwaitingWalletSelection means a numbered wallet list is shown.
	PhaseAwaitingWalletSelection
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingPatternChoice:
		return "awaiting_pattern_choice"
	case PhaseAwaitingPatternValue:
		return "awaiting_pattern_value"
	case PhaseGenerating:
		return "generating"
	case PhaseAwaitingWalletSelection:
		return "awaiting_wallet_selection"
	default:
		return "unknown"
	}
}

// chatSession is one chat's registry entry. pendingKind is only touched by
// the chat's worker goroutine; phase is also read by the eviction worker, so
// it is stored atomically; lastActivity is guarded by the registry.
type chatSession struct {
	chatID       int64
	phase        atomic.Int32
	pendingKind  domain.PatternKind
	events       chan gateway.Event
	lastActivity time.Time
}

func (s *chatSession) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *chatSession) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

func (s *chatSession) reset() {
	s.setPhase(PhaseIdle)
	s.pendingKind = ""
}
