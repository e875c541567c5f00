package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solsmith/solsmith/internal/gateway"
	"github.com/solsmith/solsmith/internal/metrics"
)

// eventQueueSize bounds the per-chat backlog. Input beyond this while a
// generation is running is dropped with a warning rather than blocking the
// dispatcher.
const eventQueueSize = 16

const evictionInterval = 5 * time.Minute

// Registry owns every chat's session entry and one worker goroutine per
// active chat. Dispatch preserves arrival order within a chat; separate
// chats run concurrently. Entries for idle chats are evicted after the
// configured inactivity TTL.
type Registry struct {
	orch *Orchestrator
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[int64]*chatSession
	closed   bool

	wg sync.WaitGroup
}

// NewRegistry creates a registry dispatching into the given orchestrator.
func NewRegistry(orch *Orchestrator, ttl time.Duration) *Registry {
	return &Registry{
		orch:     orch,
		ttl:      ttl,
		sessions: make(map[int64]*chatSession),
	}
}

// Dispatch hands an inbound event to its chat's worker, creating the session
// entry on first contact. It never blocks: a full chat queue drops the event.
func (r *Registry) Dispatch(ctx context.Context, ev gateway.Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		slog.Warn("event dropped, registry shut down", "chat_id", ev.ChatID)
		return
	}

	sess, ok := r.sessions[ev.ChatID]
	if !ok {
		sess = &chatSession{
			chatID: ev.ChatID,
			events: make(chan gateway.Event, eventQueueSize),
		}
		r.sessions[ev.ChatID] = sess
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		r.wg.Add(1)
		go r.run(ctx, sess)
	}
	sess.lastActivity = time.Now()

	select {
	case sess.events <- ev:
	default:
		slog.Warn("event dropped, chat queue full", "chat_id", ev.ChatID)
	}
	r.mu.Unlock()
}

// run drains one chat's queue. It exits when the queue is closed by eviction
// or shutdown; events already queued are still handled during shutdown
// drain because handle uses the worker context.
func (r *Registry) run(ctx context.Context, sess *chatSession) {
	defer r.wg.Done()
	for ev := range sess.events {
		r.orch.handle(ctx, sess, ev)
	}
}

// Phase reports the current phase of a chat, PhaseIdle if unknown. Intended
// for tests and introspection; the live value may change immediately after.
func (r *Registry) Phase(chatID int64) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[chatID]; ok {
		return sess.Phase()
	}
	return PhaseIdle
}

// StartEvictionWorker periodically removes entries for chats that have been
// inactive longer than the TTL. A chat mid-generation is never evicted: its
// lastActivity is refreshed when queued events replay after the generation.
func (r *Registry) StartEvictionWorker(ctx context.Context) {
	ticker := time.NewTicker(evictionInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.evictIdle()
			}
		}
	}()
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for chatID, sess := range r.sessions {
		if sess.lastActivity.After(cutoff) {
			continue
		}
		if sess.Phase() == PhaseGenerating || len(sess.events) > 0 {
			continue
		}
		delete(r.sessions, chatID)
		close(sess.events)
		slog.Info("session evicted after inactivity", "chat_id", chatID, "phase", sess.Phase().String())
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}

// Shutdown stops accepting events and waits for every chat worker to drain
// its queue, so no generation result is lost mid-write.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, sess := range r.sessions {
		close(sess.events)
	}
	r.mu.Unlock()

	r.wg.Wait()
}
