// Package display enforces the single-visible-message rule: each chat has at
// most one live bot message, and new content replaces it instead of piling up.
package display

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/solsmith/solsmith/internal/gateway"
)

// Tracker records the currently visible bot message per chat and replaces it
// on every update. It is the single authority over what is on screen; all
// interactive content must go through Replace (or be registered via Adopt).
type Tracker struct {
	gw gateway.Gateway

	mu      sync.Mutex
	current map[int64]gateway.MessageRef
	locks   map[int64]*sync.Mutex
}

// NewTracker creates a tracker bound to a gateway.
func NewTracker(gw gateway.Gateway) *Tracker {
	return &Tracker{
		gw:      gw,
		current: make(map[int64]gateway.MessageRef),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// chatLock returns the mutex serializing display updates for one chat.
func (t *Tracker) chatLock(chatID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[chatID] = l
	}
	return l
}

// Replace removes the previously tracked message for the chat (best effort:
// an already-gone message is fine, any other delete failure is logged and
// ignored), sends msg, and tracks the new reference. The old entry is cleared
// even when the send fails, so a failed send leaves the chat with no tracked
// message rather than a stale one.
func (t *Tracker) Replace(ctx context.Context, chatID int64, msg gateway.Message) (gateway.MessageRef, error) {
	lock := t.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	t.removePrevious(ctx, chatID)

	ref, err := t.gw.Send(ctx, chatID, msg)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.current[chatID] = ref
	t.mu.Unlock()
	return ref, nil
}

func (t *Tracker) removePrevious(ctx context.Context, chatID int64) {
	t.mu.Lock()
	prev, ok := t.current[chatID]
	delete(t.current, chatID)
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.gw.Delete(ctx, chatID, prev); err != nil && !errors.Is(err, gateway.ErrMessageNotFound) {
		slog.Warn("failed to delete tracked message", "chat_id", chatID, "message_ref", prev, "error", err)
	}
}

// Adopt registers a message sent outside Replace (e.g. an in-place progress
// message) as the chat's current one, so a later Replace removes it.
func (t *Tracker) Adopt(chatID int64, ref gateway.MessageRef) {
	lock := t.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	t.mu.Lock()
	t.current[chatID] = ref
	t.mu.Unlock()
}

// Clear drops the tracked reference without touching the chat.
func (t *Tracker) Clear(chatID int64) {
	t.mu.Lock()
	delete(t.current, chatID)
	t.mu.Unlock()
}

// Current returns the tracked reference for a chat, if any.
func (t *Tracker) Current(chatID int64) (gateway.MessageRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ref, ok := t.current[chatID]
	return ref, ok
}

// DeleteUserMessage best-effort removes a user's own message, used to keep
// the chat tidy after commands.
func (t *Tracker) DeleteUserMessage(ctx context.Context, chatID int64, ref gateway.MessageRef) {
	if ref == 0 {
		return
	}
	if err := t.gw.Delete(ctx, chatID, ref); err != nil && !errors.Is(err, gateway.ErrMessageNotFound) {
		slog.Warn("failed to delete user message", "chat_id", chatID, "message_ref", ref, "error", err)
	}
}
