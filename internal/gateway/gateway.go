// Package gateway defines the chat transport boundary. The bot core talks to
// the chat surface exclusively through the Gateway interface; the concrete
// Telegram adapter lives in internal/telegram.
package gateway

import (
	"context"
	"errors"
)

// ErrMessageNotFound is returned by Delete when the target message no longer
// exists. Callers that only clean up old messages treat it as success.
var ErrMessageNotFound = errors.New("message not found")

// MessageRef is an opaque handle to a delivered message within a chat.
type MessageRef int64

// Button is one inline keyboard button. Data is the opaque callback token
// delivered back when the button is pressed.
type Button struct {
	Label string
	Data  string
}

// Message is outbound content: text plus optional rendering mode and
// inline keyboard rows.
type Message struct {
	Text      string
	ParseMode string
	Buttons   [][]Button
}

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Sender identifies the human behind an inbound event.
type Sender struct {
	UserID       string
	Username     string
	FirstName    string
	LanguageCode string
}

// Event is one inbound chat event. Exactly one of Command, Text or Callback
// is meaningful; MessageRef points at the user's own message when present,
// and CallbackID carries the token needed to acknowledge a button press.
type Event struct {
	ChatID     int64
	From       Sender
	Command    string
	Text       string
	Callback   string
	CallbackID string
	MessageRef MessageRef
}

// IsCommand reports whether the event is a slash command.
func (e Event) IsCommand() bool { return e.Command != "" }

// IsCallback reports whether the event is an inline button press.
func (e Event) IsCallback() bool { return e.Callback != "" }

// Gateway is the outbound chat surface. Implementations must be safe for
// concurrent use; every method is best-effort from the orchestrator's point
// of view and returns transport errors unwrapped for logging.
type Gateway interface {
	// Send delivers a new message and returns its reference.
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)

	// Edit rewrites an existing message in place.
	Edit(ctx context.Context, chatID int64, ref MessageRef, msg Message) error

	// Delete removes a message. Returns ErrMessageNotFound if it is
	// already gone.
	Delete(ctx context.Context, chatID int64, ref MessageRef) error

	// AnswerCallback acknowledges a button press so the client stops
	// showing a progress indicator.
	AnswerCallback(ctx context.Context, callbackID string) error
}
