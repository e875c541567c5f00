// Package telegram adapts the Telegram Bot API to the gateway contract and
// feeds the long-poll update stream into the session dispatcher.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/solsmith/solsmith/internal/gateway"
)

// Bot wraps the Telegram client. It implements gateway.Gateway and owns the
// long-poll loop.
type Bot struct {
	api         *tgbotapi.BotAPI
	pollTimeout time.Duration
}

// New authenticates against the Telegram Bot API. Authentication failure is
// the one startup error the process does not survive, so it is returned to
// main rather than retried.
func New(token string, pollTimeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authenticate bot: %w", err)
	}
	slog.Info("Telegram bot authenticated", "username", api.Self.UserName)
	return &Bot{api: api, pollTimeout: pollTimeout}, nil
}

// Send delivers a new message and returns its reference.
func (b *Bot) Send(_ context.Context, chatID int64, msg gateway.Message) (gateway.MessageRef, error) {
	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.ParseMode = msg.ParseMode
	if markup, ok := keyboard(msg.Buttons); ok {
		out.ReplyMarkup = markup
	}
	sent, err := b.api.Send(out)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return gateway.MessageRef(sent.MessageID), nil
}

// Edit rewrites an existing message in place.
func (b *Bot) Edit(_ context.Context, chatID int64, ref gateway.MessageRef, msg gateway.Message) error {
	edit := tgbotapi.NewEditMessageText(chatID, int(ref), msg.Text)
	edit.ParseMode = msg.ParseMode
	if markup, ok := keyboard(msg.Buttons); ok {
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", ref, err)
	}
	return nil
}

// Delete removes a message, mapping Telegram's "message to delete not found"
// response onto gateway.ErrMessageNotFound.
func (b *Bot) Delete(_ context.Context, chatID int64, ref gateway.MessageRef) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, int(ref))); err != nil {
		if strings.Contains(err.Error(), "message to delete not found") {
			return gateway.ErrMessageNotFound
		}
		return fmt.Errorf("delete message %d: %w", ref, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press.
func (b *Bot) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// Run consumes the long-poll update stream until ctx is canceled, handing
// each translated event to dispatch. Dispatch must not block.
func (b *Bot) Run(ctx context.Context, dispatch func(context.Context, gateway.Event)) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if ev, ok := translate(update); ok {
				dispatch(ctx, ev)
			}
		}
	}
}

func keyboard(rows [][]gateway.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		keyboardRows = append(keyboardRows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboardRows...), true
}

// translate maps a raw update onto a gateway event. Updates that carry
// neither a message nor a callback are ignored.
func translate(update tgbotapi.Update) (gateway.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Message == nil {
			return gateway.Event{}, false
		}
		return gateway.Event{
			ChatID:     cq.Message.Chat.ID,
			From:       sender(cq.From),
			Callback:   cq.Data,
			CallbackID: cq.ID,
		}, true

	case update.Message != nil:
		msg := update.Message
		ev := gateway.Event{
			ChatID:     msg.Chat.ID,
			From:       sender(msg.From),
			MessageRef: gateway.MessageRef(msg.MessageID),
		}
		if msg.IsCommand() {
			ev.Command = msg.Command()
		} else {
			ev.Text = msg.Text
		}
		return ev, true

	default:
		return gateway.Event{}, false
	}
}

func sender(user *tgbotapi.User) gateway.Sender {
	if user == nil {
		return gateway.Sender{}
	}
	return gateway.Sender{
		UserID:       strconv.FormatInt(user.ID, 10),
		Username:     user.UserName,
		FirstName:    user.FirstName,
		LanguageCode: user.LanguageCode,
	}
}
