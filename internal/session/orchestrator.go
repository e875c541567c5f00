package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/solsmith/solsmith/internal/display"
	"github.com/solsmith/solsmith/internal/domain"
	"github.com/solsmith/solsmith/internal/gateway"
	"github.com/solsmith/solsmith/internal/grinder"
	"github.com/solsmith/solsmith/internal/metrics"
	"github.com/solsmith/solsmith/internal/store"
)

// Generator produces one vanity keypair. Satisfied by grinder.Runner.
type Generator interface {
	Generate(ctx context.Context, kind domain.PatternKind, pattern string) (domain.KeyRecord, error)
}

// Orchestrator drives the conversation state machine for every chat. It owns
// no transport details: outbound content goes through the display tracker
// (except the one untracked intro banner on /start), storage through the
// repository, and generation through the Generator.
type Orchestrator struct {
	gw      gateway.Gateway
	tracker *display.Tracker
	repo    store.Repository
	gen     Generator
}

// NewOrchestrator wires the state machine to its collaborators.
func NewOrchestrator(gw gateway.Gateway, tracker *display.Tracker, repo store.Repository, gen Generator) *Orchestrator {
	return &Orchestrator{gw: gw, tracker: tracker, repo: repo, gen: gen}
}

// handle processes one event for one chat. It runs on the chat's worker
// goroutine, so events for a chat are strictly ordered and phase fields need
// no locking.
func (o *Orchestrator) handle(ctx context.Context, sess *chatSession, ev gateway.Event) {
	o.touchUser(ctx, ev)

	switch {
	case ev.IsCommand():
		metrics.EventsTotal.WithLabelValues("command").Inc()
		o.handleCommand(ctx, sess, ev)
	case ev.IsCallback():
		metrics.EventsTotal.WithLabelValues("callback").Inc()
		o.handleCallback(ctx, sess, ev)
	default:
		metrics.EventsTotal.WithLabelValues("text").Inc()
		o.handleText(ctx, sess, ev)
	}
}

// touchUser updates the last-interaction timestamp for known users. A storage
// failure here never interrupts the interaction.
func (o *Orchestrator) touchUser(ctx context.Context, ev gateway.Event) {
	if ev.From.UserID == "" {
		return
	}
	if err := o.repo.TouchLastInteraction(ctx, ev.From.UserID, time.Now().UTC()); err != nil {
		slog.Warn("failed to touch last interaction", "user_id", ev.From.UserID, "error", err)
	}
}

func (o *Orchestrator) handleCommand(ctx context.Context, sess *chatSession, ev gateway.Event) {
	switch ev.Command {
	case "start":
		sess.reset()
		// The branded intro is the one message deliberately sent outside
		// the tracker: it stays as a banner and is never replaced.
		if _, err := o.gw.Send(ctx, ev.ChatID, introMessage()); err != nil {
			slog.Warn("failed to send intro message", "chat_id", ev.ChatID, "error", err)
		}
		o.showMainMenu(ctx, ev)
	case "help":
		o.tracker.DeleteUserMessage(ctx, ev.ChatID, ev.MessageRef)
		o.replace(ctx, ev.ChatID, helpMessage())
	default:
		sess.reset()
		o.showMainMenu(ctx, ev)
	}
}

func (o *Orchestrator) handleCallback(ctx context.Context, sess *chatSession, ev gateway.Event) {
	if err := o.gw.AnswerCallback(ctx, ev.CallbackID); err != nil {
		slog.Warn("failed to answer callback", "chat_id", ev.ChatID, "error", err)
	}

	switch ev.Callback {
	case cbBackToMain:
		sess.reset()
		o.showMainMenu(ctx, ev)

	case cbCreateWallet:
		sess.setPhase(PhaseAwaitingPatternChoice)
		o.replace(ctx, ev.ChatID, patternChoiceMessage())

	case cbPatternPrefix, cbPatternSuffix:
		if sess.Phase() != PhaseAwaitingPatternChoice {
			// Stale button press from a replaced screen.
			return
		}
		kind := domain.PatternPrefix
		if ev.Callback == cbPatternSuffix {
			kind = domain.PatternSuffix
		}
		sess.setPhase(PhaseAwaitingPatternValue)
		sess.pendingKind = kind
		o.replace(ctx, ev.ChatID, patternPromptMessage(kind))

	case cbViewWallets:
		o.showWalletList(ctx, sess, ev)

	default:
		slog.Warn("unrecognized callback token", "chat_id", ev.ChatID, "callback", ev.Callback)
	}
}

func (o *Orchestrator) handleText(ctx context.Context, sess *chatSession, ev gateway.Event) {
	text := strings.TrimSpace(ev.Text)

	switch sess.Phase() {
	case PhaseAwaitingPatternValue:
		o.startGeneration(ctx, sess, ev, text)
	case PhaseAwaitingWalletSelection:
		o.handleWalletSelection(ctx, sess, ev, text)
	case PhaseAwaitingPatternChoice:
		// Free text is not an answer here; show the chooser again.
		o.replace(ctx, ev.ChatID, patternChoiceMessage())
	default:
		// Unrecognized text while idle re-anchors the main menu.
		sess.reset()
		o.showMainMenu(ctx, ev)
	}
}

// startGeneration validates the pattern, shows a progress placeholder, and
// runs the keygen task on the chat's own goroutine. Further input for this
// chat queues behind the generation and replays once it finishes; other
// chats are unaffected.
func (o *Orchestrator) startGeneration(ctx context.Context, sess *chatSession, ev gateway.Event, pattern string) {
	if err := grinder.ValidatePattern(pattern); err != nil {
		o.replace(ctx, ev.ChatID, invalidPatternMessage())
		return
	}

	kind := sess.pendingKind
	if !kind.Valid() {
		kind = domain.PatternPrefix
	}
	sess.setPhase(PhaseGenerating)
	sess.pendingKind = ""

	o.replace(ctx, ev.ChatID, generatingMessage())

	metrics.GenerationsTotal.WithLabelValues("started").Inc()
	started := time.Now()
	rec, err := o.gen.Generate(ctx, kind, pattern)
	metrics.GenerationDuration.Observe(time.Since(started).Seconds())

	sess.reset()
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		slog.Error("wallet generation failed",
			"chat_id", ev.ChatID, "kind", string(kind), "pattern", pattern, "error", err)
		o.replace(ctx, ev.ChatID, generationFailedMessage())
		return
	}
	metrics.GenerationsTotal.WithLabelValues("succeeded").Inc()

	seed := func() *domain.UserProfile {
		return domain.NewUserProfile(ev.From.UserID, ev.From.Username, ev.From.FirstName, ev.From.LanguageCode)
	}
	if err := o.repo.AppendWallet(ctx, ev.From.UserID, rec, seed); err != nil {
		slog.Error("failed to persist wallet", "user_id", ev.From.UserID, "public_key", rec.PublicKey, "error", err)
		o.replace(ctx, ev.ChatID, storageErrorMessage())
		return
	}

	o.replace(ctx, ev.ChatID, walletGeneratedMessage(rec))
}

func (o *Orchestrator) showWalletList(ctx context.Context, sess *chatSession, ev gateway.Event) {
	profile, err := o.repo.GetUser(ctx, ev.From.UserID)
	if err != nil {
		slog.Error("failed to load wallets", "user_id", ev.From.UserID, "error", err)
		sess.reset()
		o.replace(ctx, ev.ChatID, storageErrorMessage())
		return
	}
	if profile == nil || len(profile.Wallets) == 0 {
		sess.reset()
		o.replace(ctx, ev.ChatID, emptyWalletsMessage())
		return
	}

	sess.setPhase(PhaseAwaitingWalletSelection)
	o.replace(ctx, ev.ChatID, walletListMessage(profile.Wallets))
}

func (o *Orchestrator) handleWalletSelection(ctx context.Context, sess *chatSession, ev gateway.Event, text string) {
	profile, err := o.repo.GetUser(ctx, ev.From.UserID)
	if err != nil {
		slog.Error("failed to load wallets for selection", "user_id", ev.From.UserID, "error", err)
		sess.reset()
		o.replace(ctx, ev.ChatID, storageErrorMessage())
		return
	}
	if profile == nil || len(profile.Wallets) == 0 {
		sess.reset()
		o.replace(ctx, ev.ChatID, emptyWalletsMessage())
		return
	}

	n, convErr := strconv.Atoi(text)
	if convErr != nil || n < 1 || n > len(profile.Wallets) {
		// Out of range or not a number: re-prompt and stay in this phase.
		o.replace(ctx, ev.ChatID, invalidSelectionMessage(len(profile.Wallets)))
		return
	}

	// Terminal step of the selection flow: the record stays on screen, so
	// the tracked reference is dropped rather than replaced later.
	o.replace(ctx, ev.ChatID, walletDetailMessage(n, profile.Wallets[n-1]))
	o.tracker.Clear(ev.ChatID)
	sess.reset()
}

func (o *Orchestrator) showMainMenu(ctx context.Context, ev gateway.Event) {
	name := ev.From.FirstName
	if name == "" {
		name = ev.From.Username
	}
	if name == "" {
		name = "User"
	}
	o.replace(ctx, ev.ChatID, mainMenuMessage(name))
}

// replace routes tracked content through the display tracker; a failed send
// is logged and otherwise dropped, per the transport error policy.
func (o *Orchestrator) replace(ctx context.Context, chatID int64, msg gateway.Message) {
	if _, err := o.tracker.Replace(ctx, chatID, msg); err != nil {
		slog.Error("failed to send tracked message", "chat_id", chatID, "error", err)
	}
}
