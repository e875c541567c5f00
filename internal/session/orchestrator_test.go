package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solsmith/solsmith/internal/display"
	"github.com/solsmith/solsmith/internal/domain"
	"github.com/solsmith/solsmith/internal/gateway"
	"github.com/solsmith/solsmith/internal/grinder"
	"github.com/solsmith/solsmith/internal/store"
)

type sentMessage struct {
	chatID int64
	ref    gateway.MessageRef
	msg    gateway.Message
}

// fakeGateway records outbound traffic for assertions.
type fakeGateway struct {
	mu       sync.Mutex
	nextRef  gateway.MessageRef
	sent     []sentMessage
	deleted  []gateway.MessageRef
	answered int
}

func (f *fakeGateway) Send(_ context.Context, chatID int64, msg gateway.Message) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRef++
	f.sent = append(f.sent, sentMessage{chatID: chatID, ref: f.nextRef, msg: msg})
	return f.nextRef, nil
}

func (f *fakeGateway) Edit(_ context.Context, _ int64, _ gateway.MessageRef, _ gateway.Message) error {
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, _ int64, ref gateway.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeGateway) AnswerCallback(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered++
	return nil
}

func (f *fakeGateway) lastMessage(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

// stubGenerator returns a canned result or error.
type stubGenerator struct {
	rec   domain.KeyRecord
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, kind domain.PatternKind, pattern string) (domain.KeyRecord, error) {
	g.calls++
	if g.err != nil {
		return domain.KeyRecord{}, g.err
	}
	rec := g.rec
	rec.PatternKind = kind
	rec.Pattern = pattern
	return rec, nil
}

type fixture struct {
	gw      *fakeGateway
	tracker *display.Tracker
	repo    store.Repository
	gen     *stubGenerator
	orch    *Orchestrator
	sess    *chatSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := &fakeGateway{}
	tracker := display.NewTracker(gw)
	repo, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	gen := &stubGenerator{rec: domain.KeyRecord{
		PublicKey:  "abC123",
		PrivateKey: "SECRET1",
		CreatedAt:  time.Now().UTC(),
	}}
	return &fixture{
		gw:      gw,
		tracker: tracker,
		repo:    repo,
		gen:     gen,
		orch:    NewOrchestrator(gw, tracker, repo, gen),
		sess:    &chatSession{chatID: 100, events: make(chan gateway.Event, eventQueueSize)},
	}
}

func (f *fixture) handle(ev gateway.Event) {
	f.orch.handle(context.Background(), f.sess, ev)
}

func sender() gateway.Sender {
	return gateway.Sender{UserID: "100", Username: "sol_user", FirstName: "Sol", LanguageCode: "en"}
}

func command(name string) gateway.Event {
	return gateway.Event{ChatID: 100, From: sender(), Command: name, MessageRef: 9000}
}

func callback(data string) gateway.Event {
	return gateway.Event{ChatID: 100, From: sender(), Callback: data, CallbackID: "cb1"}
}

func text(s string) gateway.Event {
	return gateway.Event{ChatID: 100, From: sender(), Text: s}
}

func TestStartShowsIntroAndTrackedMenu(t *testing.T) {
	f := newFixture(t)

	f.handle(command("start"))

	if len(f.gw.sent) != 2 {
		t.Fatalf("Expected intro + menu, got %d messages", len(f.gw.sent))
	}
	if !strings.Contains(f.gw.sent[0].msg.Text, "SOL SMITH") {
		t.Errorf("First message should be the intro banner, got %q", f.gw.sent[0].msg.Text)
	}
	cur, ok := f.tracker.Current(100)
	if !ok || cur != f.gw.sent[1].ref {
		t.Errorf("Menu should be the tracked message, tracked=%v ref=%d", ok, cur)
	}
	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after /start, got %s", f.sess.Phase())
	}

	// The intro banner must never be replaced by later content.
	f.handle(callback(cbBackToMain))
	for _, ref := range f.gw.deleted {
		if ref == f.gw.sent[0].ref {
			t.Error("Intro banner was deleted; it must stay untracked")
		}
	}
}

func TestCreateWalletHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handle(callback(cbCreateWallet))
	if f.sess.Phase() != PhaseAwaitingPatternChoice {
		t.Fatalf("Expected pattern choice phase, got %s", f.sess.Phase())
	}

	f.handle(callback(cbPatternPrefix))
	if f.sess.Phase() != PhaseAwaitingPatternValue || f.sess.pendingKind != domain.PatternPrefix {
		t.Fatalf("Expected pattern value phase with prefix kind, got %s / %q", f.sess.Phase(), f.sess.pendingKind)
	}

	f.handle(text("ab"))

	if f.gen.calls != 1 {
		t.Fatalf("Expected one generation, got %d", f.gen.calls)
	}
	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after generation, got %s", f.sess.Phase())
	}

	profile, err := f.repo.GetUser(ctx, "100")
	if err != nil || profile == nil {
		t.Fatalf("Expected stored profile, got %+v err=%v", profile, err)
	}
	if len(profile.Wallets) != 1 {
		t.Fatalf("Expected 1 wallet, got %d", len(profile.Wallets))
	}
	rec := profile.Wallets[0]
	if rec.PublicKey != "abC123" || rec.PrivateKey != "SECRET1" || rec.PatternKind != domain.PatternPrefix || rec.Pattern != "ab" {
		t.Errorf("Unexpected stored record: %+v", rec)
	}

	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "abC123") || !strings.Contains(last.msg.Text, "SECRET1") {
		t.Errorf("Result message should show the keypair, got %q", last.msg.Text)
	}
}

func TestGenerationReplacesProgressMessage(t *testing.T) {
	f := newFixture(t)

	f.handle(callback(cbCreateWallet))
	f.handle(callback(cbPatternSuffix))
	f.handle(text("ab"))

	// Find the "Generating..." placeholder and check it was removed.
	var placeholder gateway.MessageRef
	for _, m := range f.gw.sent {
		if strings.Contains(m.msg.Text, "Generating") {
			placeholder = m.ref
		}
	}
	if placeholder == 0 {
		t.Fatal("Progress placeholder was never sent")
	}
	removed := false
	for _, ref := range f.gw.deleted {
		if ref == placeholder {
			removed = true
		}
	}
	if !removed {
		t.Error("Progress placeholder should be replaced by the result")
	}
}

func TestGenerationFailureLeavesWalletsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.gen.err = grinder.ErrExternalFailure

	f.handle(callback(cbCreateWallet))
	f.handle(callback(cbPatternPrefix))
	f.handle(text("ab"))

	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after failed generation, got %s", f.sess.Phase())
	}

	profile, err := f.repo.GetUser(context.Background(), "100")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if profile != nil && len(profile.Wallets) != 0 {
		t.Errorf("Wallets must be unchanged after failure, got %+v", profile.Wallets)
	}

	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "Error generating wallet") {
		t.Errorf("Expected failure message, got %q", last.msg.Text)
	}
	if len(last.msg.Buttons) == 0 {
		t.Error("Failure message must carry a recovery button")
	}
}

func TestInvalidPatternReprompts(t *testing.T) {
	f := newFixture(t)

	f.handle(callback(cbCreateWallet))
	f.handle(callback(cbPatternPrefix))
	f.handle(text("0x!bad"))

	if f.gen.calls != 0 {
		t.Errorf("Generation must not run for an invalid pattern")
	}
	if f.sess.Phase() != PhaseAwaitingPatternValue {
		t.Errorf("Expected to stay in pattern value phase, got %s", f.sess.Phase())
	}
}

func TestViewWalletsEmptyState(t *testing.T) {
	f := newFixture(t)

	f.handle(callback(cbViewWallets))

	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after empty wallet view, got %s", f.sess.Phase())
	}
	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "no wallets yet") {
		t.Errorf("Expected empty-state message, got %q", last.msg.Text)
	}
}

func seedWallets(t *testing.T, f *fixture, pubs ...string) {
	t.Helper()
	profile := domain.NewUserProfile("100", "sol_user", "Sol", "en")
	for i, pub := range pubs {
		profile.Wallets = append(profile.Wallets, domain.KeyRecord{
			PublicKey:  pub,
			PrivateKey: "key-" + pub,
			CreatedAt:  time.Unix(int64(i), 0).UTC(),
		})
	}
	if err := f.repo.PutUser(context.Background(), profile); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}
}

func TestWalletSelectionBounds(t *testing.T) {
	f := newFixture(t)
	seedWallets(t, f, "firstPub", "secondPub")

	f.handle(callback(cbViewWallets))
	if f.sess.Phase() != PhaseAwaitingWalletSelection {
		t.Fatalf("Expected selection phase, got %s", f.sess.Phase())
	}

	for _, input := range []string{"0", "3", "abc"} {
		f.handle(text(input))
		if f.sess.Phase() != PhaseAwaitingWalletSelection {
			t.Errorf("Input %q must keep the selection phase, got %s", input, f.sess.Phase())
		}
		last := f.gw.lastMessage(t)
		if !strings.Contains(last.msg.Text, "between 1 and 2") {
			t.Errorf("Re-prompt must quote the valid range, got %q", last.msg.Text)
		}
	}
}

func TestWalletSelectionShowsRecordAndClears(t *testing.T) {
	f := newFixture(t)
	seedWallets(t, f, "firstPub", "secondPub")

	f.handle(callback(cbViewWallets))
	f.handle(text("2"))

	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after selection, got %s", f.sess.Phase())
	}
	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "secondPub") || !strings.Contains(last.msg.Text, "key-secondPub") {
		t.Errorf("Expected full record for wallet 2, got %q", last.msg.Text)
	}
	if _, ok := f.tracker.Current(100); ok {
		t.Error("Tracked reference should be cleared after the terminal selection")
	}
}

func TestBackToMainIsIdempotent(t *testing.T) {
	f := newFixture(t)

	// From assorted phases, back-to-main always lands on the same menu.
	f.handle(callback(cbCreateWallet))
	var menus []string
	for i := 0; i < 3; i++ {
		f.handle(callback(cbBackToMain))
		if f.sess.Phase() != PhaseIdle {
			t.Fatalf("Expected idle after back-to-main, got %s", f.sess.Phase())
		}
		menus = append(menus, f.gw.lastMessage(t).msg.Text)
	}
	for i := 1; i < len(menus); i++ {
		if menus[i] != menus[0] {
			t.Errorf("Menu content changed between presses: %q vs %q", menus[0], menus[i])
		}
	}
}

func TestUnrecognizedIdleTextReanchorsMenu(t *testing.T) {
	f := newFixture(t)

	f.handle(text("what is this"))

	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle, got %s", f.sess.Phase())
	}
	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "Welcome") {
		t.Errorf("Expected main menu re-anchor, got %q", last.msg.Text)
	}
}

func TestStorageErrorSurfacedOnWalletView(t *testing.T) {
	f := newFixture(t)
	f.repo = brokenRepo{}
	f.orch = NewOrchestrator(f.gw, f.tracker, f.repo, f.gen)

	f.handle(callback(cbViewWallets))

	if f.sess.Phase() != PhaseIdle {
		t.Errorf("Expected idle after storage error, got %s", f.sess.Phase())
	}
	last := f.gw.lastMessage(t)
	if !strings.Contains(last.msg.Text, "try again") {
		t.Errorf("Expected retry prompt, got %q", last.msg.Text)
	}
}

// brokenRepo fails every read.
type brokenRepo struct{}

func (brokenRepo) GetUser(context.Context, string) (*domain.UserProfile, error) {
	return nil, errors.New("disk on fire")
}
func (brokenRepo) PutUser(context.Context, *domain.UserProfile) error { return nil }
func (brokenRepo) AppendWallet(context.Context, string, domain.KeyRecord, func() *domain.UserProfile) error {
	return nil
}
func (brokenRepo) TouchLastInteraction(context.Context, string, time.Time) error { return nil }
func (brokenRepo) Ping(context.Context) error                                    { return nil }
func (brokenRepo) Close() error                                                  { return nil }
