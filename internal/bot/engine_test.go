package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/ezoncs/salonbot/internal/catalog"
	"github.com/ezoncs/salonbot/internal/compose"
	"github.com/ezoncs/salonbot/internal/intent"
	"github.com/ezoncs/salonbot/internal/menu"
	"github.com/ezoncs/salonbot/internal/models"
	"github.com/ezoncs/salonbot/internal/session"
	"github.com/ezoncs/salonbot/internal/store"
)

type fakeFetcher struct {
	payload     *models.DetailPayload
	err         error
	cancelCalls int
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, req models.DetailRequest) (*models.DetailPayload, error) {
	return f.payload, f.err
}

func (f *fakeFetcher) CancelAppointment(ctx context.Context, id int) (*models.DetailPayload, error) {
	f.cancelCalls++
	return &models.DetailPayload{Success: true}, nil
}

// conflictingStore injects commit conflicts before delegating to a real store.
type conflictingStore struct {
	session.Store
	conflicts int
	saves     int
}

func (c *conflictingStore) Save(ctx context.Context, sessionID string, s models.Session, version uint64) error {
	c.saves++
	if c.conflicts > 0 {
		c.conflicts--
		return session.ErrVersionConflict
	}
	return c.Store.Save(ctx, sessionID, s, version)
}

func newTestEngine(sessions session.Store, st store.Store) *Engine {
	cat := catalog.Default()
	matcher := intent.NewMatcher(intent.WithRand(rand.New(rand.NewPCG(1, 2))))
	return NewEngine(matcher, sessions, menu.NewEngine(cat, &fakeFetcher{}), st, compose.New(cat))
}

func TestHandleMessageMenuFlow(t *testing.T) {
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	st := store.NewInMemoryStore()
	e := newTestEngine(sessions, st)
	ctx := context.Background()

	reply := e.HandleMessage(ctx, "alice", "menu")
	if !strings.Contains(reply, "Evolve Clinic Den Haag") {
		t.Errorf("welcome menu must list companies, got %q", reply)
	}

	reply = e.HandleMessage(ctx, "alice", "3")
	if !strings.Contains(reply, "Cancel appointment") {
		t.Errorf("company menu expected, got %q", reply)
	}

	sess, _, err := sessions.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	if sess.State != models.StateCompanySelected || sess.SelectedCompanyID != 17 {
		t.Errorf("committed session mismatch: %+v", sess)
	}
}

func TestHandleMessageNormalizesInput(t *testing.T) {
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	e := newTestEngine(sessions, store.NewInMemoryStore())

	e.HandleMessage(context.Background(), "alice", "  MENU  ")
	sess, _, _ := sessions.Get(context.Background(), "alice")
	if sess.State != models.StateMainMenu {
		t.Errorf("uppercase padded command must still reset, got %s", sess.State)
	}
}

func TestIntentShortCircuitPreservesSession(t *testing.T) {
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	e := newTestEngine(sessions, store.NewInMemoryStore())
	ctx := context.Background()

	e.HandleMessage(ctx, "alice", "3")
	e.HandleMessage(ctx, "alice", "4")
	before, version, _ := sessions.Get(ctx, "alice")
	if before.State != models.StateAwaitingDateEmail {
		t.Fatalf("setup failed, state %s", before.State)
	}

	reply := e.HandleMessage(ctx, "alice", "hello")
	if reply == "" {
		t.Fatal("greeting must produce a reply")
	}
	after, afterVersion, _ := sessions.Get(ctx, "alice")
	if after.State != before.State || afterVersion != version {
		t.Errorf("intent reply must not touch the session: before %s v%d, after %s v%d",
			before.State, version, after.State, afterVersion)
	}
}

func TestConversationLogged(t *testing.T) {
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	st := store.NewInMemoryStore()
	e := newTestEngine(sessions, st)

	reply := e.HandleMessage(context.Background(), "alice", "menu")

	msgs, err := st.ListMessages("alice", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected inbound and outbound log entries, got %d", len(msgs))
	}
	if msgs[0].Direction != models.DirectionInbound || msgs[0].Body != "menu" {
		t.Errorf("unexpected inbound record: %+v", msgs[0])
	}
	if msgs[1].Direction != models.DirectionOutbound || msgs[1].Body != reply {
		t.Errorf("unexpected outbound record: %+v", msgs[1])
	}
	if !strings.HasPrefix(msgs[0].ID, "m_") {
		t.Errorf("message ID must carry the m_ prefix, got %q", msgs[0].ID)
	}
}

func TestSubscriptionEffects(t *testing.T) {
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	st := store.NewInMemoryStore()
	e := newTestEngine(sessions, st)
	ctx := context.Background()

	e.HandleMessage(ctx, "alice", "set preferences")
	e.HandleMessage(ctx, "alice", "1")

	tips, err := st.ListSubscribers(models.PreferenceDailyTips)
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(tips) != 1 || tips[0].SessionID != "alice" {
		t.Fatalf("daily-tips subscription not recorded: %+v", tips)
	}

	e.HandleMessage(ctx, "alice", "reminder")
	e.HandleMessage(ctx, "alice", "1")
	reminders, _ := st.ListSubscribers(models.PreferenceReminders)
	if len(reminders) != 1 {
		t.Fatalf("reminder subscription not recorded: %+v", reminders)
	}

	e.HandleMessage(ctx, "alice", "reminder")
	e.HandleMessage(ctx, "alice", "2")
	reminders, _ = st.ListSubscribers(models.PreferenceReminders)
	if len(reminders) != 0 {
		t.Errorf("reminder subscription not removed: %+v", reminders)
	}
}

func TestCommitConflictReplaysTurn(t *testing.T) {
	mem := session.NewMemoryStore()
	defer mem.Close()
	sessions := &conflictingStore{Store: mem, conflicts: 2}
	e := newTestEngine(sessions, store.NewInMemoryStore())

	reply := e.HandleMessage(context.Background(), "alice", "3")
	if !strings.Contains(reply, "Cancel appointment") {
		t.Errorf("turn must succeed after conflicts, got %q", reply)
	}
	if sessions.saves != 3 {
		t.Errorf("expected 3 save attempts, got %d", sessions.saves)
	}
	sess, _, _ := mem.Get(context.Background(), "alice")
	if sess.SelectedCompanyID != 17 {
		t.Errorf("final committed state wrong: %+v", sess)
	}
}

func TestCommitConflictDoesNotRepeatCancel(t *testing.T) {
	mem := session.NewMemoryStore()
	defer mem.Close()
	sessions := &conflictingStore{Store: mem}
	fetcher := &fakeFetcher{payload: &models.DetailPayload{
		Success:      true,
		Appointments: []models.Appointment{{AppointmentID: 42, Time: "10:00"}},
	}}
	cat := catalog.Default()
	matcher := intent.NewMatcher(intent.WithRand(rand.New(rand.NewPCG(1, 2))))
	e := NewEngine(matcher, sessions, menu.NewEngine(cat, fetcher), store.NewInMemoryStore(), compose.New(cat))
	ctx := context.Background()

	e.HandleMessage(ctx, "alice", "3")
	e.HandleMessage(ctx, "alice", "4")
	e.HandleMessage(ctx, "alice", "2026-09-01,alice@example.com")
	sess, _, _ := mem.Get(ctx, "alice")
	if sess.State != models.StateAwaitingCancelID {
		t.Fatalf("setup failed, state %s", sess.State)
	}

	// Conflicts without an underlying change must not re-run the
	// cancellation call against the platform.
	sessions.conflicts = 2
	reply := e.HandleMessage(ctx, "alice", "42")
	if reply == "" {
		t.Fatal("cancel turn must produce a reply")
	}
	if fetcher.cancelCalls != 1 {
		t.Errorf("expected 1 cancellation call despite commit conflicts, got %d", fetcher.cancelCalls)
	}
	sess, _, _ = mem.Get(ctx, "alice")
	if sess.State != models.StateCompanySelected {
		t.Errorf("cancel turn must commit the company menu state, got %s", sess.State)
	}
}

func TestCommitConflictExhaustionDegrades(t *testing.T) {
	mem := session.NewMemoryStore()
	defer mem.Close()
	sessions := &conflictingStore{Store: mem, conflicts: 10}
	e := newTestEngine(sessions, store.NewInMemoryStore())

	reply := e.HandleMessage(context.Background(), "alice", "3")
	if reply == "" {
		t.Fatal("exhausted retries must still produce a reply")
	}
	if sessions.saves != 3 {
		t.Errorf("retries must be bounded at 3, got %d", sessions.saves)
	}
}

type recordingSender struct {
	sent map[string]string
	err  error
}

func (r *recordingSender) SendMessage(ctx context.Context, to, body string) error {
	if r.err != nil {
		return r.err
	}
	if r.sent == nil {
		r.sent = make(map[string]string)
	}
	r.sent[to] = body
	return nil
}

func TestTipBroadcast(t *testing.T) {
	st := store.NewInMemoryStore()
	st.SaveSubscription(models.Subscription{SessionID: "alice", Preference: models.PreferenceDailyTips})
	st.SaveSubscription(models.Subscription{SessionID: "bob", Preference: models.PreferenceDailyTips})
	st.SaveSubscription(models.Subscription{SessionID: "carol", Preference: models.PreferenceReminders})

	sender := &recordingSender{}
	b := NewTipBroadcaster(st, sender, catalog.DailyTips, rand.New(rand.NewPCG(1, 2)))

	if err := b.Broadcast(context.Background()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected sends to the 2 tip subscribers, got %v", sender.sent)
	}
	if _, ok := sender.sent["carol"]; ok {
		t.Error("reminder-only subscriber must not receive tips")
	}
	if sender.sent["alice"] != sender.sent["bob"] {
		t.Error("one broadcast run must send the same tip to everyone")
	}
}

func TestTipBroadcastReportsFailures(t *testing.T) {
	st := store.NewInMemoryStore()
	st.SaveSubscription(models.Subscription{SessionID: "alice", Preference: models.PreferenceDailyTips})

	sender := &recordingSender{err: errors.New("transport down")}
	b := NewTipBroadcaster(st, sender, catalog.DailyTips, nil)

	if err := b.Broadcast(context.Background()); err == nil {
		t.Error("failed sends must surface an error")
	}
}

func TestTipBroadcastNoSubscribers(t *testing.T) {
	b := NewTipBroadcaster(store.NewInMemoryStore(), &recordingSender{}, catalog.DailyTips, nil)
	if err := b.Broadcast(context.Background()); err != nil {
		t.Errorf("empty subscriber list must be a no-op, got %v", err)
	}
}
