package session

import (
	"context"
	"testing"
	"time"

	"github.com/ezoncs/salonbot/internal/models"
)

func TestMemoryStoreGetUnseenReturnsDefault(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess, version, err := s.Get(ctx, "+31612345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 for unseen session, got %d", version)
	}
	if sess.State != models.StateMainMenu {
		t.Errorf("expected default state %q, got %q", models.StateMainMenu, sess.State)
	}
	if sess.SelectedCompanyID != 0 {
		t.Errorf("expected no company selection, got %d", sess.SelectedCompanyID)
	}
	if s.Len() != 0 {
		t.Errorf("Get must not create entries, store has %d", s.Len())
	}
}

func TestMemoryStoreSaveRoundTrip(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess, version, _ := s.Get(ctx, "user")
	sess.State = models.StateCompanySelected
	sess.SelectedCompanyID = 17
	if err := s.Save(ctx, "user", sess, version); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, version, err := s.Get(ctx, "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after first save, got %d", version)
	}
	if got.State != models.StateCompanySelected || got.SelectedCompanyID != 17 {
		t.Errorf("unexpected session after save: %+v", got)
	}
}

func TestMemoryStoreSaveStaleVersionConflicts(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess, version, _ := s.Get(ctx, "user")
	if err := s.Save(ctx, "user", sess, version); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second writer still holding version 0 must not clobber version 1.
	if err := s.Save(ctx, "user", sess, version); err != ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestMemoryStoreCreateRaceConflicts(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess := models.NewSession("user")
	if err := s.Save(ctx, "user", sess, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Save(ctx, "user", sess, 0); err != ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict on duplicate create, got %v", err)
	}
}

func TestMemoryStoreUncommittedMutationInvisible(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess, _, _ := s.Get(ctx, "user")
	sess.AddPreference(models.PreferenceDailyTips)
	if err := s.Save(ctx, "user", sess, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating a read session without saving must not leak into the store.
	read, _, _ := s.Get(ctx, "user")
	read.AddPreference(models.PreferencePromotions)
	read.RemovePreference(models.PreferenceDailyTips)

	got, _, _ := s.Get(ctx, "user")
	if got.HasPreference(models.PreferencePromotions) {
		t.Error("unsaved AddPreference leaked into the store")
	}
	if !got.HasPreference(models.PreferenceDailyTips) {
		t.Error("unsaved RemovePreference leaked into the store")
	}
}

func TestMemoryStoreSavedSessionDetachedFromCaller(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess := models.NewSession("user")
	sess.AddPreference(models.PreferenceDailyTips)
	if err := s.Save(ctx, "user", sess, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the caller's copy after Save must not reach the committed entry.
	sess.AddPreference(models.PreferenceReminders)

	got, _, _ := s.Get(ctx, "user")
	if got.HasPreference(models.PreferenceReminders) {
		t.Error("mutation after Save leaked into the store")
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore(WithTTL(0))
	defer s.Close()
	ctx := context.Background()

	sess, _, _ := s.Get(ctx, "user")
	sess.State = models.StateAwaitingCancelID
	sess.SelectedCompanyID = 10
	if err := s.Save(ctx, "user", sess, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Clear(ctx, "user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, version, _ := s.Get(ctx, "user")
	if version != 0 || got.State != models.StateMainMenu {
		t.Errorf("expected fresh session after clear, got version %d state %q", version, got.State)
	}
}

func TestMemoryStoreEvictsIdleSessions(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := NewMemoryStore(WithTTL(time.Hour), WithSweepInterval(0), WithClock(clock))
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, "idle", models.NewSession("idle"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := s.Save(ctx, "fresh", models.NewSession("fresh"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.evictIdle()

	if s.Len() != 1 {
		t.Fatalf("expected 1 session after eviction, got %d", s.Len())
	}
	if _, version, _ := s.Get(ctx, "idle"); version != 0 {
		t.Error("idle session should have been evicted")
	}
	if _, version, _ := s.Get(ctx, "fresh"); version != 1 {
		t.Error("fresh session should have survived eviction")
	}
}
