package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/ezoncs/salonbot/internal/models"
	"github.com/ezoncs/salonbot/internal/store"
)

// Sender delivers an outbound message to one recipient.
type Sender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// TipBroadcaster pushes a daily tip to every durable daily-tips subscriber.
type TipBroadcaster struct {
	store  store.Store
	sender Sender
	tips   []string
	rng    *rand.Rand
}

// NewTipBroadcaster builds a broadcaster over the given tip pool. rng may be
// nil, in which case the global source is used.
func NewTipBroadcaster(st store.Store, sender Sender, tips []string, rng *rand.Rand) *TipBroadcaster {
	return &TipBroadcaster{store: st, sender: sender, tips: tips, rng: rng}
}

func (b *TipBroadcaster) pickTip() string {
	if len(b.tips) == 0 {
		return ""
	}
	if b.rng != nil {
		return b.tips[b.rng.IntN(len(b.tips))]
	}
	return b.tips[rand.IntN(len(b.tips))]
}

// Broadcast sends one tip to each subscriber. Per-recipient send failures are
// logged and skipped; the returned error summarizes how many failed.
func (b *TipBroadcaster) Broadcast(ctx context.Context) error {
	subs, err := b.store.ListSubscribers(models.PreferenceDailyTips)
	if err != nil {
		slog.Error("TipBroadcaster.Broadcast: subscriber list failed", "error", err)
		return fmt.Errorf("failed to list daily-tip subscribers: %w", err)
	}
	if len(subs) == 0 {
		slog.Debug("TipBroadcaster.Broadcast: no subscribers")
		return nil
	}

	tip := b.pickTip()
	if tip == "" {
		return nil
	}

	var failed int
	for _, sub := range subs {
		if err := b.sender.SendMessage(ctx, sub.SessionID, tip); err != nil {
			slog.Error("TipBroadcaster.Broadcast: send failed", "error", err, "to", sub.SessionID)
			failed++
		}
	}
	slog.Info("TipBroadcaster.Broadcast complete", "subscribers", len(subs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("tip broadcast: %d of %d sends failed", failed, len(subs))
	}
	return nil
}
