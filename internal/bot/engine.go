// Package bot orchestrates one conversational turn: intent short-circuiting,
// the session read-transition-commit cycle, reply composition, and the
// conversation log.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/ezoncs/salonbot/internal/compose"
	"github.com/ezoncs/salonbot/internal/intent"
	"github.com/ezoncs/salonbot/internal/menu"
	"github.com/ezoncs/salonbot/internal/metrics"
	"github.com/ezoncs/salonbot/internal/models"
	"github.com/ezoncs/salonbot/internal/session"
	"github.com/ezoncs/salonbot/internal/store"
	"github.com/ezoncs/salonbot/internal/util"
)

// maxCommitRetries bounds how often a turn is retried after losing a session
// commit race. Each retry re-reads the session; the transition is recomputed
// only when the stored state actually moved.
const maxCommitRetries = 3

// Engine processes inbound text events and produces exactly one reply each.
type Engine struct {
	intents  *intent.Matcher
	sessions session.Store
	menu     *menu.Engine
	store    store.Store
	composer *compose.Composer
}

// NewEngine wires a bot engine from its collaborators.
func NewEngine(intents *intent.Matcher, sessions session.Store, menuEngine *menu.Engine, st store.Store, composer *compose.Composer) *Engine {
	return &Engine{
		intents:  intents,
		sessions: sessions,
		menu:     menuEngine,
		store:    st,
		composer: composer,
	}
}

// HandleMessage runs one conversational turn for the given sender and returns
// the reply text. It never returns an empty reply: failures degrade to a
// generic error message with the session reset server-side.
func (e *Engine) HandleMessage(ctx context.Context, from, body string) string {
	input := strings.ToLower(strings.TrimSpace(body))
	metrics.MessagesReceived.Inc()
	slog.Debug("Engine.HandleMessage: inbound", "from", from, "length", len(input))
	e.logMessage(from, models.DirectionInbound, input)

	reply := e.reply(ctx, from, input)

	e.logMessage(from, models.DirectionOutbound, reply)
	metrics.RepliesSent.Inc()
	return reply
}

func (e *Engine) reply(ctx context.Context, from, input string) string {
	// Common phrases answer without touching the session, so a greeting in
	// the middle of a cancellation flow does not lose the user's place.
	if text, ok := e.intents.Match(input); ok {
		metrics.IntentMatches.Inc()
		slog.Debug("Engine.reply: intent matched", "from", from)
		return text
	}

	// State of the last computed transition, kept across replays. When a
	// re-read returns the exact session the lost attempt started from, the
	// transition result still holds and is reused instead of recomputed, so a
	// commit race cannot issue the same booking-platform call twice.
	var (
		priorRead    models.Session
		priorNext    models.Session
		priorOutcome models.Outcome
		havePrior    bool
	)

	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		sess, version, err := e.sessions.Get(ctx, from)
		if err != nil {
			slog.Error("Engine.reply: session read failed", "error", err, "from", from)
			return e.composer.Render(models.Outcome{Kind: models.OutcomeSystemError})
		}

		var outcome models.Outcome
		if havePrior && reflect.DeepEqual(sess, priorRead) {
			sess = priorNext
			outcome = priorOutcome
		} else {
			read := sess
			read.Preferences = maps.Clone(sess.Preferences)
			outcome = e.menu.Transition(ctx, &sess, input)
			priorRead, priorNext, priorOutcome, havePrior = read, sess, outcome, true
		}

		err = e.sessions.Save(ctx, from, sess, version)
		if errors.Is(err, session.ErrVersionConflict) {
			metrics.SessionConflicts.Inc()
			slog.Debug("Engine.reply: commit conflict, replaying turn", "from", from, "attempt", attempt+1)
			continue
		}
		if err != nil {
			slog.Error("Engine.reply: session save failed", "error", err, "from", from)
			return e.composer.Render(models.Outcome{Kind: models.OutcomeSystemError})
		}

		e.applySubscriptionEffects(from, outcome)
		return e.composer.Render(outcome)
	}

	slog.Error("Engine.reply: commit retries exhausted", "from", from)
	return e.composer.Render(models.Outcome{Kind: models.OutcomeSystemError})
}

// applySubscriptionEffects mirrors preference changes into the durable
// subscription table so scheduled broadcasts survive session expiry.
func (e *Engine) applySubscriptionEffects(from string, o models.Outcome) {
	var err error
	switch o.Kind {
	case models.OutcomePreferenceAdded:
		err = e.store.SaveSubscription(models.Subscription{SessionID: from, Preference: o.Preference})
	case models.OutcomeReminderEnabled:
		err = e.store.SaveSubscription(models.Subscription{SessionID: from, Preference: models.PreferenceReminders})
	case models.OutcomeReminderDisabled:
		err = e.store.DeleteSubscription(from, models.PreferenceReminders)
	default:
		return
	}
	if err != nil {
		slog.Error("Engine.applySubscriptionEffects failed", "error", err, "from", from, "outcome", o.Kind)
	}
}

// logMessage appends to the conversation log. Log failures are reported but
// never block the reply.
func (e *Engine) logMessage(sessionID, direction, body string) {
	m := models.MessageRecord{
		ID:        util.GenerateMessageID(),
		SessionID: sessionID,
		Direction: direction,
		Body:      body,
		Time:      time.Now().Unix(),
	}
	if err := e.store.AddMessage(m); err != nil {
		slog.Error("Engine.logMessage failed", "error", err, "sessionID", sessionID, "direction", direction)
	}
}
