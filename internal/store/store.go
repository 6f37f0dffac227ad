// Package store provides storage backends for the conversation log and the
// durable notification subscriptions.
//
// It includes an in-memory store plus SQLite and PostgreSQL backends selected
// by DSN at startup.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/ezoncs/salonbot/internal/models"
)

// Store is the persistence surface shared by all backends. Message records
// append-only; subscriptions upsert on (session, preference).
type Store interface {
	AddMessage(m models.MessageRecord) error
	ListMessages(sessionID string, limit int) ([]models.MessageRecord, error)
	SaveSubscription(sub models.Subscription) error
	DeleteSubscription(sessionID string, pref models.PreferenceCode) error
	ListSubscribers(pref models.PreferenceCode) ([]models.Subscription, error)
	Close() error
}

// InMemoryStore keeps everything in process memory. Used in tests and when no
// database DSN is configured.
type InMemoryStore struct {
	mu       sync.Mutex
	messages []models.MessageRecord
	subs     map[string]models.Subscription // keyed by sessionID + "|" + preference
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[string]models.Subscription)}
}

func subKey(sessionID string, pref models.PreferenceCode) string {
	return sessionID + "|" + string(pref)
}

func (s *InMemoryStore) AddMessage(m models.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

// ListMessages returns the most recent messages for a session in
// chronological order. limit <= 0 means no limit.
func (s *InMemoryStore) ListMessages(sessionID string, limit int) ([]models.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MessageRecord
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) SaveSubscription(sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.subs[subKey(sub.SessionID, sub.Preference)] = sub
	return nil
}

func (s *InMemoryStore) DeleteSubscription(sessionID string, pref models.PreferenceCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, subKey(sessionID, pref))
	return nil
}

func (s *InMemoryStore) ListSubscribers(pref models.PreferenceCode) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.Preference == pref {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
