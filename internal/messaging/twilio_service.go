package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ezoncs/salonbot/internal/models"
	"github.com/ezoncs/salonbot/internal/twiliowhatsapp"
)

// TwilioService implements Service over the Twilio REST API. Inbound traffic
// does not flow through Responses: the HTTP webhook surface answers each
// message synchronously with TwiML. This service covers the outbound side,
// scheduled broadcasts included.
type TwilioService struct {
	client    twiliowhatsapp.Sender
	responses chan models.InboundMessage
	mu        sync.RWMutex
	stopped   bool
}

// NewTwilioService wraps a Twilio sender as a messaging service.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{
		client:    client,
		responses: make(chan models.InboundMessage),
	}
}

// ValidateAndCanonicalizeRecipient reduces a WhatsApp number to bare digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhone(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Start is a no-op; inbound traffic arrives via the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the inbound channel and marks the service stopped.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.responses)
	return nil
}

// SendMessage sends a message via Twilio.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonicalTo, body)
}

// Responses returns the inbound channel. For Twilio it never yields; it only
// closes when the service stops.
func (s *TwilioService) Responses() <-chan models.InboundMessage {
	return s.responses
}
