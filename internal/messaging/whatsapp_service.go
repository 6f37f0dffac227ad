package messaging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ezoncs/salonbot/internal/models"
	"github.com/ezoncs/salonbot/internal/whatsapp"
	"go.mau.fi/whatsmeow/types/events"
)

// WhatsAppService implements Service using the whatsmeow-based client. Inbound
// text messages are converted to InboundMessage events on the Responses
// channel; non-text messages are ignored.
type WhatsAppService struct {
	client    whatsapp.Sender
	waClient  *whatsapp.Client // nil when constructed with a mock
	responses chan models.InboundMessage
	stopOnce  sync.Once
}

// NewWhatsAppService wraps a whatsapp sender as a messaging service. Event
// handling is only available when the sender is a full *whatsapp.Client.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	s := &WhatsAppService{
		client:    client,
		responses: make(chan models.InboundMessage, DefaultChannelBufferSize),
	}
	if waClient, ok := client.(*whatsapp.Client); ok {
		s.waClient = waClient
	} else {
		slog.Debug("WhatsAppService created without full client, event handling disabled")
	}
	return s
}

// ValidateAndCanonicalizeRecipient reduces a phone number to bare digits.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start registers the event handler that feeds the Responses channel.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService Start: no full client, skipping event handling")
		return nil
	}

	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		if msg, ok := evt.(*events.Message); ok {
			s.handleIncomingMessage(msg)
		}
	})
	slog.Debug("WhatsAppService event handler registered")
	return nil
}

// Stop closes the inbound channel and disconnects the client.
func (s *WhatsAppService) Stop() error {
	s.stopOnce.Do(func() {
		if s.waClient != nil {
			s.waClient.Disconnect()
		}
		close(s.responses)
		slog.Info("WhatsAppService stopped")
	})
	return nil
}

// SendMessage sends a message through the WhatsApp client.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonicalTo, body)
}

// Responses returns the channel of inbound text events.
func (s *WhatsAppService) Responses() <-chan models.InboundMessage {
	return s.responses
}

// handleIncomingMessage converts a whatsmeow message event to an
// InboundMessage. Drops the event if the channel stays blocked.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil {
		return
	}

	var text string
	switch {
	case evt.Message.Conversation != nil:
		text = *evt.Message.Conversation
	case evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil:
		text = *evt.Message.ExtendedTextMessage.Text
	default:
		slog.Debug("WhatsAppService ignoring non-text message", "from", evt.Info.Sender.String())
		return
	}

	from := evt.Info.Sender.User
	if !strings.HasPrefix(from, "+") {
		from = "+" + from
	}

	msg := models.InboundMessage{
		From: from,
		Body: text,
		Time: evt.Info.Timestamp.Unix(),
	}

	select {
	case s.responses <- msg:
		slog.Debug("WhatsAppService inbound message forwarded", "from", msg.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService responses channel blocked, dropping message", "from", msg.From)
	}
}
