// Package messaging provides the pluggable transport layer that feeds inbound
// text events to the bot and delivers its replies.
package messaging

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/ezoncs/salonbot/internal/models"
)

const (
	// DefaultChannelBufferSize defines the buffer size for the inbound channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds non-blocking channel emits.
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned by operations on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// phoneNumberRegex strips everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message transport.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates a recipient identifier and
	// returns its canonical form. Each transport has its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., event polling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of inbound text events.
	Responses() <-chan models.InboundMessage
}

// canonicalizePhone reduces a recipient to bare digits and validates length.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", errors.New("invalid phone number: no digits found")
	}
	if len(canonical) < 6 {
		return "", errors.New("invalid phone number: too short")
	}
	return canonical, nil
}
