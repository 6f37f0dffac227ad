package messaging

import (
	"context"
	"log/slog"
)

// HandleFunc computes the reply for one inbound message.
type HandleFunc func(ctx context.Context, from, body string) string

// Responder drains a service's inbound channel and sends the computed reply
// back to the sender. Used by transports with a live connection; the Twilio
// webhook path replies synchronously instead.
type Responder struct {
	service Service
	handle  HandleFunc
}

// NewResponder builds a responder over the given service and handler.
func NewResponder(service Service, handle HandleFunc) *Responder {
	return &Responder{service: service, handle: handle}
}

// Run processes inbound messages until the channel closes or the context is
// cancelled. Send failures are logged and the loop continues.
func (r *Responder) Run(ctx context.Context) {
	slog.Debug("Responder loop starting")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Responder loop stopping", "reason", ctx.Err())
			return
		case msg, ok := <-r.service.Responses():
			if !ok {
				slog.Debug("Responder loop stopping, channel closed")
				return
			}
			reply := r.handle(ctx, msg.From, msg.Body)
			if reply == "" {
				continue
			}
			if err := r.service.SendMessage(ctx, msg.From, reply); err != nil {
				slog.Error("Responder send failed", "error", err, "to", msg.From)
			}
		}
	}
}
