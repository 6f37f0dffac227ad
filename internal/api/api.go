// Package api provides the HTTP surface for salonbot.
//
// It exposes the Twilio inbound webhook, which answers each message
// synchronously with TwiML, plus health and Prometheus metrics endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twilio/twilio-go/twiml"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// HandleFunc computes the reply for one inbound message.
type HandleFunc func(ctx context.Context, from, body string) string

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server serves the webhook, health, and metrics endpoints.
type Server struct {
	addr   string
	handle HandleFunc
}

// NewServer builds an API server around the given message handler.
func NewServer(handle HandleFunc, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{addr: cfg.Addr, handle: handle}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// webhookHandler answers an inbound Twilio message with a TwiML reply.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("Server.webhookHandler: form parse failed", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	from := strings.TrimPrefix(r.FormValue("From"), "whatsapp:")
	body := r.FormValue("Body")
	if from == "" {
		slog.Warn("Server.webhookHandler: missing From field")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	reply := s.handle(r.Context(), from, body)

	doc, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: reply}})
	if err != nil {
		slog.Error("Server.webhookHandler: TwiML render failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, doc)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
