// Package booking provides the client for the external booking platform.
//
// The retry policy is scoped to the transport layer: connection errors,
// timeouts, non-2xx statuses, and malformed bodies are retried up to the
// attempt budget with a fixed delay. A well-formed response carrying
// success=false is a business failure and is never retried.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ezoncs/salonbot/internal/metrics"
	"github.com/ezoncs/salonbot/internal/models"
)

// Booking platform endpoints, relative to the base URL.
const (
	pathGetData           = "/Appointment/GetDataOfTBP"
	pathGetAppointments   = "/Appointment/GetAppointmentsWRTToDateAndCustomer"
	pathCancelAppointment = "/Appointment/CancelAppointment"
)

// DefaultBaseURL is the production booking platform address.
const DefaultBaseURL = "https://test.yourbookingplatform.com"

// DefaultAttemptTimeout bounds a single transport attempt so worst-case turn
// latency stays at attempts × (timeout + delay).
const DefaultAttemptTimeout = 10 * time.Second

// RetryPolicy is the explicit retry budget applied to transport failures.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the platform contract: three attempts, two
// seconds apart, no backoff, no jitter.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}

// FailureKind categorizes a failed fetch.
type FailureKind string

const (
	// FailureTransport covers connection errors, timeouts, non-2xx statuses,
	// and malformed bodies.
	FailureTransport FailureKind = "transport"
	// FailureBusiness covers well-formed responses with success=false.
	FailureBusiness FailureKind = "business"
)

// FetchError is the typed failure returned by the client. Kind drives the
// caller's fallback behavior; the wrapped error is for logs only and must
// never be surfaced to the end user.
type FetchError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking %s: %s failure: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("booking %s: %s failure", e.Op, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsBusinessFailure reports whether err is a business-negative response.
func IsBusinessFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FailureBusiness
}

// IsTransportFailure reports whether err is a transport-level failure.
func IsTransportFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FailureTransport
}

// SleepFunc suspends between attempts; injectable so tests run instantly.
// It should return early with the context error when ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Opts holds configuration options for the booking client.
type Opts struct {
	BaseURL        string
	HTTPClient     *http.Client
	Policy         RetryPolicy
	AttemptTimeout time.Duration
	Sleep          SleepFunc
}

// Option configures the booking client.
type Option func(*Opts)

// WithBaseURL overrides the booking platform address.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects the HTTP client used for transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// WithRetryPolicy overrides the transport retry budget.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Opts) { o.Policy = p }
}

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Opts) { o.AttemptTimeout = d }
}

// WithSleep injects the inter-attempt sleep, used by tests.
func WithSleep(sleep SleepFunc) Option {
	return func(o *Opts) { o.Sleep = sleep }
}

// Client performs JSON-over-HTTP calls against the booking platform.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	policy         RetryPolicy
	attemptTimeout time.Duration
	sleep          SleepFunc
}

// NewClient creates a booking client with the default policy unless
// overridden by options.
func NewClient(opts ...Option) *Client {
	cfg := Opts{
		BaseURL:        DefaultBaseURL,
		HTTPClient:     http.DefaultClient,
		Policy:         DefaultRetryPolicy,
		AttemptTimeout: DefaultAttemptTimeout,
		Sleep:          defaultSleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("booking.NewClient created", "base_url", cfg.BaseURL, "max_attempts", cfg.Policy.MaxAttempts, "delay", cfg.Policy.Delay)
	return &Client{
		httpClient:     cfg.HTTPClient,
		baseURL:        cfg.BaseURL,
		policy:         cfg.Policy,
		attemptTimeout: cfg.AttemptTimeout,
		sleep:          cfg.Sleep,
	}
}

// FetchDetails retrieves live data for a company menu option. Requests with
// a date and email target the appointment lookup endpoint; everything else
// goes through the generic data endpoint.
func (c *Client) FetchDetails(ctx context.Context, req models.DetailRequest) (*models.DetailPayload, error) {
	path := pathGetData
	if req.Date != "" || req.Email != "" {
		path = pathGetAppointments
	}
	return c.post(ctx, "fetch", path, req)
}

// CancelAppointment asks the platform to cancel the given appointment.
func (c *Client) CancelAppointment(ctx context.Context, appointmentID int) (*models.DetailPayload, error) {
	return c.post(ctx, "cancel", pathCancelAppointment, models.CancelRequest{AppointmentID: appointmentID})
}

// post runs the retrying request loop. Transport failures consume attempts;
// a business-negative response returns immediately.
func (c *Client) post(ctx context.Context, op, path string, body any) (*models.DetailPayload, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &FetchError{Kind: FailureTransport, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	var lastErr *FetchError
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		payload, attemptErr := c.attempt(ctx, path, data)
		if attemptErr == nil {
			if !payload.Success {
				slog.Warn("booking call declined by platform", "op", op, "path", path, "attempt", attempt)
				metrics.FetchFailures.WithLabelValues(string(FailureBusiness)).Inc()
				return nil, &FetchError{Kind: FailureBusiness, Op: op}
			}
			slog.Debug("booking call succeeded", "op", op, "path", path, "attempt", attempt)
			return payload, nil
		}

		lastErr = &FetchError{Kind: FailureTransport, Op: op, Err: attemptErr}
		slog.Error("booking transport attempt failed", "op", op, "path", path, "attempt", attempt, "error", attemptErr)

		if attempt < c.policy.MaxAttempts {
			if sleepErr := c.sleep(ctx, c.policy.Delay); sleepErr != nil {
				return nil, &FetchError{Kind: FailureTransport, Op: op, Err: sleepErr}
			}
		}
	}

	metrics.FetchFailures.WithLabelValues(string(FailureTransport)).Inc()
	return nil, lastErr
}

// attempt performs one transport exchange with its own timeout.
func (c *Client) attempt(ctx context.Context, path string, body []byte) (*models.DetailPayload, error) {
	metrics.FetchAttempts.Inc()

	attemptCtx := ctx
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload models.DetailPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &payload, nil
}
