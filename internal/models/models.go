// Package models defines the core data structures for salonbot.
//
// It includes the per-user conversation session, the company catalog record,
// and the request/response shapes of the external booking platform. Types are
// shared across modules and kept free of behavior beyond simple helpers.
package models

import (
	"errors"
	"time"
)

// SessionState identifies where a user currently is in the conversation.
type SessionState string

const (
	// StateMainMenu is the initial state; the user is choosing a company.
	StateMainMenu SessionState = "MAIN_MENU"
	// StateCompanySelected means a company menu is active.
	StateCompanySelected SessionState = "COMPANY_SELECTED"
	// StateAwaitingDateEmail waits for the "YYYY-MM-DD email" pair used to
	// look up appointments for cancellation.
	StateAwaitingDateEmail SessionState = "AWAITING_DATE_EMAIL"
	// StateAwaitingCancelID waits for the appointment ID to cancel.
	StateAwaitingCancelID SessionState = "AWAITING_CANCEL_ID"
	// StateAwaitingPreferenceChoice waits for a preference digit after
	// "set preferences".
	StateAwaitingPreferenceChoice SessionState = "AWAITING_PREFERENCE_CHOICE"
	// StateAwaitingPostExitChoice waits for the feedback/poll/reminder choice
	// offered after "bye".
	StateAwaitingPostExitChoice SessionState = "AWAITING_POST_EXIT_CHOICE"
	// StateAwaitingPollResponse waits for any answer to the feature poll.
	StateAwaitingPollResponse SessionState = "AWAITING_POLL_RESPONSE"
	// StateAwaitingReminderResponse waits for the yes/no reminder answer.
	StateAwaitingReminderResponse SessionState = "AWAITING_REMINDER_RESPONSE"
)

// CompanyScoped reports whether the state carries a company selection.
// Session.SelectedCompanyID must be set exactly in these states.
func (s SessionState) CompanyScoped() bool {
	switch s {
	case StateCompanySelected, StateAwaitingDateEmail, StateAwaitingCancelID:
		return true
	default:
		return false
	}
}

// PreferenceCode identifies an opt-in notification preference.
type PreferenceCode string

const (
	PreferenceDailyTips  PreferenceCode = "1"
	PreferenceReminders  PreferenceCode = "2"
	PreferencePromotions PreferenceCode = "3"
)

// PendingContext holds state-specific scratch data collected across turns.
type PendingContext struct {
	Date  string `json:"date,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session is the per-user conversational state tracked across turns.
// A session with no recorded state is implicitly in StateMainMenu.
type Session struct {
	SessionID         string                  `json:"session_id"`
	State             SessionState            `json:"state"`
	SelectedCompanyID int                     `json:"selected_company_id,omitempty"` // external booking-platform ID; 0 = none
	Preferences       map[PreferenceCode]bool `json:"preferences,omitempty"`
	Pending           PendingContext          `json:"pending,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// NewSession returns a fresh session in the main menu with no selections.
func NewSession(sessionID string) Session {
	now := time.Now()
	return Session{
		SessionID: sessionID,
		State:     StateMainMenu,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to its default state, dropping the company
// selection, preferences, and any pending input.
func (s *Session) Reset() {
	s.State = StateMainMenu
	s.SelectedCompanyID = 0
	s.Preferences = nil
	s.Pending = PendingContext{}
	s.UpdatedAt = time.Now()
}

// HasPreference reports whether the given preference code is set.
func (s *Session) HasPreference(code PreferenceCode) bool {
	return s.Preferences[code]
}

// AddPreference records a preference code on the session.
func (s *Session) AddPreference(code PreferenceCode) {
	if s.Preferences == nil {
		s.Preferences = make(map[PreferenceCode]bool)
	}
	s.Preferences[code] = true
}

// RemovePreference drops a preference code from the session.
func (s *Session) RemovePreference(code PreferenceCode) {
	delete(s.Preferences, code)
}

// Company is a read-only catalog record. Lookup works by either the short
// menu digit (Key) or the booking-platform ID (ExternalID); both resolve to
// the same record.
type Company struct {
	Key         string `json:"key"`
	ExternalID  int    `json:"external_id"`
	DisplayName string `json:"display_name"`
}

// DetailOption is an option digit on a company menu.
type DetailOption string

const (
	OptionAbout   DetailOption = "1"
	OptionPrices  DetailOption = "2"
	OptionBooking DetailOption = "3"
	OptionCancel  DetailOption = "4"
)

// DetailRequest is the JSON request body for the booking platform's data
// endpoints. Date and Email are only set for appointment lookups.
type DetailRequest struct {
	CompanyID int    `json:"company_id"`
	OptionID  string `json:"option_id,omitempty"`
	Date      string `json:"date,omitempty"`
	Email     string `json:"email,omitempty"`
}

// CancelRequest is the JSON request body for appointment cancellation.
type CancelRequest struct {
	AppointmentID int `json:"AppointmentID"`
}

// PriceItem is one service row in a price list payload.
type PriceItem struct {
	ServiceName     string `json:"ServiceName"`
	ServiceCategory string `json:"ServiceCategory"`
	Price           string `json:"Price"`
}

// Appointment is one entry in an appointment list payload.
type Appointment struct {
	AppointmentID int    `json:"AppointmentID"`
	Time          string `json:"Time"`
}

// DetailPayload is the booking platform's response envelope. Which fields are
// populated depends on the requested option.
type DetailPayload struct {
	Success      bool          `json:"success"`
	CompanyLink  string        `json:"companyLink,omitempty"`
	Prices       []PriceItem   `json:"prices,omitempty"`
	BookingLink  string        `json:"booking_link,omitempty"`
	Appointments []Appointment `json:"listofAppointments,omitempty"`
}

// InboundMessage is a single inbound text event from the transport layer.
// Body is trimmed and lower-cased at the boundary; From is opaque and stable
// per conversation.
type InboundMessage struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Message direction constants for the conversation log.
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

// MessageRecord is one logged conversation message.
type MessageRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Direction string `json:"direction"`
	Body      string `json:"body"`
	Time      int64  `json:"time"`
}

// Subscription records a durable notification opt-in, so scheduled broadcasts
// survive restarts even though sessions themselves are volatile.
type Subscription struct {
	SessionID  string         `json:"session_id"`
	Preference PreferenceCode `json:"preference"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Sentinel errors shared across modules.
var (
	// ErrUnknownCompany indicates a session referenced a company that is not
	// in the catalog.
	ErrUnknownCompany = errors.New("unknown company reference")
)
