// Package menu implements the conversation state machine.
//
// Transition consumes one normalized inbound token, mutates the caller's
// session copy, and returns the outcome for the composer. Digit inputs are
// matched before keywords; keywords require exact token equality. The
// machine is cyclic: the main menu is reachable from every state via the
// reset commands, and side conversations (preferences, poll, reminder,
// post-exit) always collapse back to the main menu when they finish.
package menu

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ezoncs/salonbot/internal/booking"
	"github.com/ezoncs/salonbot/internal/catalog"
	"github.com/ezoncs/salonbot/internal/models"
)

// Fetcher is the booking platform surface the state machine needs.
type Fetcher interface {
	FetchDetails(ctx context.Context, req models.DetailRequest) (*models.DetailPayload, error)
	CancelAppointment(ctx context.Context, appointmentID int) (*models.DetailPayload, error)
}

// Engine drives session transitions over a company catalog and a fetcher.
type Engine struct {
	catalog *catalog.Catalog
	fetcher Fetcher
}

// NewEngine creates a menu engine.
func NewEngine(cat *catalog.Catalog, fetcher Fetcher) *Engine {
	return &Engine{catalog: cat, fetcher: fetcher}
}

// Reset commands work from any state.
func isResetCommand(input string) bool {
	switch input {
	case "menu", "start", "main menu":
		return true
	}
	return false
}

// Back commands work from company-scoped states.
func isBackCommand(input string) bool {
	switch input {
	case "back", "🔙":
		return true
	}
	return false
}

// Transition applies one inbound token to the session and returns the
// outcome to render. The session is mutated in place; the caller owns
// persistence and conflict handling. The fetcher may be invoked while no
// session lock is held.
func (e *Engine) Transition(ctx context.Context, s *models.Session, input string) models.Outcome {
	// Global reset beats everything, including pending side conversations.
	if isResetCommand(input) {
		s.Reset()
		return models.Outcome{Kind: models.OutcomeWelcomeMenu}
	}

	// Side commands are reachable from any state. Entering one drops any
	// company scope so the company-selection invariant holds.
	switch input {
	case "preferences":
		return models.Outcome{Kind: models.OutcomePreferencesList, Preferences: s.Preferences}
	case "set preferences":
		e.enterSideState(s, models.StateAwaitingPreferenceChoice)
		return models.Outcome{Kind: models.OutcomePreferencePrompt}
	case "poll":
		e.enterSideState(s, models.StateAwaitingPollResponse)
		return models.Outcome{Kind: models.OutcomePollPrompt}
	case "reminder":
		e.enterSideState(s, models.StateAwaitingReminderResponse)
		return models.Outcome{Kind: models.OutcomeReminderPrompt}
	case "bye":
		e.enterSideState(s, models.StateAwaitingPostExitChoice)
		return models.Outcome{Kind: models.OutcomePostExitPrompt}
	}

	switch s.State {
	case models.StateMainMenu, "":
		return e.fromMainMenu(s, input)
	case models.StateCompanySelected:
		return e.fromCompanySelected(ctx, s, input)
	case models.StateAwaitingDateEmail:
		return e.fromAwaitingDateEmail(ctx, s, input)
	case models.StateAwaitingCancelID:
		return e.fromAwaitingCancelID(ctx, s, input)
	case models.StateAwaitingPreferenceChoice:
		return e.fromAwaitingPreference(s, input)
	case models.StateAwaitingPostExitChoice:
		return e.fromAwaitingPostExit(s, input)
	case models.StateAwaitingPollResponse:
		s.State = models.StateMainMenu
		return models.Outcome{Kind: models.OutcomePollThanks}
	case models.StateAwaitingReminderResponse:
		return e.fromAwaitingReminder(s, input)
	default:
		slog.Error("menu.Transition unknown session state", "session_id", s.SessionID, "state", s.State)
		s.Reset()
		return models.Outcome{Kind: models.OutcomeSystemError}
	}
}

// enterSideState moves into a side conversation, clearing any company scope.
func (e *Engine) enterSideState(s *models.Session, state models.SessionState) {
	s.State = state
	s.SelectedCompanyID = 0
	s.Pending = models.PendingContext{}
}

func (e *Engine) fromMainMenu(s *models.Session, input string) models.Outcome {
	if co, ok := e.catalog.ByKey(input); ok {
		s.State = models.StateCompanySelected
		s.SelectedCompanyID = co.ExternalID
		return models.Outcome{Kind: models.OutcomeCompanyMenu, Company: co}
	}
	return models.Outcome{Kind: models.OutcomeInvalidCompany}
}

// selectedCompany resolves the session's company or fails the turn safely.
func (e *Engine) selectedCompany(s *models.Session) (models.Company, bool) {
	co, ok := e.catalog.ByExternalID(s.SelectedCompanyID)
	if !ok {
		slog.Error("menu: session references unknown company", "session_id", s.SessionID, "company_id", s.SelectedCompanyID, "error", models.ErrUnknownCompany)
		s.Reset()
	}
	return co, ok
}

func (e *Engine) fromCompanySelected(ctx context.Context, s *models.Session, input string) models.Outcome {
	co, ok := e.selectedCompany(s)
	if !ok {
		return models.Outcome{Kind: models.OutcomeSystemError}
	}

	// Digits first.
	switch models.DetailOption(input) {
	case "0":
		return models.Outcome{Kind: models.OutcomeCompanyMenu, Company: co}
	case models.OptionAbout, models.OptionPrices, models.OptionBooking:
		return e.fetchDetail(ctx, co, models.DetailOption(input))
	case models.OptionCancel:
		s.State = models.StateAwaitingDateEmail
		return models.Outcome{Kind: models.OutcomeDateEmailPrompt, Company: co}
	}

	// Then keywords, exact token equality only.
	if isBackCommand(input) {
		s.State = models.StateMainMenu
		s.SelectedCompanyID = 0
		return models.Outcome{Kind: models.OutcomeWelcomeMenu}
	}

	return models.Outcome{Kind: models.OutcomeInvalidOption, Company: co}
}

// fetchDetail invokes the detail fetcher for options 1..3. Failures of
// either category degrade to the static fallback; the composer renders the
// nil payload accordingly.
func (e *Engine) fetchDetail(ctx context.Context, co models.Company, option models.DetailOption) models.Outcome {
	payload, err := e.fetcher.FetchDetails(ctx, models.DetailRequest{
		CompanyID: co.ExternalID,
		OptionID:  string(option),
	})
	if err != nil {
		slog.Error("menu: detail fetch failed, using fallback", "company_id", co.ExternalID, "option", option, "transport", booking.IsTransportFailure(err), "business", booking.IsBusinessFailure(err), "error", err)
		return models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: option}
	}
	return models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: option, Payload: payload}
}

func (e *Engine) fromAwaitingDateEmail(ctx context.Context, s *models.Session, input string) models.Outcome {
	co, ok := e.selectedCompany(s)
	if !ok {
		return models.Outcome{Kind: models.OutcomeSystemError}
	}

	date, email, found := strings.Cut(input, " ")
	if !found || date == "" || strings.TrimSpace(email) == "" {
		return models.Outcome{Kind: models.OutcomeDateEmailFormatHint, Company: co}
	}
	email = strings.TrimSpace(email)

	payload, err := e.fetcher.FetchDetails(ctx, models.DetailRequest{
		CompanyID: co.ExternalID,
		Date:      date,
		Email:     email,
	})
	if err != nil || len(payload.Appointments) == 0 {
		if err != nil {
			slog.Error("menu: appointment lookup failed", "company_id", co.ExternalID, "transport", booking.IsTransportFailure(err), "error", err)
		}
		s.State = models.StateCompanySelected
		return models.Outcome{Kind: models.OutcomeAppointmentLookup, Company: co, Date: date, Email: email}
	}

	s.State = models.StateAwaitingCancelID
	s.Pending = models.PendingContext{Date: date, Email: email}
	return models.Outcome{
		Kind:    models.OutcomeAppointmentList,
		Company: co,
		Payload: payload,
		Date:    date,
		Email:   email,
	}
}

func (e *Engine) fromAwaitingCancelID(ctx context.Context, s *models.Session, input string) models.Outcome {
	co, ok := e.selectedCompany(s)
	if !ok {
		return models.Outcome{Kind: models.OutcomeSystemError}
	}

	appointmentID, err := strconv.Atoi(input)
	if err != nil {
		return models.Outcome{Kind: models.OutcomeInvalidCancelID, Company: co}
	}

	s.State = models.StateCompanySelected
	s.Pending = models.PendingContext{}

	if _, err := e.fetcher.CancelAppointment(ctx, appointmentID); err != nil {
		slog.Error("menu: cancellation failed", "company_id", co.ExternalID, "appointment_id", appointmentID, "transport", booking.IsTransportFailure(err), "error", err)
		return models.Outcome{Kind: models.OutcomeCancelFailed, Company: co}
	}
	return models.Outcome{Kind: models.OutcomeCancelConfirmed, Company: co}
}

func (e *Engine) fromAwaitingPreference(s *models.Session, input string) models.Outcome {
	code := models.PreferenceCode(input)
	if _, ok := catalog.PreferenceLabels[code]; !ok {
		return models.Outcome{Kind: models.OutcomePreferenceInvalid}
	}
	s.AddPreference(code)
	s.State = models.StateMainMenu
	return models.Outcome{Kind: models.OutcomePreferenceAdded, Preference: code}
}

func (e *Engine) fromAwaitingPostExit(s *models.Session, input string) models.Outcome {
	switch input {
	case "1":
		s.State = models.StateMainMenu
		return models.Outcome{Kind: models.OutcomeFeedbackThanks}
	case "2":
		s.State = models.StateAwaitingPollResponse
		return models.Outcome{Kind: models.OutcomePollPrompt}
	case "3":
		s.State = models.StateAwaitingReminderResponse
		return models.Outcome{Kind: models.OutcomeReminderPrompt}
	case "no":
		s.Reset()
		return models.Outcome{Kind: models.OutcomeGoodbye}
	default:
		return models.Outcome{Kind: models.OutcomePostExitPrompt}
	}
}

func (e *Engine) fromAwaitingReminder(s *models.Session, input string) models.Outcome {
	switch input {
	case "1":
		s.AddPreference(models.PreferenceReminders)
		s.State = models.StateMainMenu
		return models.Outcome{Kind: models.OutcomeReminderEnabled, Preference: models.PreferenceReminders}
	case "2":
		s.RemovePreference(models.PreferenceReminders)
		s.State = models.StateMainMenu
		return models.Outcome{Kind: models.OutcomeReminderDisabled, Preference: models.PreferenceReminders}
	default:
		return models.Outcome{Kind: models.OutcomeReminderPrompt}
	}
}
