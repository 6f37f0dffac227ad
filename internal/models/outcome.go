// Package models: transition outcome types shared by the menu engine and the
// response composer, kept here to avoid circular imports.
package models

// OutcomeKind classifies the result of a menu transition.
type OutcomeKind string

const (
	OutcomeWelcomeMenu         OutcomeKind = "welcome_menu"
	OutcomeCompanyMenu         OutcomeKind = "company_menu"
	OutcomeInvalidCompany      OutcomeKind = "invalid_company"
	OutcomeInvalidOption       OutcomeKind = "invalid_option"
	OutcomeDetail              OutcomeKind = "detail"
	OutcomeDateEmailPrompt     OutcomeKind = "date_email_prompt"
	OutcomeDateEmailFormatHint OutcomeKind = "date_email_format_hint"
	OutcomeAppointmentList     OutcomeKind = "appointment_list"
	OutcomeAppointmentLookup   OutcomeKind = "appointment_lookup_failed"
	OutcomeInvalidCancelID     OutcomeKind = "invalid_cancel_id"
	OutcomeCancelConfirmed     OutcomeKind = "cancel_confirmed"
	OutcomeCancelFailed        OutcomeKind = "cancel_failed"
	OutcomePreferencesList     OutcomeKind = "preferences_list"
	OutcomePreferencePrompt    OutcomeKind = "preference_prompt"
	OutcomePreferenceAdded     OutcomeKind = "preference_added"
	OutcomePreferenceInvalid   OutcomeKind = "preference_invalid"
	OutcomePostExitPrompt      OutcomeKind = "post_exit_prompt"
	OutcomeFeedbackThanks      OutcomeKind = "feedback_thanks"
	OutcomePollPrompt          OutcomeKind = "poll_prompt"
	OutcomePollThanks          OutcomeKind = "poll_thanks"
	OutcomeReminderPrompt      OutcomeKind = "reminder_prompt"
	OutcomeReminderEnabled     OutcomeKind = "reminder_enabled"
	OutcomeReminderDisabled    OutcomeKind = "reminder_disabled"
	OutcomeGoodbye             OutcomeKind = "goodbye"
	OutcomeSystemError         OutcomeKind = "system_error"
)

// Outcome is the result of one menu transition, carrying everything the
// response composer needs to render exactly one reply.
type Outcome struct {
	Kind        OutcomeKind
	Company     Company                 // set for company-scoped outcomes
	Option      DetailOption            // set for OutcomeDetail and fallback rendering
	Payload     *DetailPayload          // fetched data; nil when the fetch failed
	Preference  PreferenceCode          // set for preference outcomes
	Preferences map[PreferenceCode]bool // snapshot for OutcomePreferencesList
	Date        string                  // echo of the parsed appointment lookup input
	Email       string
}
