// Package compose renders transition outcomes into outbound text.
//
// Rendering is pure and deterministic: list payloads keep the upstream item
// order, missing fields fall back to a literal placeholder, and substantive
// replies carry a consistent go-back affordance. Render never fails; every
// outcome maps to exactly one reply string.
package compose

import (
	"fmt"
	"strings"

	"github.com/ezoncs/salonbot/internal/catalog"
	"github.com/ezoncs/salonbot/internal/models"
)

// Placeholder substitutes any missing payload field, never a blank.
const Placeholder = "(not available)"

// backAffordance is appended after every substantive reply.
const backAffordance = "\n\nPress 0️⃣ or type 'menu' to go back."

// Option-specific static fallbacks used when live data cannot be obtained.
var fallbackTexts = map[models.DetailOption]string{
	models.OptionAbout:   "ℹ️ About us: We provide exceptional beauty services. 🌟 Feel free to ask more!",
	models.OptionPrices:  "💲 Prices: Visit our website for detailed pricing information. 🖥️ Let me know if you need specifics!",
	models.OptionBooking: "📅 Online booking: You can book an appointment online at our website. 📲 Would you like assistance with booking?",
	models.OptionCancel:  "❌ Cancel appointment: Please contact us directly to cancel your appointment. 📞",
}

// Composer renders outcomes using a company catalog for menu text.
type Composer struct {
	catalog *catalog.Catalog
}

// New creates a composer over the given catalog.
func New(cat *catalog.Catalog) *Composer {
	return &Composer{catalog: cat}
}

// Render maps a transition outcome to the single outbound reply.
func (c *Composer) Render(o models.Outcome) string {
	switch o.Kind {
	case models.OutcomeWelcomeMenu:
		return c.catalog.WelcomeMenu()

	case models.OutcomeCompanyMenu:
		return c.catalog.CompanyMenu(o.Company)

	case models.OutcomeInvalidCompany:
		return "❗ Invalid option. Please select a valid company number or type 'menu' to see the options again. 🔄\n\n" +
			c.catalog.WelcomeMenu()

	case models.OutcomeInvalidOption:
		return "❗ Invalid option.\n\n" + c.catalog.CompanyMenu(o.Company)

	case models.OutcomeDetail:
		return c.renderDetail(o) + backAffordance

	case models.OutcomeDateEmailPrompt:
		return "Please provide the date (YYYY-MM-DD) and email for your appointment.\nExample: 2024-10-12 example@mail.com"

	case models.OutcomeDateEmailFormatHint:
		return "Invalid format. Please provide the date and email in the format 'YYYY-MM-DD email'."

	case models.OutcomeAppointmentList:
		return renderAppointments(o) + "\n\nPlease reply with the AppointmentID you want to cancel."

	case models.OutcomeAppointmentLookup:
		return "No appointments found for that date and email. Please try again with different details." + backAffordance

	case models.OutcomeInvalidCancelID:
		return "Invalid AppointmentID. Please provide a valid number."

	case models.OutcomeCancelConfirmed:
		return "Your appointment has been successfully cancelled. ✅" + backAffordance

	case models.OutcomeCancelFailed:
		return "Failed to cancel the appointment. Please try again later." + backAffordance

	case models.OutcomePreferencesList:
		return renderPreferencesList(o)

	case models.OutcomePreferencePrompt:
		return catalog.PreferenceMenu()

	case models.OutcomePreferenceAdded:
		label := catalog.PreferenceLabels[o.Preference]
		if label == "" {
			label = Placeholder
		}
		return fmt.Sprintf("Preference '%s' added. Type 'preferences' to see your current preferences or 'set preferences' to add more.", label)

	case models.OutcomePreferenceInvalid:
		return "❗ Invalid preference option. Please choose a valid option or type 'set preferences' to try again."

	case models.OutcomePostExitPrompt:
		return "Goodbye! Before you go, would you like to:\n" +
			"1️⃣ Provide Feedback\n" +
			"2️⃣ Participate in a Poll\n" +
			"3️⃣ Set a Reminder\n\n" +
			"Reply with the number of your choice or 'no' to exit."

	case models.OutcomeFeedbackThanks:
		return "We'd love to hear your feedback! 📝 Please let us know how we did."

	case models.OutcomePollPrompt:
		return "🗳️ Poll: What feature would you like to see next?\n" +
			"1️⃣ New Services\n" +
			"2️⃣ Special Offers\n" +
			"3️⃣ Loyalty Programs"

	case models.OutcomePollThanks:
		return "Thank you for participating in the poll!"

	case models.OutcomeReminderPrompt:
		return "🔔 Reminder: Would you like to set a reminder for your upcoming appointments?\n1️⃣ Yes\n2️⃣ No"

	case models.OutcomeReminderEnabled:
		return "🔔 Reminder: You will receive reminders for your upcoming appointments."

	case models.OutcomeReminderDisabled:
		return "You will not receive appointment reminders."

	case models.OutcomeGoodbye:
		return "Thank you for using our service. Have a great day! 🌟"

	case models.OutcomeSystemError:
		return "⚠️ Something went wrong on our side. Please try again or type 'menu' to return to the main menu. 🔄"

	default:
		return "❓ Sorry, I didn't understand that. Type 'help' for assistance. 🤔"
	}
}

// renderDetail renders a fetched payload for options 1..3, or the static
// fallback when the fetch failed.
func (c *Composer) renderDetail(o models.Outcome) string {
	if o.Payload == nil {
		return Fallback(o.Option)
	}
	switch o.Option {
	case models.OptionAbout:
		link := o.Payload.CompanyLink
		if link == "" {
			link = Placeholder
		}
		return fmt.Sprintf("%s - About us 🏠:\nClick here: %s", o.Company.DisplayName, link)

	case models.OptionPrices:
		if len(o.Payload.Prices) == 0 {
			return Fallback(models.OptionPrices)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s - Prices 💲:\n", o.Company.DisplayName)
		for _, p := range o.Payload.Prices {
			fmt.Fprintf(&b, "💇 %s (%s): %s\n", orPlaceholder(p.ServiceName), orPlaceholder(p.ServiceCategory), orPlaceholder(p.Price))
		}
		return strings.TrimRight(b.String(), "\n")

	case models.OptionBooking:
		link := o.Payload.BookingLink
		if link == "" {
			link = Placeholder
		}
		return fmt.Sprintf("%s - Online booking 📅:\nClick here to book: %s", o.Company.DisplayName, link)

	default:
		return Fallback(o.Option)
	}
}

func renderAppointments(o models.Outcome) string {
	if o.Payload == nil {
		return Fallback(models.OptionCancel)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Appointments for %s on %s:\n", orPlaceholder(o.Email), orPlaceholder(o.Date))
	for _, a := range o.Payload.Appointments {
		fmt.Fprintf(&b, "ID: %d, Time: %s\n", a.AppointmentID, orPlaceholder(a.Time))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPreferencesList(o models.Outcome) string {
	var set []string
	for _, code := range catalog.PreferenceCodes {
		if o.Preferences[code] {
			set = append(set, catalog.PreferenceLabels[code])
		}
	}
	if len(set) == 0 {
		return "You haven't set any preferences yet. Type 'set preferences' to choose your preferences."
	}
	return "Your current preferences are: " + strings.Join(set, ", ")
}

// Fallback returns the static option-specific message substituted when live
// data cannot be obtained.
func Fallback(option models.DetailOption) string {
	if text, ok := fallbackTexts[option]; ok {
		return text
	}
	return fallbackTexts[models.OptionAbout]
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
