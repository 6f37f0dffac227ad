package compose

import (
	"strings"
	"testing"

	"github.com/ezoncs/salonbot/internal/catalog"
	"github.com/ezoncs/salonbot/internal/models"
)

func testComposer() (*Composer, models.Company) {
	cat := catalog.Default()
	co, _ := cat.ByKey("3")
	return New(cat), co
}

func TestRenderPricesPreservesUpstreamOrder(t *testing.T) {
	c, co := testComposer()
	payload := &models.DetailPayload{
		Success: true,
		Prices: []models.PriceItem{
			{ServiceName: "Zebra Wrap", ServiceCategory: "Body", Price: "€80"},
			{ServiceName: "Aloe Facial", ServiceCategory: "Skin", Price: "€45"},
		},
	}
	out := c.Render(models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: models.OptionPrices, Payload: payload})

	zebra := strings.Index(out, "Zebra Wrap")
	aloe := strings.Index(out, "Aloe Facial")
	if zebra == -1 || aloe == -1 {
		t.Fatalf("missing price lines:\n%s", out)
	}
	if zebra > aloe {
		t.Error("price list was re-sorted; upstream order must be preserved")
	}
	for _, want := range []string{"Zebra Wrap", "Body", "€80", "Aloe Facial", "Skin", "€45"} {
		if !strings.Contains(out, want) {
			t.Errorf("price rendering missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPricesMissingFieldsUsePlaceholder(t *testing.T) {
	c, co := testComposer()
	payload := &models.DetailPayload{
		Success: true,
		Prices:  []models.PriceItem{{ServiceName: "Haircut"}},
	}
	out := c.Render(models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: models.OptionPrices, Payload: payload})
	if !strings.Contains(out, Placeholder) {
		t.Errorf("expected placeholder for missing fields:\n%s", out)
	}
}

func TestRenderDetailFallbackOnNilPayload(t *testing.T) {
	c, co := testComposer()
	out := c.Render(models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: models.OptionAbout})
	if !strings.Contains(out, "About us") {
		t.Errorf("expected about-us fallback text:\n%s", out)
	}
	if strings.Contains(out, "error") || strings.Contains(out, "Error") {
		t.Errorf("fallback must not look like an error trace:\n%s", out)
	}
}

func TestRenderDetailAppendsBackAffordance(t *testing.T) {
	c, co := testComposer()
	payload := &models.DetailPayload{Success: true, CompanyLink: "https://evolve-denhaag.com"}
	out := c.Render(models.Outcome{Kind: models.OutcomeDetail, Company: co, Option: models.OptionAbout, Payload: payload})
	if !strings.Contains(out, "Press 0️⃣ or type 'menu' to go back.") {
		t.Errorf("expected go-back affordance:\n%s", out)
	}
}

func TestRenderAppointmentListIncludesIDsAndTimes(t *testing.T) {
	c, co := testComposer()
	payload := &models.DetailPayload{
		Success: true,
		Appointments: []models.Appointment{
			{AppointmentID: 101, Time: "10:00"},
			{AppointmentID: 102, Time: "14:30"},
		},
	}
	out := c.Render(models.Outcome{
		Kind:    models.OutcomeAppointmentList,
		Company: co,
		Payload: payload,
		Date:    "2024-10-12",
		Email:   "a@b.com",
	})

	for _, want := range []string{"ID: 101", "10:00", "ID: 102", "14:30", "AppointmentID"} {
		if !strings.Contains(out, want) {
			t.Errorf("appointment list missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ID: 101") > strings.Index(out, "ID: 102") {
		t.Error("appointment list was re-sorted; upstream order must be preserved")
	}
}

func TestRenderPreferencesList(t *testing.T) {
	c, _ := testComposer()

	out := c.Render(models.Outcome{Kind: models.OutcomePreferencesList})
	if !strings.Contains(out, "haven't set any preferences") {
		t.Errorf("expected empty-preferences message:\n%s", out)
	}

	out = c.Render(models.Outcome{
		Kind: models.OutcomePreferencesList,
		Preferences: map[models.PreferenceCode]bool{
			models.PreferenceDailyTips: true,
			models.PreferenceReminders: true,
		},
	})
	if !strings.Contains(out, "Receive daily tips") || !strings.Contains(out, "Receive appointment reminders") {
		t.Errorf("expected both preference labels:\n%s", out)
	}
}

func TestRenderWelcomeAndCompanyMenus(t *testing.T) {
	c, co := testComposer()

	out := c.Render(models.Outcome{Kind: models.OutcomeWelcomeMenu})
	if out != catalog.Default().WelcomeMenu() {
		t.Errorf("welcome menu mismatch:\n%s", out)
	}

	out = c.Render(models.Outcome{Kind: models.OutcomeCompanyMenu, Company: co})
	if out != catalog.Default().CompanyMenu(co) {
		t.Errorf("company menu mismatch:\n%s", out)
	}
}

func TestRenderEveryKindYieldsNonEmptyReply(t *testing.T) {
	c, co := testComposer()
	kinds := []models.OutcomeKind{
		models.OutcomeWelcomeMenu, models.OutcomeCompanyMenu, models.OutcomeInvalidCompany,
		models.OutcomeInvalidOption, models.OutcomeDetail, models.OutcomeDateEmailPrompt,
		models.OutcomeDateEmailFormatHint, models.OutcomeAppointmentList, models.OutcomeAppointmentLookup,
		models.OutcomeInvalidCancelID, models.OutcomeCancelConfirmed, models.OutcomeCancelFailed,
		models.OutcomePreferencesList, models.OutcomePreferencePrompt, models.OutcomePreferenceAdded,
		models.OutcomePreferenceInvalid, models.OutcomePostExitPrompt, models.OutcomeFeedbackThanks,
		models.OutcomePollPrompt, models.OutcomePollThanks, models.OutcomeReminderPrompt,
		models.OutcomeReminderEnabled, models.OutcomeReminderDisabled, models.OutcomeGoodbye,
		models.OutcomeSystemError, models.OutcomeKind("unknown"),
	}
	for _, kind := range kinds {
		if out := c.Render(models.Outcome{Kind: kind, Company: co}); out == "" {
			t.Errorf("kind %q rendered an empty reply", kind)
		}
	}
}
