// Package catalog holds the read-only company catalog and the static menu
// text that the conversation is built from.
package catalog

import (
	"fmt"
	"strings"

	"github.com/ezoncs/salonbot/internal/models"
)

// Catalog resolves companies by menu digit or by booking-platform ID.
// Both lookups return the same record.
type Catalog struct {
	companies    []models.Company
	byKey        map[string]models.Company
	byExternalID map[int]models.Company
}

// New builds a catalog from the given companies.
func New(companies []models.Company) *Catalog {
	c := &Catalog{
		companies:    companies,
		byKey:        make(map[string]models.Company, len(companies)),
		byExternalID: make(map[int]models.Company, len(companies)),
	}
	for _, co := range companies {
		c.byKey[co.Key] = co
		c.byExternalID[co.ExternalID] = co
	}
	return c
}

// Default returns the production salon catalog.
func Default() *Catalog {
	return New([]models.Company{
		{Key: "1", ExternalID: 10, DisplayName: "Ezoncs Beauty Salon Den Haag"},
		{Key: "2", ExternalID: 14, DisplayName: "Ezoncs Beauty Salon Rotterdam"},
		{Key: "3", ExternalID: 17, DisplayName: "Evolve Clinic Den Haag"},
		{Key: "4", ExternalID: 19, DisplayName: "Ezoncs Beauty Salon Amsterdam"},
		{Key: "5", ExternalID: 20, DisplayName: "Ezoncs Utrecht"},
		{Key: "6", ExternalID: 21, DisplayName: "Evolve Rotterdam"},
	})
}

// ByKey looks up a company by its menu digit.
func (c *Catalog) ByKey(key string) (models.Company, bool) {
	co, ok := c.byKey[key]
	return co, ok
}

// ByExternalID looks up a company by its booking-platform ID.
func (c *Catalog) ByExternalID(id int) (models.Company, bool) {
	co, ok := c.byExternalID[id]
	return co, ok
}

// Companies returns the catalog entries in menu order.
func (c *Catalog) Companies() []models.Company {
	return c.companies
}

// keycaps maps menu digits to their keycap emoji form.
var keycaps = map[string]string{
	"0": "0️⃣", "1": "1️⃣", "2": "2️⃣", "3": "3️⃣", "4": "4️⃣",
	"5": "5️⃣", "6": "6️⃣", "7": "7️⃣", "8": "8️⃣", "9": "9️⃣",
}

func keycap(digit string) string {
	if k, ok := keycaps[digit]; ok {
		return k
	}
	return digit
}

// WelcomeMenu renders the main menu listing all companies.
func (c *Catalog) WelcomeMenu() string {
	var b strings.Builder
	b.WriteString("Hello 👋! Welcome to our service. How can I assist you today?\n\n")
	b.WriteString("Please select the company you want to interact with:\n")
	for _, co := range c.companies {
		fmt.Fprintf(&b, "%s %s\n", keycap(co.Key), co.DisplayName)
	}
	b.WriteString("\n🆘 Type 'help' for assistance.")
	return b.String()
}

// CompanyMenu renders the option menu for one company.
func (c *Catalog) CompanyMenu(co models.Company) string {
	return co.DisplayName + " Menu:\n" +
		"1️⃣ About us 🏠\n" +
		"2️⃣ Prices 💲\n" +
		"3️⃣ Online booking 📅\n" +
		"4️⃣ Cancel appointment ❌\n" +
		"🔙 Type 'back' for the main menu"
}

// PreferenceLabels maps preference codes to their display labels, in menu
// order via PreferenceCodes.
var PreferenceLabels = map[models.PreferenceCode]string{
	models.PreferenceDailyTips:  "Receive daily tips",
	models.PreferenceReminders:  "Receive appointment reminders",
	models.PreferencePromotions: "Receive promotional offers",
}

// PreferenceCodes lists the preference codes in display order.
var PreferenceCodes = []models.PreferenceCode{
	models.PreferenceDailyTips,
	models.PreferenceReminders,
	models.PreferencePromotions,
}

// PreferenceMenu renders the preference selection prompt.
func PreferenceMenu() string {
	var b strings.Builder
	b.WriteString("Please select your preferences by typing the corresponding number:\n")
	for _, code := range PreferenceCodes {
		fmt.Fprintf(&b, "%s %s\n", keycap(string(code)), PreferenceLabels[code])
	}
	return strings.TrimRight(b.String(), "\n")
}

// DailyTips are broadcast to subscribers of the daily-tips preference.
var DailyTips = []string{
	"💡 Tip: Drink plenty of water to stay hydrated and keep your skin glowing!",
	"💡 Tip: Regular exercise can help maintain your overall health and well-being.",
	"💡 Tip: Always remove your makeup before going to bed to prevent skin issues.",
}
