package catalog

import (
	"strings"
	"testing"
)

func TestLookupByKeyAndExternalIDResolveSameRecord(t *testing.T) {
	c := Default()
	for _, co := range c.Companies() {
		byKey, ok := c.ByKey(co.Key)
		if !ok {
			t.Fatalf("ByKey(%q) not found", co.Key)
		}
		byID, ok := c.ByExternalID(co.ExternalID)
		if !ok {
			t.Fatalf("ByExternalID(%d) not found", co.ExternalID)
		}
		if byKey != byID {
			t.Errorf("key %q and external ID %d resolve to different records: %+v vs %+v", co.Key, co.ExternalID, byKey, byID)
		}
	}
}

func TestByKeyUnknownDigit(t *testing.T) {
	c := Default()
	if _, ok := c.ByKey("9"); ok {
		t.Error("expected lookup miss for digit 9")
	}
}

func TestWelcomeMenuListsAllCompanies(t *testing.T) {
	c := Default()
	menu := c.WelcomeMenu()
	for _, co := range c.Companies() {
		if !strings.Contains(menu, co.DisplayName) {
			t.Errorf("welcome menu missing company %q", co.DisplayName)
		}
	}
}

func TestCompanyMenuContainsAllOptions(t *testing.T) {
	c := Default()
	co, _ := c.ByKey("3")
	menu := c.CompanyMenu(co)
	for _, want := range []string{co.DisplayName, "About us", "Prices", "Online booking", "Cancel appointment"} {
		if !strings.Contains(menu, want) {
			t.Errorf("company menu missing %q:\n%s", want, menu)
		}
	}
}
