package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"unset uses default true", "", true, true},
		{"unset uses default false", "", false, false},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"yes", "yes", false, true},
		{"on", "on", false, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"no", "no", true, false},
		{"off", "off", true, false},
		{"mixed case", "TRUE", false, true},
		{"surrounding whitespace", "  true  ", false, true},
		{"invalid uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("SALONBOT_TEST_BOOL", tt.value)
			}
			got := ParseBoolEnv("SALONBOT_TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}
