package intent

import (
	"math/rand/v2"
	"regexp"
	"testing"
)

// seededMatcher pins the response choice so tests are deterministic.
func seededMatcher(opts ...Option) *Matcher {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewMatcher(opts...)
}

func TestMatchExactPhrase(t *testing.T) {
	m := seededMatcher()
	reply, ok := m.Match("hello")
	if !ok {
		t.Fatal("expected a match for 'hello'")
	}
	if reply == "" {
		t.Error("expected a non-empty canned reply")
	}
}

func TestMatchIsDeterministicWithSeededRand(t *testing.T) {
	first, ok := seededMatcher().Match("hello")
	if !ok {
		t.Fatal("expected a match")
	}
	second, _ := seededMatcher().Match("hello")
	if first != second {
		t.Errorf("same seed produced different replies: %q vs %q", first, second)
	}
}

func TestMatchPhraseContainment(t *testing.T) {
	m := seededMatcher()
	if _, ok := m.Match("ok thank you so much"); !ok {
		t.Error("expected containment match for embedded 'thank you'")
	}
	// 'hi' inside another word must not trigger the greeting.
	if reply, ok := m.Match("this"); ok {
		t.Errorf("unexpected match for 'this': %q", reply)
	}
}

func TestMatchPatternIntents(t *testing.T) {
	m := seededMatcher()

	reply, ok := m.Match("how much do facials cost, any price list?")
	if !ok {
		t.Fatal("expected price pattern match")
	}
	if reply != DefaultPatterns()[0].Reply {
		t.Errorf("price pattern reply mismatch: %q", reply)
	}

	reply, ok = m.Match("i want to book something")
	if !ok {
		t.Fatal("expected booking pattern match")
	}
	if reply != DefaultPatterns()[1].Reply {
		t.Errorf("booking pattern reply mismatch: %q", reply)
	}
}

func TestPhrasesWinOverPatterns(t *testing.T) {
	phrases := []Phrase{{Key: "greeting", Triggers: []string{"hello"}, Responses: []string{"phrase wins"}}}
	patterns := []Pattern{{Key: "all", Regex: regexp.MustCompile(`.`), Reply: "pattern"}}
	m := seededMatcher(WithPhrases(phrases), WithPatterns(patterns))

	reply, ok := m.Match("hello")
	if !ok || reply != "phrase wins" {
		t.Errorf("expected phrase to win, got %q (ok=%v)", reply, ok)
	}
}

func TestNoMatchPassesThrough(t *testing.T) {
	m := seededMatcher()
	for _, text := range []string{"menu", "3", "2024-10-12 a@b.com", "bye"} {
		if reply, ok := m.Match(text); ok {
			t.Errorf("expected %q to pass through to the menu graph, got reply %q", text, reply)
		}
	}
}

func TestMatchDoesNotMatchMenuCommands(t *testing.T) {
	// Menu reset commands must reach the state machine untouched.
	m := seededMatcher()
	for _, text := range []string{"menu", "start", "main menu"} {
		if _, ok := m.Match(text); ok {
			t.Errorf("intent matcher must not consume %q", text)
		}
	}
}
