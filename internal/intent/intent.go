// Package intent classifies inbound text into canned-reply categories before
// any session state is consulted.
//
// Matching runs in priority order: exact match against the common-phrase
// table, then word-boundary containment of the same phrase triggers, then
// regex pattern intents. The first match wins and short-circuits the turn.
// The matcher holds no state and never touches sessions.
package intent

import (
	"math/rand/v2"
	"regexp"
)

// Phrase is one entry in the common-phrase table. Triggers are matched
// exactly first and by word-boundary containment afterwards; the reply is
// chosen uniformly at random from Responses.
type Phrase struct {
	Key       string
	Triggers  []string
	Responses []string
}

// Pattern is a regex intent with a single fixed reply.
type Pattern struct {
	Key   string
	Regex *regexp.Regexp
	Reply string
}

// Opts holds configuration options for the matcher.
type Opts struct {
	Rand     *rand.Rand
	Phrases  []Phrase
	Patterns []Pattern
}

// Option configures the matcher.
type Option func(*Opts)

// WithRand injects the random source used to pick among phrase responses,
// so tests can pin the choice.
func WithRand(r *rand.Rand) Option {
	return func(o *Opts) { o.Rand = r }
}

// WithPhrases replaces the default common-phrase table.
func WithPhrases(phrases []Phrase) Option {
	return func(o *Opts) { o.Phrases = phrases }
}

// WithPatterns replaces the default pattern intents.
func WithPatterns(patterns []Pattern) Option {
	return func(o *Opts) { o.Patterns = patterns }
}

// Matcher classifies normalized inbound text. Safe for concurrent use only
// when the injected rand source is; the default source is private to the
// matcher, so callers sharing a Matcher across goroutines should inject a
// locked source or accept the default per-engine usage.
type Matcher struct {
	rng          *rand.Rand
	phrases      []Phrase
	triggerWords []triggerWord
	patterns     []Pattern
}

type triggerWord struct {
	re     *regexp.Regexp
	phrase int // index into phrases
}

// NewMatcher builds a matcher from the default tables unless overridden.
func NewMatcher(opts ...Option) *Matcher {
	cfg := Opts{
		Rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Phrases:  DefaultPhrases(),
		Patterns: DefaultPatterns(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Matcher{rng: cfg.Rand, phrases: cfg.Phrases, patterns: cfg.Patterns}
	for i, p := range m.phrases {
		for _, trig := range p.Triggers {
			m.triggerWords = append(m.triggerWords, triggerWord{
				re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(trig) + `\b`),
				phrase: i,
			})
		}
	}
	return m
}

// Match classifies text and returns a canned reply. The boolean is false when
// no intent matched and control should pass to the menu graph.
func (m *Matcher) Match(text string) (string, bool) {
	// Exact phrase match first.
	for _, p := range m.phrases {
		for _, trig := range p.Triggers {
			if text == trig {
				return m.pick(p.Responses), true
			}
		}
	}

	// Then word-boundary containment, in table order so priority is stable.
	for _, tw := range m.triggerWords {
		if tw.re.MatchString(text) {
			return m.pick(m.phrases[tw.phrase].Responses), true
		}
	}

	// Pattern intents apply only when no common phrase matched.
	for _, p := range m.patterns {
		if p.Regex.MatchString(text) {
			return p.Reply, true
		}
	}
	return "", false
}

func (m *Matcher) pick(responses []string) string {
	if len(responses) == 0 {
		return ""
	}
	return responses[m.rng.IntN(len(responses))]
}

// HelpText is the canned help reply, also reused by the menu graph for its
// catch-all guidance.
const HelpText = "Here's how I can assist you:\n" +
	"1️⃣ Type 'menu' or 'start' to see the main menu.\n" +
	"2️⃣ Select a company to see their menu.\n" +
	"3️⃣ Choose an option to get more information.\n" +
	"4️⃣ Type 'help' to see this message again.\n" +
	"5️⃣ Type 'bye' to end the chat.\n\n" +
	"If you have specific questions, just ask! 😄"

// DefaultPhrases returns the production common-phrase table.
//
// Note: the exact token "bye" is deliberately absent; it is a menu-graph
// side-command that opens the post-exit flow.
func DefaultPhrases() []Phrase {
	return []Phrase{
		{
			Key:      "greeting",
			Triggers: []string{"hello", "hi", "hey"},
			Responses: []string{
				"Hello! How can I assist you today? 😊",
				"Hi there! How can I help you? 👋",
				"Hey! What can I do for you? 🤔",
			},
		},
		{
			Key:      "farewell",
			Triggers: []string{"goodbye", "see you later", "farewell"},
			Responses: []string{
				"Goodbye! Have a great day! 👋",
				"See you later! 👋",
				"Bye! Take care! ✨",
			},
		},
		{
			Key:      "thanks",
			Triggers: []string{"thank you", "thanks"},
			Responses: []string{
				"You're welcome! 😊",
				"Happy to help! 😃",
				"No problem at all! 👍",
			},
		},
		{
			Key:      "status_check",
			Triggers: []string{"how are you"},
			Responses: []string{
				"I'm just a bot, but I'm here to help you! 🤖",
				"I'm doing great! How about you? 😄",
				"I'm here and ready to assist you! 😊",
			},
		},
		{
			Key:       "help",
			Triggers:  []string{"help"},
			Responses: []string{HelpText},
		},
		{
			Key:      "feedback",
			Triggers: []string{"feedback"},
			Responses: []string{
				"We'd love to hear your feedback! 📝 Please let us know how we did.",
				"Your feedback is important to us! 🗣️ Please share your thoughts.",
				"Help us improve by providing your feedback! 🙌",
			},
		},
		{
			Key:       "faq_hours",
			Triggers:  []string{"working hours", "opening hours"},
			Responses: []string{"🕒 Our working hours are from 9 AM to 6 PM, Monday to Friday."},
		},
		{
			Key:       "faq_location",
			Triggers:  []string{"location", "where are you"},
			Responses: []string{"📍 We are located at Laan van Meerdervoort 214, Den Haag."},
		},
		{
			Key:       "faq_contact",
			Triggers:  []string{"contact"},
			Responses: []string{"📞 You can reach us at +31 70 123 4567 or email us at info@ezoncs.nl."},
		},
		{
			Key:       "faq_services",
			Triggers:  []string{"services"},
			Responses: []string{"💇 We offer a variety of beauty services including haircuts, facials, and more. Let us know what you need!"},
		},
	}
}

// DefaultPatterns returns the production pattern intents.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Key:   "price",
			Regex: regexp.MustCompile(`\bprice(?:s)?\b`),
			Reply: "💲 Our prices vary depending on the service. You can visit our website for detailed pricing information or let me know which specific service you're interested in. 🖥️",
		},
		{
			Key:   "booking",
			Regex: regexp.MustCompile(`\bbook(?:ing)?\b|\bappointment\b`),
			Reply: "📅 You can book an appointment online through our website. Would you like me to guide you through the process? 📝",
		},
	}
}
