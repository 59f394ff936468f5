package matcher

import (
	"fmt"
	"regexp"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// Rule pairs a regular expression with the category it implies.
type Rule struct {
	Pattern  string
	Category types.Category
}

// Matcher classifies log lines against ordered ignore and interest pattern
// sets. Ignore patterns take precedence: a line matching any ignore pattern is
// never interesting, no matter which interest patterns it also matches.
// Classification is a pure function of the compiled configuration.
type Matcher struct {
	ignore   []*regexp.Regexp
	interest map[types.Category][]*regexp.Regexp
}

// New compiles the configured pattern sets. Patterns match case-insensitively.
func New(ignore []Rule, interest []Rule) (*Matcher, error) {
	m := &Matcher{
		interest: make(map[types.Category][]*regexp.Regexp),
	}

	for i, rule := range ignore {
		re, err := compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %d (%q): %w", i, rule.Pattern, err)
		}
		m.ignore = append(m.ignore, re)
	}

	for i, rule := range interest {
		re, err := compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("interest pattern %d (%q): %w", i, rule.Pattern, err)
		}
		cat := rule.Category
		if cat == "" {
			cat = types.CategoryUnknown
		}
		m.interest[cat] = append(m.interest[cat], re)
	}

	return m, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Classify classifies a single log line.
func (m *Matcher) Classify(line string) types.MatchEvent {
	for _, re := range m.ignore {
		if re.MatchString(line) {
			return types.MatchEvent{Ignored: true, Category: types.CategoryUnknown}
		}
	}

	// Scan in severity order so the most severe matching category wins
	// regardless of configuration order.
	for _, cat := range types.CategoryOrder {
		for _, re := range m.interest[cat] {
			if re.MatchString(line) {
				return types.MatchEvent{Interesting: true, Category: cat}
			}
		}
	}

	return types.MatchEvent{Category: types.CategoryUnknown}
}
