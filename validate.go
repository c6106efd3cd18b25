package tablesearch

import (
	"fmt"
	"strings"
)

// TotalEntriesPhrase is reported by the demo table whenever a search filters
// its 24 rows.
const TotalEntriesPhrase = "filtered from 24 total entries"

// Scenario is a search term and the number of rows it should leave shown.
type Scenario struct {
	Term  string `yaml:"term"`
	Count int    `yaml:"count"`
}

func (sc Scenario) String() string {
	return fmt.Sprintf("%s=%d", sc.Term, sc.Count)
}

// DefaultScenarios are the searches checked when none are configured.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Term: "New York", Count: 5},
		{Term: "San Francisco", Count: 3},
		{Term: "Chicago", Count: 1},
	}
}

// ShownPhrase is the part of the result summary that reports n shown rows.
func ShownPhrase(n int) string {
	return fmt.Sprintf("Showing 1 to %d of %d", n, n)
}

// MismatchError reports a result summary that lacks an expected phrase.
type MismatchError struct {
	Want string
	Text string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %q but got: %s", e.Want, e.Text)
}

// Validate checks that the result summary text reports the filtered total
// and want shown rows. Both checks are plain substring matches.
func Validate(text string, want int) error {
	if !strings.Contains(text, TotalEntriesPhrase) {
		return &MismatchError{Want: TotalEntriesPhrase, Text: text}
	}
	if shown := ShownPhrase(want); !strings.Contains(text, shown) {
		return &MismatchError{Want: shown, Text: text}
	}
	return nil
}
