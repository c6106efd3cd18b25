package tablesearch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	selog "github.com/tebeka/selenium/log"

	"github.com/wanmail/tablesearch/log"
)

// ErrScenarioFailed is wrapped by the error Run returns when at least one
// scenario failed.
var ErrScenarioFailed = errors.New("scenario failed")

// Result is the outcome of one scenario.
type Result struct {
	Scenario Scenario
	// Browser is the browser the scenario ran in.
	Browser  Browser
	Text     string
	Err      error
	Duration time.Duration
}

// Passed reports whether the scenario succeeded.
func (r Result) Passed() bool { return r.Err == nil }

// Run opens one session of b and checks every scenario in order, calling
// report after each. A failing scenario does not stop the following ones.
// The session is closed before Run returns, whatever the outcome.
func Run(l *Launcher, b Browser, scenarios []Scenario, report func(Result)) (err error) {
	s, err := l.Open(b)
	if err != nil {
		return err
	}
	defer func() {
		s.RelayBrowserLogs()
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	var failed []string
	for _, sc := range scenarios {
		start := time.Now()
		text, cerr := s.Check(sc)
		r := Result{Scenario: sc, Browser: s.Browser, Text: text, Err: cerr, Duration: time.Since(start)}
		if report != nil {
			report(r)
		}
		if cerr != nil {
			failed = append(failed, fmt.Sprintf("%q", sc.Term))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d (%s)", ErrScenarioFailed, len(failed), len(scenarios), strings.Join(failed, ", "))
	}
	return nil
}

// RelayBrowserLogs copies the browser console log into the session log.
// Drivers without log support (geckodriver) are skipped.
func (s *Session) RelayBrowserLogs() {
	if s.Browser == Firefox {
		return
	}
	msgs, err := s.Log(selog.Browser)
	if err != nil {
		s.logger.WithError(err).Debug("Browser logs are not available.")
		return
	}
	log.Relay(s.logger, selog.Browser, msgs)
}
