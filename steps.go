package tablesearch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tebeka/selenium"

	"github.com/wanmail/tablesearch/internal/page"
)

// The demo page and the elements the scenario works with.
const (
	TargetPage          = "https://www.lambdatest.com/selenium-playground/table-sort-search-demo"
	SearchInputSelector = "#example_filter input[type='search']"
	ResultInfoID        = "example_info"
	// OfficeColumn is the table column the scenarios' search terms match.
	OfficeColumn        = "Office"
)

// Step names, as reported by StepError.
const (
	StepNavigate = "navigate"
	StepSearch   = "search"
	StepResult   = "result"
)

// ErrTimeout is wrapped by StepError when a bounded wait expires.
var ErrTimeout = errors.New("timed out waiting for element")

// StepError reports a page step that could not complete.
type StepError struct {
	Step     string
	Selector string
	// Msg describes the failure for humans.
	Msg string
	Err error
}

func (e *StepError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s): %v", e.Step, e.Msg, e.Selector, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Navigate loads the demo page.
func (s *Session) Navigate() error {
	s.logger.Infof("Navigating to the page: %s", s.url)
	if err := s.Get(s.url); err != nil {
		return &StepError{Step: StepNavigate, Msg: "page could not be loaded", Err: err}
	}
	return nil
}

// Search waits for the search box, clears it and types term.
func (s *Session) Search(term string) error {
	s.logger.Infof("Performing search for: %s", term)
	box, err := s.waitFor(StepSearch, selenium.ByCSSSelector, SearchInputSelector, false)
	if err != nil {
		s.logger.Error("Search box not found after waiting.")
		err.Msg = "search box was not located on the page"
		return err
	}
	if err := box.Clear(); err != nil {
		return &StepError{Step: StepSearch, Selector: SearchInputSelector, Msg: "search box could not be cleared", Err: err}
	}
	if err := box.SendKeys(term); err != nil {
		return &StepError{Step: StepSearch, Selector: SearchInputSelector, Msg: "search term could not be typed", Err: err}
	}
	return nil
}

// ResultText waits for the result info element to be visible and returns
// its text.
func (s *Session) ResultText() (string, error) {
	s.logger.Info("Fetching search result text.")
	info, err := s.waitFor(StepResult, selenium.ByID, ResultInfoID, true)
	if err != nil {
		s.logger.Error("Result info not found or took too long to load.")
		err.Msg = "result info element not found"
		return "", err
	}
	text, rerr := info.Text()
	if rerr != nil {
		return "", &StepError{Step: StepResult, Selector: ResultInfoID, Msg: "result info text could not be read", Err: rerr}
	}
	return text, nil
}

// Check runs one scenario on the demo page: navigate, search, read the
// result summary and validate it. The summary text is returned even when
// validation fails.
func (s *Session) Check(sc Scenario) (string, error) {
	if err := s.Navigate(); err != nil {
		return "", err
	}
	if err := s.Search(sc.Term); err != nil {
		return "", err
	}
	text, err := s.ResultText()
	if err != nil {
		return "", err
	}
	s.logger.Infof("Result Info Text: %s", text)
	s.logRenderedRows()

	if err := Validate(text, sc.Count); err != nil {
		s.logger.WithError(err).Errorf("Validation failed for '%s'.", sc.Term)
		return text, err
	}
	s.logger.Infof("Search and validation test passed for '%s'.", sc.Term)
	return text, nil
}

// waitFor polls until the element is present (and displayed, if visible is
// set) or the session timeout expires. Elements that are not in the DOM yet
// keep the wait going; any other driver error ends it.
func (s *Session) waitFor(step, by, value string, visible bool) (selenium.WebElement, *StepError) {
	var (
		found   selenium.WebElement
		condErr error
	)
	cond := func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(by, value)
		if err != nil {
			if isNoSuchElement(err) {
				return false, nil
			}
			condErr = err
			return false, err
		}
		if visible {
			ok, err := el.IsDisplayed()
			if err != nil {
				if isStaleElement(err) {
					return false, nil
				}
				condErr = err
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		found = el
		return true, nil
	}

	err := s.WaitWithTimeoutAndInterval(cond, s.timeout, s.interval)
	switch {
	case err == nil:
		return found, nil
	case condErr != nil:
		return nil, &StepError{Step: step, Selector: value, Err: condErr}
	default:
		return nil, &StepError{Step: step, Selector: value, Err: fmt.Errorf("%w after %v: %v", ErrTimeout, s.timeout, err)}
	}
}

// logRenderedRows logs the rows left in the table, each tagged with its
// office, for diagnosing a failed validation.
func (s *Session) logRenderedRows() {
	src, err := s.PageSource()
	if err != nil {
		s.logger.WithError(err).Debug("Could not fetch the page source.")
		return
	}
	tbl, err := page.ParseTable(strings.NewReader(src))
	if err != nil {
		s.logger.WithError(err).Debug("Could not parse the result table.")
		return
	}
	for i, r := range tbl.Rows {
		s.logger.Debugf("Row %d (%s): %s", i+1, tbl.Column(r, OfficeColumn), strings.Join(r, " | "))
	}
}

func isNoSuchElement(err error) bool {
	var serr *selenium.Error
	if errors.As(err, &serr) {
		return serr.Err == "no such element" || serr.LegacyCode == 7
	}
	return strings.Contains(err.Error(), "no such element")
}

func isStaleElement(err error) bool {
	var serr *selenium.Error
	if errors.As(err, &serr) {
		return serr.Err == "stale element reference" || serr.LegacyCode == 10
	}
	return strings.Contains(err.Error(), "stale element reference")
}
