package tablesearch

import (
	"errors"
	"strings"
	"testing"

	"github.com/tebeka/selenium"
)

func openChrome(t *testing.T, h *harness) *Session {
	t.Helper()
	s, err := h.launcher(t).Open(Chrome)
	if err != nil {
		t.Fatalf("Open(chrome) returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheckScenarios(t *testing.T) {
	for _, sc := range DefaultScenarios() {
		t.Run(sc.Term, func(t *testing.T) {
			h := newHarness()
			s := openChrome(t, h)

			text, err := s.Check(sc)
			if err != nil {
				t.Fatalf("Check(%v) returned error: %v", sc, err)
			}
			if !strings.Contains(text, TotalEntriesPhrase) || !strings.Contains(text, ShownPhrase(sc.Count)) {
				t.Errorf("Check(%v) text = %q", sc, text)
			}
			if got := h.drivers[Chrome].Term(); got != sc.Term {
				t.Errorf("search box holds %q, want %q", got, sc.Term)
			}

			want := []string{
				"Navigating to the page: " + testURL,
				"Performing search for: " + sc.Term,
				"Fetching search result text.",
				"Result Info Text: " + text,
				"Search and validation test passed for '" + sc.Term + "'.",
			}
			msgs := strings.Join(h.messages(), "\n")
			for _, m := range want {
				if !strings.Contains(msgs, m) {
					t.Errorf("log does not contain %q:\n%s", m, msgs)
				}
			}
		})
	}
}

func TestCheckClearsPreviousTerm(t *testing.T) {
	h := newHarness()
	s := openChrome(t, h)
	if _, err := s.Check(Scenario{Term: "New York", Count: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Check(Scenario{Term: "Chicago", Count: 1}); err != nil {
		t.Fatalf("second Check() returned error: %v", err)
	}
	if got := h.drivers[Chrome].Term(); got != "Chicago" {
		t.Errorf("search box holds %q, want %q", got, "Chicago")
	}
}

func TestCheckWrongCount(t *testing.T) {
	h := newHarness()
	s := openChrome(t, h)
	text, err := s.Check(Scenario{Term: "New York", Count: 4})
	var merr *MismatchError
	if !errors.As(err, &merr) {
		t.Fatalf("Check() returned %v, want a *MismatchError", err)
	}
	if merr.Want != ShownPhrase(4) {
		t.Errorf("MismatchError.Want = %q, want %q", merr.Want, ShownPhrase(4))
	}
	if text == "" {
		t.Error("Check() did not return the result text of a failed validation")
	}

	var rows int
	for _, m := range h.messages() {
		if strings.HasPrefix(m, "Row ") {
			rows++
			if !strings.Contains(m, "(New York): ") {
				t.Errorf("rendered row not tagged with its office: %q", m)
			}
		}
	}
	if rows != 5 {
		t.Errorf("logged %d rendered rows, want 5", rows)
	}
}

func TestSearchBoxMissing(t *testing.T) {
	h := newHarness()
	h.drivers[Chrome].Missing = map[string]bool{SearchInputSelector: true}
	s := openChrome(t, h)

	_, err := s.Check(Scenario{Term: "Chicago", Count: 1})
	var serr *StepError
	if !errors.As(err, &serr) {
		t.Fatalf("Check() returned %v, want a *StepError", err)
	}
	if serr.Step != StepSearch || serr.Selector != SearchInputSelector {
		t.Errorf("StepError = %+v", serr)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Check() error %v does not wrap ErrTimeout", err)
	}
	if !strings.Contains(strings.Join(h.messages(), "\n"), "Search box not found after waiting.") {
		t.Errorf("missing search box was not logged: %q", h.messages())
	}
}

func TestResultInfoMissing(t *testing.T) {
	h := newHarness()
	h.drivers[Chrome].Missing = map[string]bool{ResultInfoID: true}
	s := openChrome(t, h)

	_, err := s.Check(Scenario{Term: "Chicago", Count: 1})
	var serr *StepError
	if !errors.As(err, &serr) || serr.Step != StepResult || !errors.Is(err, ErrTimeout) {
		t.Fatalf("Check() returned %v, want a result step timeout", err)
	}
	if !strings.Contains(err.Error(), "result info element not found") {
		t.Errorf("Check() error %q does not describe the missing element", err)
	}
}

func TestResultInfoBecomesVisible(t *testing.T) {
	h := newHarness()
	h.drivers[Chrome].HiddenPolls = 3
	s := openChrome(t, h)
	text, err := s.ResultText()
	if err == nil {
		// Navigate was not called, so the element cannot be found.
		t.Fatalf("ResultText() before navigating returned %q", text)
	}

	if err := s.Navigate(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ResultText(); err != nil {
		t.Fatalf("ResultText() returned error: %v", err)
	}
}

func TestResultInfoNeverVisible(t *testing.T) {
	h := newHarness()
	h.drivers[Chrome].HiddenPolls = 1 << 20
	s := openChrome(t, h)
	if err := s.Navigate(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ResultText(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("ResultText() returned %v, want ErrTimeout", err)
	}
}

func TestDriverErrorIsNotATimeout(t *testing.T) {
	h := newHarness()
	s := openChrome(t, h)
	h.drivers[Chrome].FindErr = &selenium.Error{Err: "invalid session id", Message: "session deleted"}

	err := s.Search("Chicago")
	if err == nil {
		t.Fatal("Search() returned nil error")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("Search() error %v wraps ErrTimeout", err)
	}
	var selErr *selenium.Error
	if !errors.As(err, &selErr) || selErr.Err != "invalid session id" {
		t.Errorf("Search() error %v does not wrap the driver error", err)
	}
}

func TestNavigateError(t *testing.T) {
	h := newHarness()
	h.drivers[Chrome].GetErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	s := openChrome(t, h)
	var serr *StepError
	if err := s.Navigate(); !errors.As(err, &serr) || serr.Step != StepNavigate {
		t.Fatalf("Navigate() returned %v, want a navigate StepError", err)
	}
}

func TestIsNoSuchElement(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want bool
	}{
		{&selenium.Error{Err: "no such element"}, true},
		{&selenium.Error{LegacyCode: 7}, true},
		{&selenium.Error{Err: "stale element reference"}, false},
		{errors.New("no such element: Unable to locate element"), true},
		{errors.New("connection refused"), false},
	} {
		if got := isNoSuchElement(tc.err); got != tc.want {
			t.Errorf("isNoSuchElement(%v) = %t, want %t", tc.err, got, tc.want)
		}
	}
}
