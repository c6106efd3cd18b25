// Package seleniumtest provides test doubles for package tablesearch: an
// in-memory selenium.WebDriver that emulates the table search demo page, and
// a SOCKS5 proxy for checking that a browser honours proxy capabilities.
package seleniumtest

import (
	_ "embed"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"

	"github.com/wanmail/tablesearch/internal/page"
)

// DemoPage is a static copy of the table search demo page with all 24 rows
// rendered.
//
//go:embed testdata/table-sort-search-demo.html
var DemoPage string

// Selectors the fake page answers to.
const (
	SearchInputSelector = "#example_filter input[type='search']"
	ResultInfoID        = "example_info"
)

// Driver is a fake selenium.WebDriver serving DemoPage at URL. Calling a
// WebDriver method it does not implement panics.
type Driver struct {
	selenium.WebDriver

	// URL is the address at which the demo page is served. Any other address
	// loads a blank page.
	URL string
	// HiddenPolls is the number of visibility checks for which the result
	// info element reports itself as not displayed.
	HiddenPolls int
	// Missing lists selectors that are never present on the page.
	Missing map[string]bool
	// InfoText, when set, replaces the computed result info text.
	InfoText string
	// BrowserLogs is returned by Log(log.Browser).
	BrowserLogs []log.Message

	// Errors returned by the corresponding methods.
	GetErr, MaximizeErr, QuitErr, FindErr, LogErr error

	mu       sync.Mutex
	table    *page.Table
	current  string
	term     string
	polls    int
	calls    []string
	quits    int
	maximize int
}

// NewDriver returns a Driver serving the demo page at url.
func NewDriver(url string) *Driver {
	t, err := page.ParseTable(strings.NewReader(DemoPage))
	if err != nil {
		panic(fmt.Sprintf("parsing embedded demo page: %v", err))
	}
	return &Driver{URL: url, table: t}
}

func (d *Driver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// Calls returns the WebDriver calls made so far, e.g. `Get "https://..."`.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Quits returns the number of times Quit was called.
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// Maximized reports whether MaximizeWindow was called.
func (d *Driver) Maximized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maximize > 0
}

// Term returns the current content of the search box.
func (d *Driver) Term() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.term
}

func (d *Driver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Get %q", url)
	if d.GetErr != nil {
		return d.GetErr
	}
	d.current = url
	d.term = ""
	d.polls = 0
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *Driver) MaximizeWindow(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("MaximizeWindow %q", name)
	d.maximize++
	return d.MaximizeErr
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Quit")
	d.quits++
	return d.QuitErr
}

func (d *Driver) Log(typ log.Type) ([]log.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Log %s", typ)
	if d.LogErr != nil {
		return nil, d.LogErr
	}
	if typ != log.Browser {
		return nil, nil
	}
	return d.BrowserLogs, nil
}

// PageSource renders the demo table with only the rows matching the current
// search term, as DataTables leaves the DOM after filtering.
func (d *Driver) PageSource() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded() {
		return "<html><head></head><body></body></html>", nil
	}
	var b strings.Builder
	b.WriteString(`<html><body><table id="example"><thead><tr>`)
	for _, h := range d.table.Header {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
	}
	b.WriteString("</tr></thead><tbody>")
	rows := d.table.Filter(d.term)
	if len(rows) > page.DefaultPageLength {
		rows = rows[:page.DefaultPageLength]
	}
	if len(rows) == 0 {
		fmt.Fprintf(&b, `<tr class="odd"><td colspan="%d" class="%s">No matching records found</td></tr>`, len(d.table.Header), page.EmptyRowClass)
	}
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range r {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(c))
		}
		b.WriteString("</tr>")
	}
	fmt.Fprintf(&b, `</tbody></table><div id="%s">%s</div></body></html>`, ResultInfoID, html.EscapeString(d.infoText()))
	return b.String(), nil
}

func (d *Driver) loaded() bool {
	return d.current != "" && d.current == d.URL
}

func (d *Driver) infoText() string {
	if d.InfoText != "" {
		return d.InfoText
	}
	return d.table.Summary(d.term, page.DefaultPageLength)
}

// FindElement finds the search box (by CSS selector) and the result info
// element (by ID). Anything else is reported as a "no such element" error.
func (d *Driver) FindElement(by, value string) (selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FindElement %s %q", by, value)
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if d.loaded() && !d.Missing[value] {
		switch {
		case by == selenium.ByCSSSelector && value == SearchInputSelector:
			return &Element{d: d, kind: searchBox}, nil
		case by == selenium.ByID && value == ResultInfoID:
			return &Element{d: d, kind: resultInfo}, nil
		}
	}
	return nil, &selenium.Error{
		Err:     "no such element",
		Message: fmt.Sprintf("Unable to locate element: %s=%s", by, value),
	}
}

// WaitWithTimeoutAndInterval polls condition the way the remote client does.
func (d *Driver) WaitWithTimeoutAndInterval(condition selenium.Condition, timeout, interval time.Duration) error {
	start := time.Now()
	for {
		done, err := condition(d)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if elapsed := time.Since(start); elapsed > timeout {
			return fmt.Errorf("timeout after %v", elapsed)
		}
		time.Sleep(interval)
	}
}

func (d *Driver) WaitWithTimeout(condition selenium.Condition, timeout time.Duration) error {
	return d.WaitWithTimeoutAndInterval(condition, timeout, selenium.DefaultWaitInterval)
}

func (d *Driver) Wait(condition selenium.Condition) error {
	return d.WaitWithTimeoutAndInterval(condition, selenium.DefaultWaitTimeout, selenium.DefaultWaitInterval)
}

type elementKind int

const (
	searchBox elementKind = iota
	resultInfo
)

// Element is a fake selenium.WebElement of the demo page.
type Element struct {
	selenium.WebElement

	d    *Driver
	kind elementKind
}

func (e *Element) Clear() error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("Clear")
	if e.kind == searchBox {
		e.d.term = ""
	}
	return nil
}

func (e *Element) SendKeys(keys string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("SendKeys %q", keys)
	if e.kind != searchBox {
		return &selenium.Error{Err: "element not interactable", Message: "element not interactable"}
	}
	e.d.term += keys
	return nil
}

func (e *Element) IsDisplayed() (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.kind != resultInfo {
		return true, nil
	}
	e.d.polls++
	return e.d.polls > e.d.HiddenPolls, nil
}

func (e *Element) Text() (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.kind != resultInfo {
		return "", nil
	}
	return e.d.infoText(), nil
}
