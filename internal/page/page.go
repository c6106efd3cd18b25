// Package page models the DataTables demo page: the table rows as rendered
// in the DOM, the "smart" search the widget applies and the summary line it
// prints under the table.
package page

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors of the demo page.
const (
	TableSelector = "table#example"
	// EmptyRowClass marks the placeholder row DataTables renders when no row
	// matches the search.
	EmptyRowClass = "dataTables_empty"
)

// DefaultPageLength is the number of rows DataTables shows per page.
const DefaultPageLength = 10

// ErrNoTable is returned when the document has no demo table.
var ErrNoTable = errors.New("no table " + TableSelector)

// Row is the text of each cell of a table row.
type Row []string

// Table is the header and rows of the demo table.
type Table struct {
	Header []string
	Rows   []Row
}

// ParseTable reads the demo table out of an HTML document.
func ParseTable(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	sel := doc.Find(TableSelector).First()
	if sel.Length() == 0 {
		return nil, ErrNoTable
	}

	t := &Table{}
	sel.Find("thead tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		t.Header = append(t.Header, cellText(th))
	})
	sel.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td." + EmptyRowClass).Length() > 0 {
			return
		}
		var row Row
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		if len(row) > 0 {
			t.Rows = append(t.Rows, row)
		}
	})
	return t, nil
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Filter returns the rows matching term the way the DataTables search box
// does: the term is split on whitespace and every word must occur, ignoring
// case, somewhere in the row. An empty term matches every row.
func (t *Table) Filter(term string) []Row {
	words := strings.Fields(strings.ToLower(term))
	var out []Row
	for _, r := range t.Rows {
		if r.matches(words) {
			out = append(out, r)
		}
	}
	return out
}

func (r Row) matches(words []string) bool {
	text := strings.ToLower(strings.Join(r, "  "))
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// Column returns the cell of r under the named header, or "" when t has no
// such column.
func (t *Table) Column(r Row, name string) string {
	for i, h := range t.Header {
		if strings.EqualFold(h, name) && i < len(r) {
			return r[i]
		}
	}
	return ""
}

// Summary is the information line DataTables prints for term on the first
// page of results.
func (t *Table) Summary(term string, pageLength int) string {
	return InfoText(len(t.Filter(term)), len(t.Rows), pageLength)
}

// InfoText formats the DataTables information line for the first page of
// matched rows out of total, e.g.
//
//	Showing 1 to 5 of 5 entries (filtered from 24 total entries)
//
// The "filtered" suffix is present whenever matched differs from total.
func InfoText(matched, total, pageLength int) string {
	if pageLength <= 0 {
		pageLength = DefaultPageLength
	}
	var s string
	if matched == 0 {
		s = "Showing 0 to 0 of 0 entries"
	} else {
		end := matched
		if end > pageLength {
			end = pageLength
		}
		s = fmt.Sprintf("Showing 1 to %d of %d entries", end, matched)
	}
	if matched != total {
		s += fmt.Sprintf(" (filtered from %d total entries)", total)
	}
	return s
}
