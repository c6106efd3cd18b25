package page_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wanmail/tablesearch/internal/page"
	"github.com/wanmail/tablesearch/internal/seleniumtest"
)

func demoTable(t *testing.T) *page.Table {
	t.Helper()
	tbl, err := page.ParseTable(strings.NewReader(seleniumtest.DemoPage))
	if err != nil {
		t.Fatalf("ParseTable(demo page) returned error: %v", err)
	}
	return tbl
}

func TestParseTable(t *testing.T) {
	tbl := demoTable(t)

	wantHeader := []string{"Name", "Position", "Office", "Age", "Start date", "Salary"}
	if diff := cmp.Diff(wantHeader, tbl.Header); diff != "" {
		t.Errorf("Header mismatch (-want +got):\n%s", diff)
	}
	if got, want := len(tbl.Rows), 24; got != want {
		t.Fatalf("len(Rows) = %d, want %d", got, want)
	}
	want := page.Row{"Tiger Nixon", "System Architect", "Edinburgh", "61", "2011/04/25", "$320,800"}
	if diff := cmp.Diff(want, tbl.Rows[0]); diff != "" {
		t.Errorf("Rows[0] mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.Column(tbl.Rows[0], "office"); got != "Edinburgh" {
		t.Errorf("Column(Rows[0], office) = %q, want %q", got, "Edinburgh")
	}
}

func TestParseTableMissing(t *testing.T) {
	if _, err := page.ParseTable(strings.NewReader("<html><body><p>maintenance</p></body></html>")); err != page.ErrNoTable {
		t.Errorf("ParseTable(no table) returned %v, want %v", err, page.ErrNoTable)
	}
}

func TestFilter(t *testing.T) {
	tbl := demoTable(t)
	for _, tc := range []struct {
		term string
		want int
	}{
		{"New York", 5},
		{"San Francisco", 3},
		{"Chicago", 1},
		{"chicago", 1},
		{"  york  new ", 5},
		{"Accountant Tokyo", 2},
		{"", 24},
		{"Atlantis", 0},
	} {
		got := tbl.Filter(tc.term)
		if len(got) != tc.want {
			t.Errorf("Filter(%q) returned %d rows, want %d", tc.term, len(got), tc.want)
		}
	}

	for _, r := range tbl.Filter("San Francisco") {
		if office := tbl.Column(r, "Office"); office != "San Francisco" {
			t.Errorf("Filter(San Francisco) returned a row in %q", office)
		}
	}
}

func TestInfoText(t *testing.T) {
	for _, tc := range []struct {
		matched, total, pageLength int
		want                       string
	}{
		{5, 24, 10, "Showing 1 to 5 of 5 entries (filtered from 24 total entries)"},
		{1, 24, 10, "Showing 1 to 1 of 1 entries (filtered from 24 total entries)"},
		{0, 24, 10, "Showing 0 to 0 of 0 entries (filtered from 24 total entries)"},
		{24, 24, 10, "Showing 1 to 10 of 24 entries"},
		{12, 24, 0, "Showing 1 to 10 of 12 entries (filtered from 24 total entries)"},
		{0, 0, 10, "Showing 0 to 0 of 0 entries"},
	} {
		if got := page.InfoText(tc.matched, tc.total, tc.pageLength); got != tc.want {
			t.Errorf("InfoText(%d, %d, %d) = %q, want %q", tc.matched, tc.total, tc.pageLength, got, tc.want)
		}
	}
}

func TestSummary(t *testing.T) {
	tbl := demoTable(t)
	got := tbl.Summary("New York", page.DefaultPageLength)
	want := "Showing 1 to 5 of 5 entries (filtered from 24 total entries)"
	if got != want {
		t.Errorf("Summary(New York) = %q, want %q", got, want)
	}
}

func TestParseTableSkipsEmptyPlaceholder(t *testing.T) {
	const html = `<table id="example"><thead><tr><th>Name</th></tr></thead>
<tbody><tr class="odd"><td valign="top" colspan="6" class="dataTables_empty">No matching records found</td></tr></tbody></table>`
	tbl, err := page.ParseTable(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseTable() returned error: %v", err)
	}
	if len(tbl.Rows) != 0 {
		t.Errorf("ParseTable() rows = %v, want none", tbl.Rows)
	}
}
