package tablesearch

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseBrowser(t *testing.T) {
	for in, want := range map[string]Browser{
		"chrome":    Chrome,
		"Firefox":   Firefox,
		" EDGE\n":   Edge,
		"firefox  ": Firefox,
	} {
		got, err := ParseBrowser(in)
		if err != nil {
			t.Errorf("ParseBrowser(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseBrowser(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "safari", "chromium", "ie"} {
		if _, err := ParseBrowser(in); !errors.Is(err, ErrUnsupportedBrowser) {
			t.Errorf("ParseBrowser(%q) returned %v, want ErrUnsupportedBrowser", in, err)
		}
	}
}

func TestBrowserFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	b := DefaultBrowser
	fs.Var(&b, "browser", "")

	if err := fs.Parse([]string{"-browser", "firefox"}); err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if b != Firefox {
		t.Errorf("browser = %q, want %q", b, Firefox)
	}
	if err := fs.Parse([]string{"-browser=opera"}); err == nil {
		t.Error("Parse(-browser=opera) returned nil error")
	}
	if b != Firefox {
		t.Errorf("browser changed to %q by an invalid value", b)
	}
}

func TestBrowserPFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	b := DefaultBrowser
	fs.Var(&b, "browser", "")
	if err := fs.Parse([]string{"--browser", "edge"}); err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if b != Edge {
		t.Errorf("browser = %q, want %q", b, Edge)
	}
	if got := fs.Lookup("browser").Value.Type(); got != "browser" {
		t.Errorf("Type() = %q, want browser", got)
	}
}

func TestBrowserName(t *testing.T) {
	for b, want := range map[Browser]string{Chrome: "chrome", Firefox: "firefox", Edge: "MicrosoftEdge"} {
		if got := b.browserName(); got != want {
			t.Errorf("%s.browserName() = %q, want %q", b, got, want)
		}
	}
}
