package tablesearch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wanmail/tablesearch/edge"
)

// Browser names a browser that can drive the table search scenario.
type Browser string

// The supported browsers.
const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
)

// DefaultBrowser is used when no browser is requested, and is the one
// substituted when a requested browser cannot be launched.
const DefaultBrowser = Chrome

// ErrUnsupportedBrowser is returned for browser names outside of Browsers().
var ErrUnsupportedBrowser = errors.New("unsupported browser")

// Browsers returns the supported browsers, default first.
func Browsers() []Browser {
	return []Browser{Chrome, Firefox, Edge}
}

// ParseBrowser returns the Browser named by s. Case and surrounding
// whitespace are ignored.
func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Browsers() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedBrowser, s, browserList())
}

func browserList() string {
	var names []string
	for _, b := range Browsers() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

func (b Browser) String() string { return string(b) }

// Set implements flag.Value.
func (b *Browser) Set(s string) error {
	v, err := ParseBrowser(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Type implements pflag.Value.
func (b *Browser) Type() string { return "browser" }

// UnmarshalText lets a Browser be decoded from YAML and environment variables.
func (b *Browser) UnmarshalText(text []byte) error {
	return b.Set(string(text))
}

// browserName is the W3C "browserName" capability for b.
func (b Browser) browserName() string {
	if b == Edge {
		return edge.BrowserName
	}
	return string(b)
}
