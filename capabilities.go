package tablesearch

import (
	"fmt"
	"path/filepath"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	selog "github.com/tebeka/selenium/log"

	"github.com/wanmail/tablesearch/edge"
)

// edgeLoggingPrefsKey is where msedgedriver reads logging preferences.
const edgeLoggingPrefsKey = "ms:loggingPrefs"

// capabilities returns the W3C capabilities for a new session of b.
func (l *Launcher) capabilities(b Browser) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": b.browserName()}
	binary := l.binaries[b]

	switch b {
	case Chrome:
		c := chrome.Capabilities{Path: binary, W3C: true}
		if l.headless {
			c.Args = append(c.Args, "--headless=new", "--no-sandbox", "--disable-dev-shm-usage", "--window-size=1920,1080")
		}
		if l.proxy != nil {
			// Chrome does not proxy loopback addresses unless told to.
			c.Args = append(c.Args, "--proxy-bypass-list=<-loopback>")
		}
		for _, p := range l.extensions {
			if err := c.AddExtension(p); err != nil {
				return nil, fmt.Errorf("adding chrome extension %q: %w", p, err)
			}
		}
		caps.AddChrome(c)
		caps.SetLogLevel(selog.Browser, selog.Info)

	case Firefox:
		f := firefox.Capabilities{}
		if binary != "" {
			p, err := filepath.Abs(binary)
			if err != nil {
				return nil, fmt.Errorf("resolving firefox binary %q: %w", binary, err)
			}
			f.Binary = p
		}
		if l.headless {
			f.Args = append(f.Args, "-headless", "-width=1920", "-height=1080")
		}
		if l.output != nil {
			f.Log = &firefox.Log{Level: firefox.Trace}
		}
		if l.proxy != nil {
			f.Prefs = map[string]interface{}{
				"network.proxy.no_proxies_on":             "",
				"network.proxy.allow_hijacking_localhost": true,
			}
		}
		if len(l.extensions) > 0 {
			l.logger.Warnf("Ignoring %d .crx extensions, firefox cannot load them.", len(l.extensions))
		}
		caps.AddFirefox(f)

	case Edge:
		e := edge.Capabilities{Path: binary}
		if l.headless {
			e.Args = append(e.Args, "--headless=new", "--no-sandbox", "--disable-dev-shm-usage", "--window-size=1920,1080")
		}
		if l.proxy != nil {
			e.Args = append(e.Args, "--proxy-bypass-list=<-loopback>")
		}
		for _, p := range l.extensions {
			if err := e.AddExtension(p); err != nil {
				return nil, fmt.Errorf("adding edge extension %q: %w", p, err)
			}
		}
		caps[edge.CapabilitiesKey] = e
		caps[edgeLoggingPrefsKey] = selog.Capabilities{selog.Browser: selog.Info}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBrowser, b)
	}

	if l.proxy != nil {
		caps.AddProxy(*l.proxy)
	}
	if l.sauce != nil {
		m, err := l.sauce.ToMap()
		if err != nil {
			return nil, fmt.Errorf("obtaining map for sauce.Capabilities: %w", err)
		}
		for k, v := range m {
			caps[k] = v
		}
		if l.sauce.TestName == "" {
			caps["name"] = "tablesearch " + string(b)
		}
	}
	return caps, nil
}
