// Package edge provides Microsoft Edge specific options for WebDriver.
//
// Edge is Chromium based and msedgedriver accepts the same option set as
// ChromeDriver, under its own capabilities key.
package edge

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"os"
)

// CapabilitiesKey is the key in the top-level Capabilities map under which
// msedgedriver expects the Edge-specific options to be set.
const CapabilitiesKey = "ms:edgeOptions"

// BrowserName is the value of the "browserName" capability that selects
// Microsoft Edge.
const BrowserName = "MicrosoftEdge"

// Capabilities defines the Edge-specific desired capabilities when using
// msedgedriver. An instance of this struct can be stored in the Capabilities
// map with a key of CapabilitiesKey ("ms:edgeOptions").
type Capabilities struct {
	// Path is the file path to the Edge binary to use.
	Path string `json:"binary,omitempty"`
	// Args are the command-line arguments to pass to the Edge binary, in
	// addition to the msedgedriver-supplied ones.
	Args []string `json:"args,omitempty"`
	// ExcludeSwitches are the command line flags that should be removed from
	// the msedgedriver-supplied default flags, without the leading '--'.
	ExcludeSwitches []string `json:"excludeSwitches,omitempty"`
	// Extensions are the base-64, padded contents of .crx extension files to
	// install at startup. Use AddExtension to add a local file.
	Extensions []string `json:"extensions,omitempty"`
	// Prefs are the key/value pairs that are applied to the preferences of the
	// user profile in use.
	Prefs map[string]interface{} `json:"prefs,omitempty"`
	// Detach, if true, leaves the browser running when msedgedriver quits
	// without the session having been terminated.
	Detach *bool `json:"detach,omitempty"`
	// DebuggerAddr is the address of an Edge debugger server to connect to.
	DebuggerAddr string `json:"debuggerAddress,omitempty"`
	// WindowTypes is a list of window types that will appear in the list of
	// window handles.
	WindowTypes []string `json:"windowTypes,omitempty"`
}

// AddExtension adds an extension for the browser to load at startup. The path
// should name a packed extension file, typically with a `.crx` extension.
func (c *Capabilities) AddExtension(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.addExtension(f)
}

func (c *Capabilities) addExtension(r io.Reader) error {
	var buf bytes.Buffer
	encoder := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(encoder, bufio.NewReader(r)); err != nil {
		return err
	}
	encoder.Close()
	c.Extensions = append(c.Extensions, buf.String())
	return nil
}
