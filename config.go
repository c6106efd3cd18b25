package tablesearch

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium/sauce"
	"gopkg.in/yaml.v3"

	"github.com/wanmail/tablesearch/internal/download"
	"github.com/wanmail/tablesearch/log"
)

// Config holds everything needed to run the scenarios. Values are taken, in
// increasing order of precedence, from DefaultConfig, a YAML file, TABLESEARCH_*
// environment variables and command-line flags.
type Config struct {
	Browser      Browser       `yaml:"browser" envconfig:"TABLESEARCH_BROWSER"`
	URL          string        `yaml:"url" envconfig:"TABLESEARCH_URL"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TABLESEARCH_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"TABLESEARCH_POLL_INTERVAL"`

	LogFile  string `yaml:"log_file" envconfig:"TABLESEARCH_LOG_FILE"`
	LogLevel string `yaml:"log_level" envconfig:"TABLESEARCH_LOG_LEVEL"`

	DriverDir    string `yaml:"driver_dir" envconfig:"TABLESEARCH_DRIVER_DIR"`
	AutoDownload bool   `yaml:"auto_download" envconfig:"TABLESEARCH_AUTO_DOWNLOAD"`
	ChromeDriver string `yaml:"chrome_driver" envconfig:"TABLESEARCH_CHROME_DRIVER"`
	GeckoDriver  string `yaml:"gecko_driver" envconfig:"TABLESEARCH_GECKO_DRIVER"`
	EdgeDriver   string `yaml:"edge_driver" envconfig:"TABLESEARCH_EDGE_DRIVER"`

	ChromeBinary  string `yaml:"chrome_binary" envconfig:"TABLESEARCH_CHROME_BINARY"`
	FirefoxBinary string `yaml:"firefox_binary" envconfig:"TABLESEARCH_FIREFOX_BINARY"`
	EdgeBinary    string `yaml:"edge_binary" envconfig:"TABLESEARCH_EDGE_BINARY"`

	// Extensions are .crx files installed into Chrome and Edge.
	Extensions []string `yaml:"extensions" envconfig:"TABLESEARCH_EXTENSIONS"`

	Headless    bool `yaml:"headless" envconfig:"TABLESEARCH_HEADLESS"`
	FrameBuffer bool `yaml:"frame_buffer" envconfig:"TABLESEARCH_FRAME_BUFFER"`

	RemoteURL string `yaml:"remote_url" envconfig:"TABLESEARCH_REMOTE_URL"`
	SauceUser string `yaml:"sauce_user" envconfig:"SAUCE_USERNAME"`
	SauceKey  string `yaml:"sauce_key" envconfig:"SAUCE_ACCESS_KEY"`

	Scenarios []Scenario `yaml:"scenarios" ignored:"true"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Browser:      DefaultBrowser,
		URL:          TargetPage,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		LogFile:      log.DefaultPath,
		LogLevel:     "debug",
		DriverDir:    download.DefaultDir(),
		AutoDownload: true,
		Scenarios:    DefaultScenarios(),
	}
}

// LoadConfig returns DefaultConfig overridden by the YAML file at path (if
// path is not empty) and then by the environment.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile overrides c with the fields set in the YAML file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with the TABLESEARCH_* variables that lookup finds.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if err := envconfig.Process("", c, lookup); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// RegisterFlags defines a flag for each field of c in fs, bound to c.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.Browser, "browser", "Type of browser to use for testing ("+browserList()+")")
	fs.StringVar(&c.URL, "url", c.URL, "Address of the table search demo page.")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "How long each page step waits for its element.")
	fs.DurationVar(&c.PollInterval, "poll_interval", c.PollInterval, "How often a waiting step looks for its element.")
	fs.StringVar(&c.LogFile, "log_file", c.LogFile, "File the test log is appended to.")
	fs.StringVar(&c.LogLevel, "log_level", c.LogLevel, "Minimum level written to the log file.")
	fs.StringVar(&c.DriverDir, "driver_dir", c.DriverDir, "Directory searched for downloaded WebDriver servers.")
	fs.BoolVar(&c.AutoDownload, "auto_download", c.AutoDownload, "If true, download a WebDriver server found neither in the driver directory nor in PATH.")
	fs.StringVar(&c.ChromeDriver, "chrome_driver", c.ChromeDriver, "Path to the chromedriver binary. If empty, the driver directory and PATH are searched.")
	fs.StringVar(&c.GeckoDriver, "gecko_driver", c.GeckoDriver, "Path to the geckodriver binary. If empty, the driver directory and PATH are searched.")
	fs.StringVar(&c.EdgeDriver, "edge_driver", c.EdgeDriver, "Path to the msedgedriver binary. If empty, the driver directory and PATH are searched.")
	fs.StringVar(&c.ChromeBinary, "chrome_binary", c.ChromeBinary, "Path to the Chrome binary. If empty, chromedriver picks one.")
	fs.StringVar(&c.FirefoxBinary, "firefox_binary", c.FirefoxBinary, "Path to the Firefox binary. If empty, geckodriver picks one.")
	fs.StringVar(&c.EdgeBinary, "edge_binary", c.EdgeBinary, "Path to the Edge binary. If empty, msedgedriver picks one.")
	fs.Var((*stringList)(&c.Extensions), "extensions", "Comma-separated .crx files to install into Chrome and Edge.")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "If true, run the browser without a window.")
	fs.BoolVar(&c.FrameBuffer, "frame_buffer", c.FrameBuffer, "If true, start an Xvfb subprocess and run the browser in that X server.")
	fs.StringVar(&c.RemoteURL, "remote_url", c.RemoteURL, "Address of a running WebDriver server or grid. If set, no local driver is started.")
	fs.Var((*scenarioList)(&c.Scenarios), "scenarios", `Comma-separated term=count pairs to check, e.g. "New York=5,Chicago=1".`)
}

// Override sets the fields of c named by the flags in set, keyed by flag
// name, as if those flags had been passed to a FlagSet bound to c.
func (c *Config) Override(set map[string]string) error {
	fs := flag.NewFlagSet("override", flag.ContinueOnError)
	c.RegisterFlags(fs)
	for name, value := range set {
		if fs.Lookup(name) == nil {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("invalid value %q for flag -%s: %w", value, name, err)
		}
	}
	return nil
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	if _, err := ParseBrowser(string(c.Browser)); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if len(c.Scenarios) == 0 {
		return errors.New("no scenarios to run")
	}
	for _, sc := range c.Scenarios {
		if strings.TrimSpace(sc.Term) == "" {
			return errors.New("scenario with an empty search term")
		}
		if sc.Count < 0 {
			return fmt.Errorf("scenario %q: negative count %d", sc.Term, sc.Count)
		}
	}
	if (c.SauceUser == "") != (c.SauceKey == "") {
		return errors.New("both the Sauce Labs user name and access key must be set")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// OpenLog opens the log file named by c.
func (c Config) OpenLog() (*logrus.Logger, func() error, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	l, closer, err := log.Open(c.LogFile, level)
	if err != nil {
		return nil, nil, err
	}
	return l, closer.Close, nil
}

// LauncherOptions translates c into Launcher options.
func (c Config) LauncherOptions(logger logrus.FieldLogger) []Option {
	opts := []Option{
		WithLogger(logger),
		Timeouts(c.Timeout, c.PollInterval),
		TargetURL(c.URL),
		DriverDir(c.DriverDir),
		AutoDownload(c.AutoDownload),
		Headless(c.Headless),
		FrameBuffer(c.FrameBuffer),
	}
	if len(c.Extensions) > 0 {
		opts = append(opts, Extensions(c.Extensions...))
	}
	for b, p := range map[Browser]string{Chrome: c.ChromeDriver, Firefox: c.GeckoDriver, Edge: c.EdgeDriver} {
		if p != "" {
			opts = append(opts, DriverPath(b, p))
		}
	}
	for b, p := range map[Browser]string{Chrome: c.ChromeBinary, Firefox: c.FirefoxBinary, Edge: c.EdgeBinary} {
		if p != "" {
			opts = append(opts, BrowserBinary(b, p))
		}
	}
	switch {
	case c.SauceUser != "":
		opts = append(opts, RemoteURL(sauce.Addr(c.SauceUser, c.SauceKey)), SauceLabs(&sauce.Capabilities{
			Browser:    c.Browser.browserName(),
			Visibility: sauce.Private,
		}))
	case c.RemoteURL != "":
		opts = append(opts, RemoteURL(c.RemoteURL))
	}
	return opts
}

// scenarioList is the flag.Value of Config.Scenarios. The first Set replaces
// the configured scenarios.
type scenarioList []Scenario

func (l *scenarioList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, sc := range *l {
		parts[i] = sc.String()
	}
	return strings.Join(parts, ",")
}

func (l *scenarioList) Set(s string) error {
	out, err := ParseScenarios(s)
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// stringList is a comma-separated flag.Value.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// ParseScenarios parses comma-separated term=count pairs.
func ParseScenarios(s string) ([]Scenario, error) {
	var out []Scenario
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, "=")
		if i <= 0 {
			return nil, fmt.Errorf("scenario %q is not of the form term=count", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid count: %w", part, err)
		}
		out = append(out, Scenario{Term: strings.TrimSpace(part[:i]), Count: n})
	}
	if len(out) == 0 {
		return nil, errors.New("no scenarios given")
	}
	return out, nil
}
