package tablesearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/sauce"

	"github.com/wanmail/tablesearch/internal/download"
	"github.com/wanmail/tablesearch/log"
)

// Defaults for the bounded waits of each step.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond

	// DownloadTimeout bounds fetching a missing WebDriver server.
	DownloadTimeout = 5 * time.Minute
)

// Option configures a Launcher.
type Option func(*Launcher) error

// DriverPath sets the path of the WebDriver server binary (chromedriver,
// geckodriver or msedgedriver) used for b.
func DriverPath(b Browser, path string) Option {
	return func(l *Launcher) error {
		if _, err := ParseBrowser(string(b)); err != nil {
			return err
		}
		l.drivers[b] = path
		return nil
	}
}

// DriverDir sets the directory searched for cached WebDriver server binaries
// when no DriverPath is given.
func DriverDir(dir string) Option {
	return func(l *Launcher) error {
		l.driverDir = dir
		return nil
	}
}

// AutoDownload controls whether a WebDriver server found neither in the
// driver directory nor in PATH is downloaded into the driver directory.
// It is on by default.
func AutoDownload(on bool) Option {
	return func(l *Launcher) error {
		l.autoDownload = on
		return nil
	}
}

// BrowserBinary sets the browser executable used for b instead of the one
// the driver finds on its own.
func BrowserBinary(b Browser, path string) Option {
	return func(l *Launcher) error {
		if _, err := ParseBrowser(string(b)); err != nil {
			return err
		}
		l.binaries[b] = path
		return nil
	}
}

// Extensions installs the packed (.crx) extensions at paths into Chrome and
// Edge. Firefox sessions ignore them.
func Extensions(paths ...string) Option {
	return func(l *Launcher) error {
		l.extensions = append(l.extensions, paths...)
		return nil
	}
}

// Headless runs the browser without a visible window.
func Headless(headless bool) Option {
	return func(l *Launcher) error {
		l.headless = headless
		return nil
	}
}

// FrameBuffer starts the WebDriver server inside an X virtual frame buffer.
func FrameBuffer(start bool) Option {
	return func(l *Launcher) error {
		l.frameBuffer = start
		return nil
	}
}

// Output sends the WebDriver server's own output to w.
func Output(w io.Writer) Option {
	return func(l *Launcher) error {
		l.output = w
		return nil
	}
}

// RemoteURL connects to an already running WebDriver server or grid instead
// of starting a local driver process.
func RemoteURL(url string) Option {
	return func(l *Launcher) error {
		l.remoteURL = url
		return nil
	}
}

// Proxy routes the browser's traffic through p.
func Proxy(p selenium.Proxy) Option {
	return func(l *Launcher) error {
		if p.Type == "" {
			return errors.New("proxy type must be set")
		}
		l.proxy = &p
		return nil
	}
}

// SauceLabs merges Sauce Labs capabilities into every new session. It is
// meant to be combined with RemoteURL.
func SauceLabs(c *sauce.Capabilities) Option {
	return func(l *Launcher) error {
		l.sauce = c
		return nil
	}
}

// WithLogger sets the logger of the launcher and of the sessions it opens.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Launcher) error {
		if logger == nil {
			return errors.New("nil logger")
		}
		l.logger = logger
		return nil
	}
}

// Timeouts sets the bounded wait of each page step and its polling interval.
func Timeouts(timeout, interval time.Duration) Option {
	return func(l *Launcher) error {
		if timeout <= 0 || interval <= 0 {
			return fmt.Errorf("timeout and poll interval must be positive, got %v and %v", timeout, interval)
		}
		l.timeout, l.interval = timeout, interval
		return nil
	}
}

// TargetURL overrides the address of the demo page.
func TargetURL(url string) Option {
	return func(l *Launcher) error {
		if url == "" {
			return errors.New("empty target URL")
		}
		l.url = url
		return nil
	}
}

// service is a running WebDriver server process.
type service interface {
	Stop() error
}

// Launcher opens browser sessions.
type Launcher struct {
	drivers      map[Browser]string
	binaries     map[Browser]string
	driverDir    string
	autoDownload bool
	extensions   []string
	headless     bool
	frameBuffer  bool
	output       io.Writer
	remoteURL    string
	proxy        *selenium.Proxy
	sauce        *sauce.Capabilities
	logger       logrus.FieldLogger
	timeout      time.Duration
	interval     time.Duration
	url          string

	fs           afero.Fs
	startService func(b Browser, path string, port int, opts ...selenium.ServiceOption) (service, error)
	newRemote    func(caps selenium.Capabilities, addr string) (selenium.WebDriver, error)
	fetch        func(ctx context.Context, d download.Driver) (string, error)
}

// NewLauncher returns a Launcher configured by opts.
func NewLauncher(opts ...Option) (*Launcher, error) {
	l := &Launcher{
		drivers:      make(map[Browser]string),
		binaries:     make(map[Browser]string),
		driverDir:    download.DefaultDir(),
		autoDownload: true,
		logger:       log.Discard(),
		timeout:      DefaultTimeout,
		interval:     DefaultPollInterval,
		url:          TargetPage,
		fs:           afero.NewOsFs(),
		startService: startService,
		newRemote:    selenium.NewRemote,
	}
	l.fetch = l.fetchDriver
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Open starts a browser session for b and maximizes its window. If b cannot
// be launched and is not DefaultBrowser, the failure is logged and
// DefaultBrowser is launched instead. An unsupported b fails before anything
// is started.
func (l *Launcher) Open(b Browser) (*Session, error) {
	if _, err := ParseBrowser(string(b)); err != nil {
		return nil, err
	}

	l.logger.Infof("Initializing WebDriver for %s.", b)
	s, err := l.launch(b)
	if err == nil {
		s.Requested = b
		return s, nil
	}
	if b == DefaultBrowser {
		return nil, fmt.Errorf("launching %s: %w", b, err)
	}

	l.logger.WithError(err).Errorf("Falling back to %s as %s browser or driver is not available", DefaultBrowser, b)
	s, fallbackErr := l.launch(DefaultBrowser)
	if fallbackErr != nil {
		return nil, fmt.Errorf("launching %s: %v; falling back to %s: %w", b, err, DefaultBrowser, fallbackErr)
	}
	s.Requested = b
	return s, nil
}

func (l *Launcher) launch(b Browser) (*Session, error) {
	caps, err := l.capabilities(b)
	if err != nil {
		return nil, err
	}

	addr := l.remoteURL
	var svc service
	if addr == "" {
		path, err := l.driverPath(b)
		if err != nil {
			return nil, err
		}
		port, err := pickUnusedPort()
		if err != nil {
			return nil, fmt.Errorf("picking a port for the %s driver: %w", b, err)
		}
		l.logger.Debugf("Starting %s on port %d", path, port)
		svc, err = l.startService(b, path, port, l.serviceOptions()...)
		if err != nil {
			return nil, fmt.Errorf("starting the %s driver %s: %w", b, path, err)
		}
		addr = serviceAddr(b, port)
	}

	wd, err := l.newRemote(caps, addr)
	if err != nil {
		err = fmt.Errorf("creating a %s session at %s: %w", b, addr, err)
		return nil, errors.Join(err, stopService(b, svc))
	}
	if err := wd.MaximizeWindow(""); err != nil {
		err = fmt.Errorf("maximizing the %s window: %w", b, err)
		if qerr := wd.Quit(); qerr != nil {
			err = errors.Join(err, fmt.Errorf("quitting %s: %w", b, qerr))
		}
		return nil, errors.Join(err, stopService(b, svc))
	}

	return &Session{
		WebDriver: wd,
		Browser:   b,
		svc:       svc,
		logger:    log.Named(l.logger.WithField("browser", string(b)), log.DefaultName+".session"),
		url:       l.url,
		timeout:   l.timeout,
		interval:  l.interval,
	}, nil
}

func (l *Launcher) driverPath(b Browser) (string, error) {
	if p, ok := l.drivers[b]; ok && p != "" {
		return p, nil
	}
	d, err := download.ForBrowser(string(b))
	if err != nil {
		return "", err
	}
	p, err := download.Lookup(l.fs, l.driverDir, d)
	if err == nil || !errors.Is(err, download.ErrNotFound) || !l.autoDownload {
		return p, err
	}

	l.logger.Infof("Downloading %s into %s.", d.Binary, l.driverDir)
	ctx, cancel := context.WithTimeout(context.Background(), DownloadTimeout)
	defer cancel()
	p, ferr := l.fetch(ctx, d)
	if ferr != nil {
		return "", fmt.Errorf("%w; downloading it: %w", err, ferr)
	}
	return p, nil
}

func (l *Launcher) fetchDriver(ctx context.Context, d download.Driver) (string, error) {
	f := download.NewFetcher(l.driverDir)
	f.Fs = l.fs
	paths, err := f.Fetch(ctx, d)
	if err != nil {
		return "", err
	}
	return paths[d.Browser], nil
}

func (l *Launcher) serviceOptions() []selenium.ServiceOption {
	var opts []selenium.ServiceOption
	if l.frameBuffer {
		opts = append(opts, selenium.StartFrameBuffer())
	}
	if l.output != nil {
		opts = append(opts, selenium.Output(l.output))
	}
	return opts
}

func startService(b Browser, path string, port int, opts ...selenium.ServiceOption) (service, error) {
	var (
		s   *selenium.Service
		err error
	)
	switch b {
	case Firefox:
		s, err = selenium.NewGeckoDriverService(path, port, opts...)
	default:
		// msedgedriver takes the same flags as ChromeDriver.
		s, err = selenium.NewChromeDriverService(path, port, opts...)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// stopService stops svc, if any, after a failed launch.
func stopService(b Browser, svc service) error {
	if svc == nil {
		return nil
	}
	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stopping the %s driver: %w", b, err)
	}
	return nil
}

// serviceAddr is the WebDriver URL of a driver started on port.
func serviceAddr(b Browser, port int) string {
	if b == Firefox {
		return fmt.Sprintf("http://127.0.0.1:%d", port)
	}
	return fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port)
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// Session is one open browser window driven through WebDriver.
type Session struct {
	selenium.WebDriver

	// Browser is the browser actually running.
	Browser Browser
	// Requested is the browser that was asked for.
	Requested Browser

	svc      service
	logger   logrus.FieldLogger
	url      string
	timeout  time.Duration
	interval time.Duration
	closed   bool
}

// FellBack reports whether the session runs DefaultBrowser because the
// requested browser could not be launched.
func (s *Session) FellBack() bool {
	return s.Browser != s.Requested
}

// Close quits the browser and stops the WebDriver server. The server is
// stopped even when quitting fails. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Info("Quitting the browser.")
	var errs []error
	if err := s.WebDriver.Quit(); err != nil {
		errs = append(errs, fmt.Errorf("quitting %s: %w", s.Browser, err))
	}
	if s.svc != nil {
		if err := s.svc.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping the %s driver: %w", s.Browser, err))
		}
	}
	return errors.Join(errs...)
}
