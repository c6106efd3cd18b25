// Package download fetches and caches the WebDriver server binaries needed to
// drive each browser: chromedriver, geckodriver and msedgedriver.
package download

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/adrg/xdg"
	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/google/go-github/v27/github"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"google.golang.org/api/option"
)

// AppName names the cache directory.
const AppName = "tablesearch"

// ErrNotFound is returned when no binary of a driver can be located.
var ErrNotFound = errors.New("driver not found")

// Driver describes a WebDriver server binary.
type Driver struct {
	// Browser is the browser the driver controls.
	Browser string
	// Binary is the executable name.
	Binary string
}

// The known drivers.
var (
	Chromedriver = Driver{Browser: "chrome", Binary: "chromedriver"}
	Geckodriver  = Driver{Browser: "firefox", Binary: "geckodriver"}
	Msedgedriver = Driver{Browser: "edge", Binary: "msedgedriver"}
)

// Drivers returns all known drivers.
func Drivers() []Driver {
	return []Driver{Chromedriver, Geckodriver, Msedgedriver}
}

// ForBrowser returns the driver of the named browser.
func ForBrowser(browser string) (Driver, error) {
	for _, d := range Drivers() {
		if d.Browser == browser {
			return d, nil
		}
	}
	return Driver{}, fmt.Errorf("no WebDriver server known for browser %q", browser)
}

// DefaultDir is the directory drivers are cached in.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, AppName, "drivers")
}

// Find returns the path of the driver binary cached in dir, if any.
func Find(fs afero.Fs, dir string, d Driver) (string, bool) {
	p := filepath.Join(dir, d.Binary)
	fi, err := fs.Stat(p)
	if err != nil {
		return "", false
	}
	if !fi.Mode().IsRegular() || fi.Mode().Perm()&0111 == 0 {
		return "", false
	}
	return p, true
}

// Lookup returns the driver binary cached in dir or, failing that, the one
// found in PATH.
func Lookup(fs afero.Fs, dir string, d Driver) (string, error) {
	if p, ok := Find(fs, dir, d); ok {
		return p, nil
	}
	p, err := exec.LookPath(d.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s is neither in %s nor in PATH", ErrNotFound, d.Binary, dir)
	}
	return p, nil
}

// File describes how to download a driver archive from the Web.
type File struct {
	Driver Driver
	URL    string
	// Name is the archive's file name in the cache directory.
	Name     string
	Hash     string
	HashType string // default is sha256
	// Member is the path of the driver binary inside the archive.
	Member string
	// Version is the driver release, when known.
	Version string
}

// MinGeckodriverVersion is the oldest geckodriver release accepted.
var MinGeckodriverVersion = semver.MustParse("0.30.0")

// Fetcher resolves and downloads driver archives into Dir.
type Fetcher struct {
	Fs         afero.Fs
	Dir        string
	HTTPClient *http.Client
	GitHub     *github.Client
	// EdgeBaseURL is the host serving msedgedriver builds.
	EdgeBaseURL string
	// ChromeBuild pins the chromium snapshot build; empty means the latest.
	ChromeBuild string
}

// NewFetcher returns a Fetcher caching into dir on the local filesystem.
func NewFetcher(dir string) *Fetcher {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Fetcher{
		Fs:          afero.NewOsFs(),
		Dir:         dir,
		HTTPClient:  http.DefaultClient,
		GitHub:      github.NewClient(nil),
		EdgeBaseURL: "https://msedgedriver.microsoft.com",
	}
}

// Fetch downloads the given drivers concurrently and returns the path of each
// binary keyed by browser.
func (f *Fetcher) Fetch(ctx context.Context, drivers ...Driver) (map[string]string, error) {
	if err := f.Fs.MkdirAll(f.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", f.Dir, err)
	}
	paths := make([]string, len(drivers))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range drivers {
		i, d := i, d
		g.Go(func() error {
			file, err := f.Resolve(ctx, d)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", d.Binary, err)
			}
			p, err := f.Download(ctx, file)
			if err != nil {
				return fmt.Errorf("error handling %s: %w", file.Name, err)
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(drivers))
	for i, d := range drivers {
		out[d.Browser] = paths[i]
	}
	return out, nil
}

// Resolve finds the latest release of d.
func (f *Fetcher) Resolve(ctx context.Context, d Driver) (File, error) {
	switch d {
	case Chromedriver:
		return f.chromedriverFile(ctx)
	case Geckodriver:
		return f.geckodriverFile(ctx)
	case Msedgedriver:
		return f.msedgedriverFile(ctx)
	}
	return File{}, fmt.Errorf("unknown driver %q", d.Binary)
}

// chromedriverFile locates chromedriver in the chromium snapshot bucket.
func (f *Fetcher) chromedriverFile(ctx context.Context) (File, error) {
	const (
		// Bucket URL: https://console.cloud.google.com/storage/browser/chromium-browser-snapshots
		storageBktName       = "chromium-browser-snapshots"
		prefixLinux64        = "Linux_x64"
		lastChangeFile       = "Linux_x64/LAST_CHANGE"
		chromeDriverFilename = "chromedriver_linux64.zip"
	)
	gcsPath := fmt.Sprintf("gs://%s/", storageBktName)
	client, err := storage.NewClient(ctx, option.WithHTTPClient(f.HTTPClient))
	if err != nil {
		return File{}, fmt.Errorf("cannot create a storage client for downloading chromedriver: %w", err)
	}
	defer client.Close()

	bkt := client.Bucket(storageBktName)
	build := f.ChromeBuild
	if build == "" {
		r, err := bkt.Object(lastChangeFile).NewReader(ctx)
		if err != nil {
			return File{}, fmt.Errorf("cannot create a reader for %s%s file: %w", gcsPath, lastChangeFile, err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return File{}, fmt.Errorf("cannot read from %s%s file: %w", gcsPath, lastChangeFile, err)
		}
		build = strings.TrimSpace(string(data))
	}

	pkg := path.Join(prefixLinux64, build, chromeDriverFilename)
	attrs, err := bkt.Object(pkg).Attrs(ctx)
	if err != nil {
		return File{}, fmt.Errorf("cannot get the chrome driver package %s%s attrs: %w", gcsPath, pkg, err)
	}
	return File{
		Driver:   Chromedriver,
		URL:      attrs.MediaLink,
		Name:     "chromedriver.zip",
		Hash:     hex.EncodeToString(attrs.MD5),
		HashType: "md5",
		Member:   "chromedriver_linux64/chromedriver",
		Version:  build,
	}, nil
}

var geckodriverAssetRE = regexp.MustCompile(`^geckodriver-v.*-linux64\.tar\.gz$`)

// geckodriverFile locates the latest geckodriver release on GitHub.
func (f *Fetcher) geckodriverFile(ctx context.Context) (File, error) {
	const owner, repo = "mozilla", "geckodriver"
	rel, _, err := f.GitHub.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return File{}, err
	}
	v, err := semver.ParseTolerant(rel.GetTagName())
	if err != nil {
		return File{}, fmt.Errorf("release tag %q of %s/%s is not a version: %w", rel.GetTagName(), owner, repo, err)
	}
	if v.LT(MinGeckodriverVersion) {
		return File{}, fmt.Errorf("latest geckodriver %s is older than the supported %s", v, MinGeckodriverVersion)
	}
	for _, a := range rel.Assets {
		if !geckodriverAssetRE.MatchString(a.GetName()) {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return File{}, fmt.Errorf("%s does not have a download URL", a.GetName())
		}
		return File{
			Driver:  Geckodriver,
			URL:     u,
			Name:    "geckodriver.tar.gz",
			Member:  "geckodriver",
			Version: v.String(),
		}, nil
	}
	return File{}, fmt.Errorf("release for %s not found at https://github.com/%s/%s/releases", geckodriverAssetRE, owner, repo)
}

// msedgedriverFile locates the latest stable msedgedriver.
func (f *Fetcher) msedgedriverFile(ctx context.Context) (File, error) {
	base := strings.TrimSuffix(f.EdgeBaseURL, "/")
	data, err := f.get(ctx, base+"/LATEST_STABLE")
	if err != nil {
		return File{}, fmt.Errorf("finding the latest msedgedriver: %w", err)
	}
	version, err := decodeVersion(data)
	if err != nil {
		return File{}, err
	}
	return File{
		Driver:  Msedgedriver,
		URL:     fmt.Sprintf("%s/%s/edgedriver_linux64.zip", base, version),
		Name:    "msedgedriver.zip",
		Member:  "msedgedriver",
		Version: version,
	}, nil
}

// decodeVersion reads a version file, which Microsoft publishes as UTF-16
// with a byte order mark.
func decodeVersion(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte{0xff, 0xfe}) || bytes.HasPrefix(data, []byte{0xfe, 0xff}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decoding version file: %w", err)
		}
		data = out
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", errors.New("empty version file")
	}
	return v, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Download fetches file into the cache directory, unless an archive with the
// same hash is already there, and extracts the driver binary from it. It
// returns the path of the binary.
func (f *Fetcher) Download(ctx context.Context, file File) (string, error) {
	archive := filepath.Join(f.Dir, file.Name)
	if file.Hash != "" && f.sameHash(archive, file) {
		glog.Infof("Skipping file %q which has already been downloaded.", file.Name)
	} else {
		glog.Infof("Downloading %q from %q", file.Name, file.URL)
		if err := f.downloadFile(ctx, archive, file); err != nil {
			return "", err
		}
	}

	glog.Infof("Unpacking %q", archive)
	bin := filepath.Join(f.Dir, file.Driver.Binary)
	if err := extract(f.Fs, archive, file.Member, bin); err != nil {
		return "", fmt.Errorf("error unpacking %q: %w", file.Name, err)
	}
	return bin, nil
}

func (f *Fetcher) downloadFile(ctx context.Context, dst string, file File) (err error) {
	out, err := f.Fs.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating %q: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %q: %w", dst, closeErr)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: error downloading %q: %s", file.Name, file.URL, resp.Status)
	}

	if file.Hash == "" {
		if _, err := io.Copy(out, resp.Body); err != nil {
			return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
		}
		return nil
	}
	h := newHash(file.HashType)
	if _, err := io.Copy(io.MultiWriter(out, h), resp.Body); err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != file.Hash {
		return fmt.Errorf("%s: got %s hash %q, want %q", file.Name, file.hashType(), got, file.Hash)
	}
	return nil
}

func (f *Fetcher) sameHash(p string, file File) bool {
	in, err := f.Fs.Open(p)
	if err != nil {
		return false
	}
	defer in.Close()

	h := newHash(file.HashType)
	if _, err := io.Copy(h, in); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.Hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.Hash)
		return false
	}
	return true
}

func (file File) hashType() string {
	if file.HashType == "" {
		return "sha256"
	}
	return strings.ToLower(file.HashType)
}

func newHash(hashType string) hash.Hash {
	switch strings.ToLower(hashType) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	default:
		return sha256.New()
	}
}

const (
	// executable is the mode of extracted driver binaries.
	executable    os.FileMode = 0o755
	osCreateTrunc             = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
)
