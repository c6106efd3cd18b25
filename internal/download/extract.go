package download

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// extract copies the archive member named member into dst and makes it
// executable. Archives other than .zip and .tar.gz are copied as they are.
func extract(fs afero.Fs, archive, member, dst string) error {
	switch {
	case strings.HasSuffix(archive, ".zip"):
		return extractZip(fs, archive, member, dst)
	case strings.HasSuffix(archive, ".tar.gz"), strings.HasSuffix(archive, ".tgz"):
		return extractTarGz(fs, archive, member, dst)
	}
	in, err := fs.Open(archive)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeExecutable(fs, dst, in)
}

func extractZip(fs afero.Fs, archive, member, dst string) error {
	f, err := fs.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return err
	}
	for _, zf := range zr.File {
		if !memberMatches(zf.Name, member) {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return writeExecutable(fs, dst, rc)
	}
	return fmt.Errorf("%s has no member %q", archive, member)
}

func extractTarGz(fs afero.Fs, archive, member, dst string) error {
	f, err := fs.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg || !memberMatches(hdr.Name, member) {
			continue
		}
		return writeExecutable(fs, dst, tr)
	}
	return fmt.Errorf("%s has no member %q", archive, member)
}

// memberMatches compares archive paths, ignoring a leading "./".
func memberMatches(name, member string) bool {
	return path.Clean(strings.TrimPrefix(name, "./")) == path.Clean(member)
}

func writeExecutable(fs afero.Fs, dst string, r io.Reader) (err error) {
	out, err := fs.OpenFile(dst, osCreateTrunc, executable)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return fs.Chmod(dst, executable)
}
