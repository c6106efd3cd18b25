// Package log configures the scenario log file and relays WebDriver logs into
// it.
//
// Entries are appended to a fixed file, one line each, in the form
//
//	2024-05-01 12:00:00,000 - tablesearch - INFO - Navigating to the page
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	selog "github.com/tebeka/selenium/log"
)

const (
	// DefaultPath is the log file used when none is configured.
	DefaultPath = "selenium_test.log"
	// DefaultName is the logger name written on each line.
	DefaultName = "tablesearch"
	// TimestampFormat is the default timestamp layout, with milliseconds.
	TimestampFormat = "2006-01-02 15:04:05,000"
	// NameKey is the entry field that overrides the logger name of a line.
	NameKey = "logger"
)

// Formatter renders entries as "time - name - LEVEL - message", followed by
// any remaining fields as sorted key=value pairs.
type Formatter struct {
	Name            string
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	b := e.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	layout := f.TimestampFormat
	if layout == "" {
		layout = TimestampFormat
	}
	name := f.Name
	if name == "" {
		name = DefaultName
	}
	if n, ok := e.Data[NameKey].(string); ok && n != "" {
		name = n
	}

	fmt.Fprintf(b, "%s - %s - %s - %s", e.Time.Format(layout), name, LevelName(e.Level), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != NameKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// LevelName returns the upper-case level name written to the log file.
func LevelName(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.ErrorLevel:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// Open returns a logger appending to the file at path, creating the file and
// its directory when missing. The returned Closer closes the file.
func Open(path string, level logrus.Level) (*logrus.Logger, io.Closer, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open logfile %s: %w", path, err)
	}

	l := logrus.New()
	l.SetOutput(f)
	l.SetFormatter(&Formatter{Name: DefaultName})
	l.SetLevel(level)
	return l, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Named returns logger with its name set to name on every line.
func Named(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	return logger.WithField(NameKey, name)
}

// Relay re-emits log messages fetched from the WebDriver server through
// logger, keeping the browser's severity and timestamp.
func Relay(logger logrus.FieldLogger, typ selog.Type, msgs []selog.Message) {
	for _, m := range msgs {
		logger.WithFields(logrus.Fields{
			"source":    string(typ),
			"logged_at": m.Timestamp.Format(TimestampFormat),
		}).Log(FromWebDriver(m.Level), m.Message)
	}
}

// FromWebDriver maps a WebDriver log level onto a logrus level.
func FromWebDriver(l selog.Level) logrus.Level {
	switch l {
	case selog.Severe:
		return logrus.ErrorLevel
	case selog.Warning:
		return logrus.WarnLevel
	case selog.Debug, selog.All:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
