// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ServerTimestampFormat is the layout the UDJ server expects for "since" timestamps, always in UTC.
const ServerTimestampFormat = "2006-01-02 15:04:05"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel parses level (debug, info, warn, error) and applies it to the given [log.Logger].
func SetLogLevel(l *log.Logger, level string) error {
	if level == "" {
		return nil
	}
	ll, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	l.SetLevel(ll)
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// FormatServerTimestamp renders t in [ServerTimestampFormat] after converting to UTC.
func FormatServerTimestamp(t time.Time) string {
	return t.UTC().Format(ServerTimestampFormat)
}

// ParseServerTimestamp is the inverse of [FormatServerTimestamp].
func ParseServerTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ServerTimestampFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, s)
	}
	return t, nil
}
