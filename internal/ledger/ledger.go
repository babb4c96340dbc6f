package ledger

import (
	"log/slog"
	"sort"

	"siphon/internal/logging"
)

// Ledger accumulates per-file errors and warnings during a run so that one
// bad file cannot abort the remaining work. Callers check Flagged before
// acting on a file and call Report once the run finishes.
type Ledger struct {
	errors   map[string][]string
	warnings map[string][]string
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		errors:   make(map[string][]string),
		warnings: make(map[string][]string),
	}
}

// Error records an error message against name. Duplicate messages for the
// same name are recorded once.
func (l *Ledger) Error(name, message string) {
	l.errors[name] = appendUnique(l.errors[name], message)
}

// Warning records a warning message against name. Duplicate messages for the
// same name are recorded once.
func (l *Ledger) Warning(name, message string) {
	l.warnings[name] = appendUnique(l.warnings[name], message)
}

// Capture runs fn and records its error, if any, against name. It returns
// true when fn succeeded.
func (l *Ledger) Capture(name string, fn func() error) bool {
	if err := fn(); err != nil {
		l.Error(name, err.Error())
		return false
	}
	return true
}

// Flagged reports whether name has at least one recorded error.
func (l *Ledger) Flagged(name string) bool {
	return len(l.errors[name]) > 0
}

// ErrorCount returns the number of names with recorded errors.
func (l *Ledger) ErrorCount() int {
	return len(l.errors)
}

// WarningCount returns the number of names with recorded warnings.
func (l *Ledger) WarningCount() int {
	return len(l.warnings)
}

// Errors returns the recorded error messages for name in recording order.
func (l *Ledger) Errors(name string) []string {
	return append([]string(nil), l.errors[name]...)
}

// Warnings returns the recorded warning messages for name in recording order.
func (l *Ledger) Warnings(name string) []string {
	return append([]string(nil), l.warnings[name]...)
}

// Names returns every name with a recorded error or warning, sorted.
func (l *Ledger) Names() []string {
	seen := make(map[string]struct{}, len(l.errors)+len(l.warnings))
	for name := range l.errors {
		seen[name] = struct{}{}
	}
	for name := range l.warnings {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report logs every recorded error and warning grouped by name.
func (l *Ledger) Report(logger *slog.Logger) {
	names := l.Names()
	if len(names) == 0 {
		return
	}
	logger.Info("errors and warnings",
		logging.Int("files", len(names)),
		logging.Int("errors", l.ErrorCount()),
		logging.Int("warnings", l.WarningCount()))
	for _, name := range names {
		for _, message := range l.errors[name] {
			logger.Error(message, logging.String("file", name))
		}
		for _, message := range l.warnings[name] {
			logger.Warn(message, logging.String("file", name))
		}
	}
}

func appendUnique(messages []string, message string) []string {
	for _, existing := range messages {
		if existing == message {
			return messages
		}
	}
	return append(messages, message)
}
