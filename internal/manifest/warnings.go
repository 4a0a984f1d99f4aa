package manifest

import (
	"log/slog"
	"sync"
)

// WarningLog remembers which normalization warnings were already logged so
// that repeated compositions in one process do not repeat them. Its lifetime
// is the process; Clear resets it for tests.
type WarningLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// DefaultWarningLog is the process-wide warning log.
var DefaultWarningLog = NewWarningLog()

// NewWarningLog returns an empty WarningLog.
func NewWarningLog() *WarningLog {
	return &WarningLog{seen: make(map[string]struct{})}
}

// Seen reports whether warning has already been logged.
func (l *WarningLog) Seen(warning string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[warning]
	return ok
}

// Log writes each warning not logged before and returns the ones it wrote.
func (l *WarningLog) Log(logger *slog.Logger, warnings []string) []string {
	if logger == nil {
		logger = slog.Default()
	}

	l.mu.Lock()
	var fresh []string
	for _, w := range warnings {
		if _, ok := l.seen[w]; ok {
			continue
		}
		l.seen[w] = struct{}{}
		fresh = append(fresh, w)
	}
	l.mu.Unlock()

	for _, w := range fresh {
		logger.Warn("manifest normalized", "warning", w)
	}
	return fresh
}

// Clear forgets every logged warning.
func (l *WarningLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = make(map[string]struct{})
}
