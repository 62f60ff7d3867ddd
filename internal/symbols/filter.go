package symbols

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Filter answers whether a symbol is worth spending a provider call on.
// Verdicts are memoized per (ticker, exchange) for the lifetime of the
// filter, since the underlying directory does not change within a run.
type Filter struct {
	dir       Directory
	auditPath string
	logger    *slog.Logger

	mu      sync.RWMutex
	verdict map[string]bool
}

// NewFilter creates a filter over the given directory. Skipped symbols are
// appended to the audit log at auditPath; pass an empty path to disable
// audit logging.
func NewFilter(dir Directory, auditPath string, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		dir:       dir,
		auditPath: auditPath,
		logger:    logger,
		verdict:   make(map[string]bool),
	}
}

// IsValid reports whether instrument metadata is known for the pair.
func (f *Filter) IsValid(ticker, exchange string) bool {
	key := pairKey(ticker, exchange)

	f.mu.RLock()
	valid, ok := f.verdict[key]
	f.mu.RUnlock()
	if ok {
		return valid
	}

	_, valid = f.dir.Lookup(ticker, exchange)

	f.mu.Lock()
	f.verdict[key] = valid
	f.mu.Unlock()
	return valid
}

// RecordSkipped appends a skipped-symbol event to the audit log. The log is
// best-effort: write failures are logged and swallowed so that audit
// trouble can never break a fetch.
func (f *Filter) RecordSkipped(ticker, exchange, reason string) {
	if f.auditPath == "" {
		return
	}
	line := fmt.Sprintf("%s,%s,%s,%s\n", time.Now().UTC().Format(time.RFC3339), ticker, exchange, reason)

	if err := appendLine(f.auditPath, line); err != nil {
		f.logger.Warn("failed to append to skip audit log",
			slog.String("path", f.auditPath),
			slog.String("ticker", ticker),
			slog.String("error", err.Error()))
	}
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(line)
	return err
}
