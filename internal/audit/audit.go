// Package audit is the reference implementation of config.AuditLogger:
// an append-only, fsynced JSON-lines file sink, with an optional
// secondary github.com/sirupsen/logrus hook for operators who already
// ship structured logs to a collector.
//
// The fsync-per-record durability contract is grounded on
// storage.File.Sync's own "flush then fsync" discipline; the JSON-lines
// record shape mirrors pkg/vcfg's plain encoding/json usage rather than
// introducing a new serialization library for a one-struct-per-line
// format.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/sirupsen/logrus"
)

// Record is one JSON-lines entry in the audit log.
type Record struct {
	Timestamp    time.Time       `json:"timestamp"`
	Operation    string          `json:"operation"`
	Path         string          `json:"path"`
	Outcome      string          `json:"outcome"`
	MetadataJSON json.RawMessage `json:"metadata,omitempty"`
}

// Logger appends one JSON object per line to a backing file, fsyncing
// after every write so a crash never loses an already-acknowledged
// operation's audit trail.
type Logger struct {
	mu        sync.Mutex
	f         *os.File
	secondary *logrus.Logger // optional; nil disables the logrus hook
}

// Open creates or appends to the JSON-lines audit log at path.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, path, err)
	}
	return &Logger{f: f}, nil
}

// WithLogrus attaches a secondary github.com/sirupsen/logrus sink that
// receives the same records at Info level, for operators forwarding
// structured logs to an external collector in addition to the on-disk
// JSON-lines trail.
func (l *Logger) WithLogrus(log *logrus.Logger) *Logger {
	l.secondary = log
	return l
}

// Record implements config.AuditLogger. Marshal or write failures are
// swallowed rather than propagated, matching the façade's audit call
// sites, which treat auditing as best-effort and never let a broken
// audit sink block a storage operation.
func (l *Logger) Record(operation, path, outcome string, metadataJSON []byte) {
	rec := Record{
		Timestamp:    time.Now().UTC(),
		Operation:    operation,
		Path:         path,
		Outcome:      outcome,
		MetadataJSON: metadataJSON,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.Write(line); err != nil {
		return
	}
	_ = l.f.Sync()

	if l.secondary != nil {
		l.secondary.WithFields(logrus.Fields{
			"operation": operation,
			"path":      path,
			"outcome":   outcome,
		}).Info("cartridge audit record")
	}
}

// Close releases the backing file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
