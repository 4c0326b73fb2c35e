// Package logger builds the zap logger used across the engine and wires a
// callback core that mirrors every record into a bounded ring buffer, which
// backs the engine's subscribeToLogs contract.
package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity is the coarse tag the engine-to-UI contract exposes for a log
// record (spec §6: INFO, SUCCESS, WARNING, ERROR).
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Entry is one record in the bounded log ring buffer.
type Entry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// Ring is a fixed-capacity ring buffer of log entries, capped at the size
// the engine-to-UI contract specifies (<=200).
type Ring struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	version uint64
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 200
	}
	return &Ring{cap: capacity}
}

func (r *Ring) push(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
	r.version++
}

// Snapshot returns a copy of the current entries and the ring's version,
// used by the subscription query-and-diff layer to detect new log activity
// without maintaining its own mirror.
func (r *Ring) Snapshot() ([]Entry, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out, r.version
}

func severityFromLevel(level zapcore.Level) Severity {
	switch level {
	case zapcore.WarnLevel:
		return SeverityWarning
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return SeverityError
	default:
		return SeverityInfo
	}
}

// callbackCore delegates every Write to an underlying core and additionally
// pushes an Entry into the supplied ring buffer.
type callbackCore struct {
	zapcore.Core
	ring *Ring
}

func newCallbackCore(underlying zapcore.Core, ring *Ring) *callbackCore {
	return &callbackCore{Core: underlying, ring: ring}
}

func (c *callbackCore) With(fields []zapcore.Field) zapcore.Core {
	return newCallbackCore(c.Core.With(fields), c.ring)
}

func (c *callbackCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *callbackCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.ring.push(Entry{Time: ent.Time, Severity: severityFromLevel(ent.Level), Message: ent.Message})
	return c.Core.Write(ent, fields)
}

// New builds a zap.Logger writing colored console output, at Debug level
// when debug is true, and returns the bounded ring buffer it also feeds.
func New(debug bool) (*zap.Logger, *Ring) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), level)
	ring := NewRing(200)
	wrapped := newCallbackCore(core, ring)

	return zap.New(wrapped, zap.AddCaller()), ring
}
