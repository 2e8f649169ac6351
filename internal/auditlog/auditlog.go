// Package auditlog implements MyMolt's append-only security audit trail:
// every SIGIL interception, policy decision, and trust-gated action is
// recorded as one newline-delimited JSON record, never rewritten or
// truncated by the core.
package auditlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tidwall/sjson"
)

// EventType names the kind of security-relevant event being recorded.
type EventType string

const (
	SigilInterception  EventType = "sigil_interception"
	CommandExecution   EventType = "command_execution"
	FileAccess         EventType = "file_access"
	ConfigChange       EventType = "config_change"
	AuthSuccess        EventType = "auth_success"
	AuthFailure        EventType = "auth_failure"
	PolicyViolation    EventType = "policy_violation"
	SecurityEvent      EventType = "security_event"
	DelegationCrossing EventType = "delegation_crossing"
)

// Event is a single audit record. Severity is a free-form string
// ("low"/"medium"/"high") rather than an enum, matching how MyMolt's
// policy layer already reasons about risk levels.
type Event struct {
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	Action        string         `json:"action"`
	Severity      string         `json:"severity"`
	Success       bool           `json:"success"`
	UserInitiated bool           `json:"user_initiated"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// New builds an Event of the given type, stamped with the current time.
func New(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC()}
}

// WithAction fills in the free-text fields of an Event and returns it,
// mirroring the fluent construction MyMolt's interception and gatekeeper
// code paths use inline at the call site.
func (e Event) WithAction(action, severity string, success, userInitiated bool) Event {
	e.Action = action
	e.Severity = severity
	e.Success = success
	e.UserInitiated = userInitiated
	return e
}

// WithMetadata attaches a structured field to the event.
func (e Event) WithMetadata(key string, value any) Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// Logger appends Events to a single NDJSON file. A Logger is safe for
// concurrent use.
type Logger struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (creating if necessary) the audit log at path.
func Open(path string, diagnostics *slog.Logger) (*Logger, error) {
	if diagnostics == nil {
		diagnostics = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("auditlog: opening %s: %w", path, err)
	}
	f.Close()
	return &Logger{path: path, logger: diagnostics}, nil
}

// Path returns the backing file path.
func (l *Logger) Path() string {
	return l.path
}

// Log appends an event. Write failures never surface to the caller — a
// failing audit write must not block the security-relevant action it is
// describing — but are reported to the diagnostics logger so an operator
// can notice a full disk or a permissions problem.
func (l *Logger) Log(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("auditlog: marshalling event failed", "error", err, "type", e.Type)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.logger.Warn("auditlog: opening log for append failed", "error", err, "path", l.path)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Warn("auditlog: writing event failed", "error", err, "path", l.path)
	}
}

// RedactField replaces a single top-level field in an already-marshalled
// JSON record with a placeholder, without a full unmarshal/remarshal round
// trip — used to scrub a tool's raw "args" blob before it is folded into
// an event's metadata.
func RedactField(rawJSON, field, placeholder string) string {
	redacted, err := sjson.Set(rawJSON, field, placeholder)
	if err != nil {
		return rawJSON
	}
	return redacted
}

// Read streams every event in the audit log in append order. Intended for
// the "audit tail"/"audit show" CLI commands, not for hot-path checks.
func Read(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: reading %s: %w", path, err)
	}

	var events []Event
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			break
		}
		events = append(events, e)
	}
	return events, nil
}
