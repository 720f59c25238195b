// Package toolhub binds the tool-call surface — catalog lookup,
// sequence execution, status, joypad, live image, coordinate
// conversion, and log retrieval — to a corectx.Context, and keeps the
// bounded audit log of every invocation.
package toolhub

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// auditCap bounds the ring buffer at 50 entries.
const auditCap = 50

// redactedImageSentinel replaces a logged image_jpeg_base64 payload.
const redactedImageSentinel = "<redacted-image>"

// truncateLimit is the character count beyond which a non-image result
// is truncated before logging.
const truncateLimit = 500

// ToolLogEntry is one recorded invocation: when it happened, which
// tool was called, with what arguments, and the redacted result.
type ToolLogEntry struct {
	Time   time.Time      `json:"time"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
}

// AuditLog is a bounded, append-only ring of ToolLogEntry, newest last.
// Entries whose calling_client argument is "web_client" are never
// recorded: the web UI observes, it does not act as an agent.
type AuditLog struct {
	mu      sync.Mutex
	entries []ToolLogEntry
}

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends one entry, evicting the oldest if the log is full.
// nowFn lets tests supply a deterministic clock; production callers
// use Record via the Registry, which passes time.Now.
func (a *AuditLog) Record(tool string, args map[string]any, result string, at time.Time) {
	if s, ok := args["calling_client"].(string); ok && s == "web_client" {
		return
	}

	entry := ToolLogEntry{
		Time:   at,
		Tool:   tool,
		Args:   args,
		Result: redact(result),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	if len(a.entries) > auditCap {
		a.entries = a.entries[len(a.entries)-auditCap:]
	}
}

// Entries returns a copy of the current log, oldest first.
func (a *AuditLog) Entries() []ToolLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ToolLogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// redact applies the logging redaction rule: a result over the
// truncate limit that parses as a JSON object carrying
// image_jpeg_base64 has just that field replaced; anything else over
// the limit is truncated with an ellipsis marker.
func redact(result string) string {
	if len(result) <= truncateLimit {
		return result
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(result), &obj); err == nil {
		if _, ok := obj["image_jpeg_base64"]; ok {
			obj["image_jpeg_base64"] = redactedImageSentinel
			if b, err := json.Marshal(obj); err == nil {
				return string(b)
			}
		}
	}

	return strings.TrimSpace(result[:truncateLimit]) + "..."
}
