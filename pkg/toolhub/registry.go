package toolhub

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/robotvision/armctl/internal/corectx"
)

// HandlerFunc is a tool implementation bound to a Context. args holds
// the JSON-decoded call arguments; the returned value is JSON-
// marshalable (a map, slice, or string).
type HandlerFunc func(cc *corectx.Context, args map[string]any) (any, error)

// ToolDescriptor attaches documentation and a handler to a tool name,
// replacing the docstring-as-behavior pattern with a static table:
// localization, if ever added, would pick a language at registration
// rather than at call time.
type ToolDescriptor struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// Registry is the tool-call surface bound to one Context, with its
// own audit log of every call.
type Registry struct {
	ctx   *corectx.Context
	tools map[string]ToolDescriptor
	audit *AuditLog
	now   func() time.Time
}

// New builds a Registry with the full tool surface wired to ctx.
func New(ctx *corectx.Context) *Registry {
	r := &Registry{
		ctx:   ctx,
		tools: make(map[string]ToolDescriptor),
		audit: NewAuditLog(),
		now:   time.Now,
	}
	for _, d := range r.defaultDescriptors() {
		r.tools[d.Name] = d
	}
	return r
}

// AuditLog exposes the registry's log, for get_tool_logs and for the
// HTTP debug surface.
func (r *Registry) AuditLog() *AuditLog {
	return r.audit
}

// Descriptors returns the registered tools sorted by name, for
// surfacing a tool manifest to the RPC transport.
func (r *Registry) Descriptors() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call invokes the named tool, recording the exchange in the audit
// log unless the caller identifies itself as the web client.
func (r *Registry) Call(name string, args map[string]any) (any, error) {
	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("toolhub: unknown tool %q", name)
	}

	result, err := d.Handler(r.ctx, args)
	r.audit.Record(name, args, resultToString(result, err), r.now())
	return result, err
}

// resultToString renders a handler's return value the way it would be
// logged: errors as "Error: ...", strings verbatim, everything else
// JSON-marshaled.
func resultToString(result any, err error) string {
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if s, ok := result.(string); ok {
		return s
	}
	b, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
