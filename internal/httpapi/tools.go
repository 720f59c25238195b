package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/robotvision/armctl/pkg/toolhub"
)

// ToolHandler exposes the tool registry over a minimal JSON transport:
// POST /tools/<name> with a JSON object body of arguments, returning
// the handler's result (or a JSON {"error": "..."} on failure). The
// wire framing here is this implementation's own choice; the RPC
// transport itself is not otherwise specified.
type ToolHandler struct {
	registry *toolhub.Registry
}

// NewToolHandler builds a handler bound to a registry.
func NewToolHandler(r *toolhub.Registry) *ToolHandler {
	return &ToolHandler{registry: r}
}

func (h *ToolHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" {
		http.Error(w, "missing tool name", http.StatusBadRequest)
		return
	}

	var args map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "malformed JSON body", http.StatusBadRequest)
			return
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := h.registry.Call(name, args)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(result)
}
