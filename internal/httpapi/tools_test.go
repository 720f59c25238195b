//go:build cgo
// +build cgo

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robotvision/armctl/internal/config"
	"github.com/robotvision/armctl/internal/corectx"
	"github.com/robotvision/armctl/pkg/calib"
	"github.com/robotvision/armctl/pkg/toolhub"
	"gocv.io/x/gocv"
)

type fakeSource struct{ width, height int }

func (f *fakeSource) Open(deviceID, width, height, fps int) error { return nil }

func (f *fakeSource) Read() (gocv.Mat, error) {
	return gocv.NewMatWithSize(f.height, f.width, gocv.MatTypeCV8UC3), nil
}

func (f *fakeSource) Close() error { return nil }

func newTestHandler(t *testing.T) *ToolHandler {
	t.Helper()
	cfg := config.Default()
	intr := calib.Intrinsics{FX: 1000, FY: 1000, CX: 640, CY: 360}
	cc, err := corectx.NewWithCamera(cfg, &fakeSource{width: 1280, height: 720}, intr)
	if err != nil {
		t.Fatalf("NewWithCamera: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return NewToolHandler(toolhub.New(cc))
}

func TestToolHandlerCallsRegisteredTool(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/tools/get_joypad_status", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := body["X"]; !ok {
		t.Errorf("expected X in response, got %v", body)
	}
}

func TestToolHandlerUnknownTool(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/tools/no_such_tool", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestToolHandlerRejectsGet(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/tools/get_joypad_status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
