//go:build cgo
// +build cgo

package corectx

import (
	"testing"
	"time"

	"github.com/robotvision/armctl/internal/config"
	"github.com/robotvision/armctl/pkg/calib"
	"github.com/robotvision/armctl/pkg/vision"
	"gocv.io/x/gocv"
)

// fakeSource is a synthetic FrameSource returning a blank frame of the
// requested size, used so tests exercise the capture/publish wiring
// without touching real camera hardware.
type fakeSource struct {
	width, height int
	closed        bool
	reads         int
}

func (f *fakeSource) Open(deviceID, width, height, fps int) error { return nil }

func (f *fakeSource) Read() (gocv.Mat, error) {
	f.reads++
	return gocv.NewMatWithSize(f.height, f.width, gocv.MatTypeCV8UC3), nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func testIntrinsics() calib.Intrinsics {
	return calib.Intrinsics{
		FX: 1000, FY: 1000, CX: 640, CY: 360,
		Dist: [5]float64{0, 0, 0, 0, 0},
	}
}

func newTestContext(t *testing.T) (*Context, *fakeSource) {
	t.Helper()
	cfg := config.Default()
	src := &fakeSource{width: 1280, height: 720}
	cc, err := NewWithCamera(cfg, src, testIntrinsics())
	if err != nil {
		t.Fatalf("NewWithCamera: %v", err)
	}
	return cc, src
}

func TestNewWithCamera(t *testing.T) {
	cc, _ := newTestContext(t)
	defer cc.Close()

	if cc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", cc.State())
	}
	if cc.Tracker == nil || cc.Publisher == nil || cc.Serial == nil {
		t.Fatal("expected Tracker, Publisher, and Serial to be wired")
	}
}

func TestContextStartStop(t *testing.T) {
	cc, _ := newTestContext(t)

	if err := cc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if cc.State() != StateRunning {
		t.Errorf("expected StateRunning, got %v", cc.State())
	}

	// Double start should fail.
	if err := cc.Start(); err != ErrContextRunning {
		t.Errorf("expected ErrContextRunning, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if w, h := cc.Publisher.Dimensions(); w == 0 || h == 0 {
		t.Error("expected a frame to be published after starting the capture loop")
	}

	if err := cc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if cc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", cc.State())
	}
}

func TestContextClose(t *testing.T) {
	cc, src := newTestContext(t)

	if err := cc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := cc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Error("expected underlying camera to be closed")
	}

	// Double close should fail.
	if err := cc.Close(); err != ErrContextClosed {
		t.Errorf("expected ErrContextClosed, got %v", err)
	}

	// Start after close should fail.
	if err := cc.Start(); err != ErrContextClosed {
		t.Errorf("expected ErrContextClosed, got %v", err)
	}
}

func TestNewWithCameraWiresConfiguredPoseCacheTTL(t *testing.T) {
	cfg := config.Default()
	cfg.Pose.CacheTTLMillis = 0 // disables caching: every UpdatePose(false) recaptures

	src := &fakeSource{width: 1280, height: 720}
	cc, err := NewWithCamera(cfg, src, testIntrinsics())
	if err != nil {
		t.Fatalf("NewWithCamera: %v", err)
	}
	defer cc.Close()

	cc.Tracker.Install(vision.PoseSnapshot{Captured: time.Now()}, true)
	reads := src.reads

	if ok := cc.Tracker.UpdatePose(false); ok {
		t.Error("expected UpdatePose to recapture (and fail against a blank frame) with cache_ttl_ms = 0")
	}
	if src.reads != reads+1 {
		t.Errorf("expected a fresh read with cache_ttl_ms = 0, reads went from %d to %d", reads, src.reads)
	}
}

func TestContextCloseWithoutStart(t *testing.T) {
	cc, _ := newTestContext(t)

	if err := cc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if cc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", cc.State())
	}
}
