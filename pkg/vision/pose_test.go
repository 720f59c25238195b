//go:build cgo
// +build cgo

package vision

import (
	"testing"
	"time"

	"github.com/robotvision/armctl/pkg/calib"
	"gocv.io/x/gocv"
)

type countingSource struct {
	width, height int
	reads         int
}

func (c *countingSource) Open(deviceID, width, height, fps int) error { return nil }

func (c *countingSource) Read() (gocv.Mat, error) {
	c.reads++
	return gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3), nil
}

func (c *countingSource) Close() error { return nil }

func testIntr() calib.Intrinsics {
	return calib.Intrinsics{FX: 1000, FY: 1000, CX: 640, CY: 360}
}

func TestPoseTrackerSnapshotEmptyInitially(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	tr := NewPoseTracker(src, testIntr(), DefaultMarkerModel())
	defer tr.Close()

	if _, ok := tr.Snapshot(); ok {
		t.Error("expected no snapshot before any capture")
	}
}

func TestPoseTrackerUpdatePoseNoMarker(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	tr := NewPoseTracker(src, testIntr(), DefaultMarkerModel())
	defer tr.Close()

	// A blank frame contains no ArUco marker, so detection fails and
	// UpdatePose reports no pose.
	if ok := tr.UpdatePose(true); ok {
		t.Error("expected UpdatePose to fail against a blank frame")
	}
	if _, ok := tr.Snapshot(); ok {
		t.Error("expected no snapshot after a failed capture")
	}
}

func TestPoseTrackerUpdatePoseRespectsTTL(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	tr := NewPoseTracker(src, testIntr(), DefaultMarkerModel())
	defer tr.Close()
	tr.ttl = time.Hour

	tr.Install(PoseSnapshot{Captured: time.Now()}, true)
	reads := src.reads

	if ok := tr.UpdatePose(false); !ok {
		t.Error("expected cached snapshot to still be valid")
	}
	if src.reads != reads {
		t.Errorf("expected no new read while cache is valid, reads went from %d to %d", reads, src.reads)
	}

	if ok := tr.UpdatePose(true); ok {
		t.Error("forced update against a blank frame should fail")
	}
	if src.reads != reads+1 {
		t.Errorf("expected exactly one new read on forced update, reads went from %d to %d", reads, src.reads)
	}
}

func TestPoseTrackerSetCacheTTL(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	tr := NewPoseTracker(src, testIntr(), DefaultMarkerModel())
	defer tr.Close()

	tr.SetCacheTTL(time.Hour)
	if tr.ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", tr.ttl)
	}

	tr.SetCacheTTL(-5 * time.Second)
	if tr.ttl != time.Hour {
		t.Fatalf("negative SetCacheTTL should be ignored, ttl = %v, want unchanged 1h", tr.ttl)
	}

	tr.SetCacheTTL(0)
	if tr.ttl != 0 {
		t.Fatalf("ttl = %v, want 0 (caching disabled)", tr.ttl)
	}

	tr.Install(PoseSnapshot{Captured: time.Now()}, true)
	reads := src.reads
	if ok := tr.UpdatePose(false); ok {
		t.Error("expected UpdatePose to recapture (and fail against a blank frame) with zero TTL")
	}
	if src.reads != reads+1 {
		t.Errorf("expected a fresh read with zero TTL, reads went from %d to %d", reads, src.reads)
	}
}

func TestPoseTrackerInstallClearsOnFalse(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	tr := NewPoseTracker(src, testIntr(), DefaultMarkerModel())
	defer tr.Close()

	tr.Install(PoseSnapshot{Captured: time.Now()}, true)
	if _, ok := tr.Snapshot(); !ok {
		t.Fatal("expected snapshot present after Install(true)")
	}

	tr.Install(PoseSnapshot{}, false)
	if _, ok := tr.Snapshot(); ok {
		t.Error("expected snapshot cleared after Install(false)")
	}
}

func TestPoseTrackerIntrinsicsAndMarker(t *testing.T) {
	src := &countingSource{width: 1280, height: 720}
	intr := testIntr()
	marker := MarkerModel{ID: 5, Side: 40}
	tr := NewPoseTracker(src, intr, marker)
	defer tr.Close()

	if tr.Intrinsics() != intr {
		t.Errorf("Intrinsics() = %+v, want %+v", tr.Intrinsics(), intr)
	}
	if tr.Marker() != marker {
		t.Errorf("Marker() = %+v, want %+v", tr.Marker(), marker)
	}
}

func TestCameraCenterFromPoseIdentity(t *testing.T) {
	snap := PoseSnapshot{
		R:    [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Tvec: [3]float64{10, 20, 30},
	}
	c := cameraCenterFromPose(snap)
	if c.X != -10 || c.Y != -20 || c.Z != -30 {
		t.Errorf("cameraCenterFromPose() = %+v, want (-10,-20,-30)", c)
	}
}
