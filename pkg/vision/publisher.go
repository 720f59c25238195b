//go:build cgo
// +build cgo

package vision

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// FramePublisher is the single-producer, many-consumer holder of the
// latest processed frame and pose. Readers never see a torn
// frame/pose pair: the published value is swapped as one pointer
// under swapMu, held only across the swap itself.
type FramePublisher struct {
	source  FrameSource
	tracker *PoseTracker
	overlay Overlay

	trajMu sync.RWMutex
	traj   *PickPlaceTrajectory

	swapMu sync.RWMutex
	latest *published
}

type published struct {
	mat      gocv.Mat
	pose     PoseSnapshot
	havePose bool
	width    int
	height   int
	captured time.Time
}

// NewFramePublisher builds a publisher over a frame source and the
// pose tracker that shares its intrinsics and marker model.
func NewFramePublisher(source FrameSource, tracker *PoseTracker) *FramePublisher {
	return &FramePublisher{
		source:  source,
		tracker: tracker,
		overlay: NewOverlay(NewProjector(tracker.Intrinsics().FX, tracker.Intrinsics().FY, tracker.Intrinsics().CX, tracker.Intrinsics().CY, 0, 0)),
	}
}

// SetProjector overrides the overlay's projector, used once the world
// frame offset is known from configuration.
func (p *FramePublisher) SetProjector(proj Projector) {
	p.overlay = NewOverlay(proj)
}

// SetTrajectory publishes (or clears, with nil) the pick-place
// trajectory drawn by subsequent overlay renders.
func (p *FramePublisher) SetTrajectory(traj *PickPlaceTrajectory) {
	p.trajMu.Lock()
	defer p.trajMu.Unlock()
	p.traj = traj
}

// CaptureAndProcess reads one frame, undistorts it, runs pose
// detection, and atomically replaces the published frame/pose pair.
// It never holds the FrameSource lock and the publish lock
// simultaneously; the FrameSource read completes before swapMu is
// acquired.
func (p *FramePublisher) CaptureAndProcess() error {
	raw, err := p.source.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	defer raw.Close()

	undistorted := gocv.NewMat()
	p.tracker.Undistort(raw, &undistorted)

	snap, ok := p.tracker.DetectAndSolve(undistorted)
	p.tracker.Install(snap, ok)

	next := &published{
		mat:      undistorted,
		pose:     snap,
		havePose: ok,
		width:    undistorted.Cols(),
		height:   undistorted.Rows(),
		captured: time.Now(),
	}

	p.swapMu.Lock()
	prev := p.latest
	p.latest = next
	p.swapMu.Unlock()

	if prev != nil {
		prev.mat.Close()
	}
	return nil
}

// current returns the published frame under a read lock. The returned
// published value's Mat must not outlive the caller's use; callers
// that need to mutate (overlay drawing) must Clone it first.
func (p *FramePublisher) current() *published {
	p.swapMu.RLock()
	defer p.swapMu.RUnlock()
	return p.latest
}

// LatestJPEG renders the requested overlays onto a clone of the
// latest frame and JPEG-encodes it. It returns ErrPoseUnavailable only
// if there is no published frame at all; a frame without a pose is
// still encoded, with axes/trajectory omitted.
func (p *FramePublisher) LatestJPEG(opts OverlayOptions) ([]byte, error) {
	cur := p.current()
	if cur == nil {
		return nil, fmt.Errorf("%w: no frame captured yet", ErrCaptureFailed)
	}

	frame := cur.mat.Clone()
	defer frame.Close()

	var traj *PickPlaceTrajectory
	p.trajMu.RLock()
	traj = p.traj
	p.trajMu.RUnlock()

	p.overlay.Render(frame, cur.pose, cur.havePose, opts, traj)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// CurrentFrame returns a clone of the latest undistorted frame
// together with its pose, for callers (object detection, color
// sampling) that need direct pixel access rather than a JPEG. The
// caller owns the returned Mat and must Close it. ok is false if no
// frame has been captured yet.
func (p *FramePublisher) CurrentFrame() (frame gocv.Mat, pose PoseSnapshot, havePose bool, ok bool) {
	cur := p.current()
	if cur == nil {
		return gocv.NewMat(), PoseSnapshot{}, false, false
	}
	return cur.mat.Clone(), cur.pose, cur.havePose, true
}

// SnapshotBase64 is LatestJPEG base64-encoded for RPC transport. It
// returns ("", false) if no frame has been captured yet.
func (p *FramePublisher) SnapshotBase64(opts OverlayOptions) (string, bool) {
	jpeg, err := p.LatestJPEG(opts)
	if err != nil {
		return "", false
	}
	return base64.StdEncoding.EncodeToString(jpeg), true
}

// CurrentPose returns the pose published alongside the latest frame,
// which is guaranteed consistent with that frame (both came from the
// same swap).
func (p *FramePublisher) CurrentPose() (PoseSnapshot, bool) {
	cur := p.current()
	if cur == nil {
		return PoseSnapshot{}, false
	}
	return cur.pose, cur.havePose
}

// Dimensions returns the published frame's pixel dimensions, or
// (0,0) if no frame has been captured yet.
func (p *FramePublisher) Dimensions() (width, height int) {
	cur := p.current()
	if cur == nil {
		return 0, 0
	}
	return cur.width, cur.height
}

// Close releases the last published frame's native resources.
func (p *FramePublisher) Close() {
	p.swapMu.Lock()
	defer p.swapMu.Unlock()
	if p.latest != nil {
		p.latest.mat.Close()
		p.latest = nil
	}
}
