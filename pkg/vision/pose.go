//go:build cgo
// +build cgo

package vision

import (
	"sync"
	"time"

	"github.com/robotvision/armctl/pkg/calib"
	"gocv.io/x/gocv"
)

// DefaultPoseCacheTTL is how long a successful PoseSnapshot is reused
// before update_pose re-captures, per the concurrency model's pose
// cache TTL.
const DefaultPoseCacheTTL = 100 * time.Millisecond

// PoseTracker detects a designated ArUco marker in a freshly captured,
// undistorted frame and maintains a short-TTL cached PoseSnapshot.
//
// PoseTracker does not own a goroutine: UpdatePose runs synchronously
// on whichever caller's goroutine needs a fresh pose, serialized
// against the FrameSource's own lock.
type PoseTracker struct {
	source FrameSource
	intr   calib.Intrinsics
	marker MarkerModel
	ttl    time.Duration

	dict     gocv.ArucoDictionary
	params   gocv.ArucoDetectorParameters
	detector gocv.ArucoDetector

	mu   sync.Mutex
	snap *PoseSnapshot
}

// NewPoseTracker constructs a tracker bound to a frame source, camera
// intrinsics, and the marker to look for. The ArUco dictionary is
// DICT_4X4_50, matching the factory marker set.
func NewPoseTracker(source FrameSource, intr calib.Intrinsics, marker MarkerModel) *PoseTracker {
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	params := gocv.NewArucoDetectorParameters()
	detector := gocv.NewArucoDetectorWithParams(dict, params)

	return &PoseTracker{
		source:   source,
		intr:     intr,
		marker:   marker,
		ttl:      DefaultPoseCacheTTL,
		dict:     dict,
		params:   params,
		detector: detector,
	}
}

// SetCacheTTL overrides the pose cache TTL used by UpdatePose. A
// negative d is ignored, leaving the tracker's TTL at its current
// value (the DefaultPoseCacheTTL set at construction); zero is valid
// and disables caching, forcing every UpdatePose(false) to recapture.
func (t *PoseTracker) SetCacheTTL(d time.Duration) {
	if d < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ttl = d
}

// Close releases the ArUco detector's native resources.
func (t *PoseTracker) Close() {
	t.detector.Close()
	t.params.Close()
	t.dict.Close()
}

// Snapshot returns the current cached pose and whether it is present,
// without forcing a re-capture.
func (t *PoseTracker) Snapshot() (PoseSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap == nil {
		return PoseSnapshot{}, false
	}
	return *t.snap, true
}

// Install replaces the cached snapshot directly. FramePublisher calls
// this after running DetectAndSolve itself, so the two components
// never issue two FrameSource reads for what is conceptually one
// capture.
func (t *PoseTracker) Install(snap PoseSnapshot, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.snap = &snap
	} else {
		t.snap = nil
	}
}

// Intrinsics returns the intrinsics the tracker was built with.
func (t *PoseTracker) Intrinsics() calib.Intrinsics { return t.intr }

// Marker returns the marker model the tracker was built with.
func (t *PoseTracker) Marker() MarkerModel { return t.marker }

// UpdatePose implements the update_pose(force) contract: if !force and
// the cached snapshot is younger than the TTL, it returns the cached
// presence without re-capturing. Otherwise it reads one frame from the
// FrameSource, undistorts it, detects the marker, and solves PnP.
func (t *PoseTracker) UpdatePose(force bool) bool {
	t.mu.Lock()
	if !force && t.snap != nil && time.Since(t.snap.Captured) < t.ttl {
		present := t.snap != nil
		t.mu.Unlock()
		return present
	}
	t.mu.Unlock()

	snap, ok := t.capture()

	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.snap = &snap
	} else {
		t.snap = nil
	}
	return ok
}

// intrinsicsMat builds the 3x3 camera matrix as a gocv.Mat. The caller
// owns and must Close the result.
func intrinsicsMat(intr calib.Intrinsics) gocv.Mat {
	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	kVals := [9]float64{intr.FX, 0, intr.CX, 0, intr.FY, intr.CY, 0, 0, 1}
	for i, v := range kVals {
		k.SetDoubleAt(i/3, i%3, v)
	}
	return k
}

// distMat builds the 5-element distortion vector as a gocv.Mat. The
// caller owns and must Close the result.
func distMat(intr calib.Intrinsics) gocv.Mat {
	dist := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	for i, v := range intr.Dist {
		dist.SetDoubleAt(0, i, v)
	}
	return dist
}

// Undistort removes lens distortion from raw, writing into dst using
// (K, d, K) so the result shares the original intrinsic matrix.
func (t *PoseTracker) Undistort(raw gocv.Mat, dst *gocv.Mat) {
	k := intrinsicsMat(t.intr)
	defer k.Close()
	dist := distMat(t.intr)
	defer dist.Close()
	gocv.Undistort(raw, dst, k, dist, k)
}

// capture performs one full read-undistort-detect-solve cycle. It does
// not touch t.snap; the caller installs the result under t.mu.
func (t *PoseTracker) capture() (PoseSnapshot, bool) {
	raw, err := t.source.Read()
	if err != nil {
		return PoseSnapshot{}, false
	}
	defer raw.Close()

	undistorted := gocv.NewMat()
	defer undistorted.Close()
	t.Undistort(raw, &undistorted)

	return t.DetectAndSolve(undistorted)
}

// DetectAndSolve runs marker detection and PnP against an
// already-undistorted BGR frame, without touching the FrameSource or
// the cached snapshot. FramePublisher uses this to avoid a second
// capture when it has already read and undistorted a frame for its
// own purposes.
func (t *PoseTracker) DetectAndSolve(undistorted gocv.Mat) (PoseSnapshot, bool) {
	k := intrinsicsMat(t.intr)
	defer k.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(undistorted, &gray, gocv.ColorBGRToGray)

	corners, ids, _ := t.detector.DetectMarkers(gray)
	defer func() {
		for _, c := range corners {
			c.Close()
		}
	}()

	idx := -1
	for i, id := range ids {
		if id == t.marker.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return PoseSnapshot{}, false
	}

	objPts := t.marker.ObjectPoints()
	objVec := gocv.NewPoint3fVector()
	defer objVec.Close()
	for _, p := range objPts {
		objVec.Append(gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)})
	}

	imgVec := gocv.NewPoint2fVectorFromPoints(corners[idx].ToPoints())
	defer imgVec.Close()

	zeroDist := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	defer zeroDist.Close()

	rvecMat := gocv.NewMat()
	defer rvecMat.Close()
	tvecMat := gocv.NewMat()
	defer tvecMat.Close()

	ok := gocv.SolvePnP(objVec, imgVec, k, zeroDist, &rvecMat, &tvecMat, false, gocv.SolvePnPIterative)
	if !ok {
		return PoseSnapshot{}, false
	}

	var snap PoseSnapshot
	for i := 0; i < 3; i++ {
		snap.Rvec[i] = rvecMat.GetDoubleAt(i, 0)
		snap.Tvec[i] = tvecMat.GetDoubleAt(i, 0)
	}

	rMat := gocv.NewMat()
	defer rMat.Close()
	gocv.Rodrigues(rvecMat, &rMat)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			snap.R[i*3+j] = rMat.GetDoubleAt(i, j)
		}
	}

	snap.C = cameraCenterFromPose(snap)
	snap.Captured = time.Now()

	return snap, true
}

// cameraCenterFromPose computes C = -R^T * t in marker coordinates.
func cameraCenterFromPose(snap PoseSnapshot) Point3 {
	var c Point3
	// R^T * t, negated: for row-major R, (R^T t)_i = sum_j R[j*3+i] * t[j]
	for i := 0; i < 3; i++ {
		var sum float64
		for j := 0; j < 3; j++ {
			sum += snap.R[j*3+i] * snap.Tvec[j]
		}
		switch i {
		case 0:
			c.X = -sum
		case 1:
			c.Y = -sum
		case 2:
			c.Z = -sum
		}
	}
	return c
}
