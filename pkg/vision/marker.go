//go:build cgo
// +build cgo

package vision

import "time"

// MarkerModel describes the fiducial ArUco marker tracked by PoseTracker:
// its dictionary id and physical side length, plus the four object
// points PnP solves against.
//
// The marker frame is right-handed with origin at the marker's
// bottom-right corner: +x along the bottom edge toward bottom-left, +y
// along the right edge toward top-right, +z out of the marker plane.
// Object points are listed counter-clockwise starting at top-left, to
// match the corner order OpenCV's ArUco detector returns.
type MarkerModel struct {
	ID   int
	Side float64 // mm
}

// ObjectPoints returns the four 3D marker-frame points corresponding to
// the detector's corner order: top-left, top-right, bottom-right,
// bottom-left.
func (m MarkerModel) ObjectPoints() [4]Point3 {
	s := m.Side
	return [4]Point3{
		{X: s, Y: s, Z: 0},
		{X: s, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: s, Z: 0},
	}
}

// DefaultMarkerModel matches the factory calibration target: ArUco
// DICT_4X4_50, id 14, 63mm side.
func DefaultMarkerModel() MarkerModel {
	return MarkerModel{ID: 14, Side: 63}
}

// PoseSnapshot is the cached result of a successful PnP solve: the
// marker's pose relative to the camera, valid for pose_cache_ttl after
// Captured.
type PoseSnapshot struct {
	Rvec [3]float64
	Tvec [3]float64
	R    [9]float64 // row-major 3x3, Rodrigues(Rvec)
	C    Point3     // camera center in marker frame, C = -R^T * t

	Captured time.Time
}
