//go:build cgo
// +build cgo

// Package vision implements the monocular geometry engine: pose tracking
// against a fiducial marker, bidirectional pixel/marker/world coordinate
// transforms, cylinder back-projection for detected objects, and the
// single-producer frame pipeline shared by the MJPEG streamer and the
// on-demand snapshot tool.
package vision

import (
	"time"

	"gocv.io/x/gocv"
)

// Point2 is a 2D point, used both for pixel coordinates and for the
// normalized 0-1000 transport form.
type Point2 struct {
	X, Y float64
}

// Point3 is a 3D point in millimeters, in whichever frame the caller
// documents (marker or world).
type Point3 struct {
	X, Y, Z float64
}

// BBox is an axis-aligned bounding box given in thousandths of image
// dimensions, in [ymin, xmin, ymax, xmax] order to match the wire
// convention used by the object detector boundary.
type BBox struct {
	YMin, XMin, YMax, XMax float64
}

// WidthNorm and HeightNorm return the box's extent in the same
// normalized units it was given in.
func (b BBox) WidthNorm() float64  { return b.XMax - b.XMin }
func (b BBox) HeightNorm() float64 { return b.YMax - b.YMin }

// CenterNorm returns the box's center in normalized coordinates.
func (b BBox) CenterNorm() Point2 {
	return Point2{X: (b.XMin + b.XMax) / 2, Y: (b.YMin + b.YMax) / 2}
}

// GroundCenter is the recovered base of a standing cylinder, derived
// from a Detection's bounding box by CylinderEstimator.
type GroundCenter struct {
	World  Point3 // world frame (x, y, z)
	Marker Point3 // marker frame (xm, ym, 0)
	Radius float64
	Height float64

	PixelCenter     Point2 // absolute pixel coords of the ground center
	PixelCenterNorm Point2 // 0-1000 normalized
	PixelTop        Point2 // absolute pixel coords of the top-center
	PixelTopNorm    Point2 // 0-1000 normalized
	RadiusPxNorm    Point2 // radius in normalized pixels, (u, v) components

	ColorHSV  [3]float64 // representative sample, (h, s, v)
	ColorName string
}

// Detection is one object-detector result, optionally enriched with a
// GroundCenter once CylinderEstimator has run.
type Detection struct {
	Label      string
	Confidence float64
	Box        BBox
	Ground     *GroundCenter // nil if back-projection failed or was not attempted
}

// PickPlaceTrajectory is the four-vertex stack (pick-low, pick-safe,
// place-safe, place-low) drawn by Overlay and populated by the
// trajectory helper in pkg/trajectory.
type PickPlaceTrajectory struct {
	PickXY  Point2 // marker-frame (xm, ym)
	PlaceXY Point2
	ZPick   float64
	ZPlace  float64
	ZSafe   float64
}

// Frame is one captured, undistorted image together with whatever pose
// was current at capture time.
type Frame struct {
	Mat      gocv.Mat // undistorted BGR pixels, owned by the FramePublisher
	Width    int
	Height   int
	Captured time.Time
	Pose     *PoseSnapshot // nil if no marker was visible
}
