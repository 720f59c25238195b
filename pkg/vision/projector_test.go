//go:build cgo
// +build cgo

package vision

import (
	"math"
	"testing"
)

// topDownPose returns a synthetic pose for a camera at marker-frame
// (0,0,300) looking straight down the marker's -Z axis, camera X
// aligned with marker X.
func topDownPose() PoseSnapshot {
	r := [9]float64{
		1, 0, 0,
		0, -1, 0,
		0, 0, -1,
	}
	c := Point3{X: 0, Y: 0, Z: 300}
	t := [3]float64{0, 0, 300} // t = -R*C
	return PoseSnapshot{R: r, Tvec: t, C: c}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPixelToPlaneKnownGeometry(t *testing.T) {
	p := NewProjector(1000, 1000, 640, 360, 196, 100)
	pose := topDownPose()

	pt, err := p.PixelToPlane(640, 360, 0, pose)
	if err != nil {
		t.Fatalf("PixelToPlane: %v", err)
	}
	if !approxEqual(pt.X, 0, 0.5) || !approxEqual(pt.Y, 0, 0.5) || !approxEqual(pt.Z, 0, 0.5) {
		t.Fatalf("PixelToPlane = %+v, want near origin", pt)
	}

	world := p.MarkerToWorld(pt)
	if !approxEqual(world.X, 196, 0.5) || !approxEqual(world.Y, 100, 0.5) {
		t.Fatalf("MarkerToWorld = %+v, want (196,100,0)", world)
	}
}

func TestMarkerToPixelRoundTrip(t *testing.T) {
	p := NewProjector(1000, 1000, 640, 360, 196, 100)
	pose := topDownPose()

	px, err := p.MarkerToPixel(Point3{}, pose)
	if err != nil {
		t.Fatalf("MarkerToPixel: %v", err)
	}
	if !approxEqual(px.X, 640, 1e-6) || !approxEqual(px.Y, 360, 1e-6) {
		t.Fatalf("MarkerToPixel(origin) = %+v, want (640,360)", px)
	}
}

func TestWorldMarkerRoundTrip(t *testing.T) {
	p := NewProjector(1000, 1000, 640, 360, 196, 100)
	original := Point3{X: 123.4, Y: 56.7, Z: 0}

	marker := p.WorldToMarker(original)
	back := p.MarkerToWorld(marker)

	if back != original {
		t.Fatalf("world->marker->world = %+v, want %+v", back, original)
	}
}

func TestPixelToPlaneDegenerateRay(t *testing.T) {
	p := NewProjector(1000, 1000, 640, 360, 0, 0)
	// A pose whose rotation makes the ray parallel to the z=0 plane:
	// identity rotation means rayMarker.Z == rayCam.Z == 1 (not
	// degenerate); construct one where the camera looks along the
	// marker's horizontal plane instead.
	pose := PoseSnapshot{
		R: [9]float64{
			1, 0, 0,
			0, 0, -1,
			0, 1, 0,
		},
		Tvec: [3]float64{0, 0, 0},
		C:    Point3{},
	}
	_, err := p.PixelToPlane(640, 360, 0, pose)
	if err == nil {
		t.Fatal("expected ErrGeometryDegenerate for a ray parallel to the plane")
	}
}
