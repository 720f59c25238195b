//go:build cgo
// +build cgo

package vision

import (
	"math"
	"testing"
)

func TestDiameterAxisAlignedClampsToSmallerDimension(t *testing.T) {
	ce := NewCylinderEstimator(Projector{})
	// For an exactly axis-aligned projected axis (c or s == 0), the
	// blend weight w = (c^2-s^2)^2 is always 1, and the analytic
	// estimate is always clamped to min(width,height).
	vertical := ce.diameter(Point2{X: 0, Y: -1}, 100, 60)
	if !approxEqual(vertical, 60, 1e-9) {
		t.Fatalf("diameter(vertical axis) = %v, want 60 (min of 100,60)", vertical)
	}

	horizontal := ce.diameter(Point2{X: 1, Y: 0}, 60, 100)
	if !approxEqual(horizontal, 60, 1e-9) {
		t.Fatalf("diameter(horizontal axis) = %v, want 60 (min of 60,100)", horizontal)
	}
}

func TestDiameterBlendAtFortyFiveDegrees(t *testing.T) {
	ce := NewCylinderEstimator(Projector{})
	ce.HeuristicShrink = 0.4
	// At exactly 45 degrees c == s, so denom == 0 and the blend weight
	// w == 0: the result is purely the heuristic estimate.
	root2 := math.Sqrt2 / 2
	d := ce.diameter(Point2{X: root2, Y: -root2}, 100, 100)
	want := 100.0 * (1 - 0.4*2*root2*root2) // 2*C*S == 1 at 45 degrees
	if !approxEqual(d, want, 1e-9) {
		t.Fatalf("diameter(45deg) = %v, want %v (pure heuristic)", d, want)
	}
}

func TestMarchToEdgeFindsNearestBoundary(t *testing.T) {
	b := imgBox{x1: 0, y1: 0, x2: 100, y2: 200}
	center := Point2{X: 50, Y: 100}

	u, v, ok := marchToEdge(b, center, Point2{X: 0, Y: 1})
	if !ok {
		t.Fatal("expected an intersection")
	}
	if !approxEqual(u, 50, 1e-9) || !approxEqual(v, 200, 1e-9) {
		t.Fatalf("marchToEdge(down) = (%v,%v), want (50,200)", u, v)
	}

	u, v, ok = marchToEdge(b, center, Point2{X: -1, Y: 0})
	if !ok {
		t.Fatal("expected an intersection")
	}
	if !approxEqual(u, 0, 1e-9) || !approxEqual(v, 100, 1e-9) {
		t.Fatalf("marchToEdge(left) = (%v,%v), want (0,100)", u, v)
	}
}

func TestMarchToEdgeNoIntersection(t *testing.T) {
	b := imgBox{x1: 0, y1: 0, x2: 100, y2: 100}
	// A zero direction vector never reaches a boundary.
	_, _, ok := marchToEdge(b, Point2{X: 50, Y: 50}, Point2{X: 0, Y: 0})
	if ok {
		t.Fatal("expected no intersection for a zero direction")
	}
}

func TestAxisDirectionDefaultsOnDegenerateProbe(t *testing.T) {
	ce := NewCylinderEstimator(NewProjector(1000, 1000, 640, 360, 0, 0))
	// An exaggerated axis perturbation pushes the probed point behind
	// the camera plane (perturbed.Z <= 0), forcing the default. pc
	// itself is a plain camera-frame ray and always has Z == 1, so only
	// the perturbation step can trigger this guard.
	ce.AxisPerturbation = -20
	pose := PoseSnapshot{
		R: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}
	up, down := ce.axisDirection(Point2{X: 640, Y: 360}, pose)
	if up != (Point2{X: 0, Y: -1}) || down != (Point2{X: 0, Y: 1}) {
		t.Fatalf("axisDirection = up=%+v down=%+v, want default (0,-1)/(0,1)", up, down)
	}
}

// TestAxisDirectionWithGenuineTilt uses a rotation composed from a 30
// degree pitch (about X) followed by a 40 degree yaw (about Y) -- a
// real 3D tilt, not an axis permutation or sign flip. Those degenerate
// rotations are their own transpose and happen to mask a camera-frame
// vs marker-frame mixup in axisDirection, so this is the only test in
// this file that would catch that class of bug.
//
// With the bbox center at the principal point and FX == FY, the
// pinhole reprojection of pc and its perturbed neighbor reduces
// algebraically to up == normalize(R[2], R[5]) (the x,y components of
// R's third column, i.e. the camera-frame "world up" axis),
// independent of the perturbation magnitude and focal length.
func TestAxisDirectionWithGenuineTilt(t *testing.T) {
	ce := NewCylinderEstimator(NewProjector(1000, 1000, 640, 360, 0, 0))

	pose := PoseSnapshot{
		R: [9]float64{
			0.766044, 0.321394, 0.556670,
			0, 0.866025, -0.5,
			-0.642788, 0.383022, 0.663414,
		},
	}

	up, down := ce.axisDirection(Point2{X: 640, Y: 360}, pose)

	wantUp := Point2{X: 0.743959, Y: -0.668226}
	if !approxEqual(up.X, wantUp.X, 1e-4) || !approxEqual(up.Y, wantUp.Y, 1e-4) {
		t.Fatalf("axisDirection up = %+v, want %+v", up, wantUp)
	}
	if !approxEqual(down.X, -wantUp.X, 1e-4) || !approxEqual(down.Y, -wantUp.Y, 1e-4) {
		t.Fatalf("axisDirection down = %+v, want %+v", down, Point2{X: -wantUp.X, Y: -wantUp.Y})
	}
}

// TestEstimateTopDownCircle exercises the full Estimate path against a
// hand-computed top-down scene: camera directly above a flat circular
// base of radius 50mm at the marker origin. The near/far-edge split is
// degenerate straight overhead (the "wide-angle, arbitrary axis" case
// the estimator targets is exercised in TestDiameterAxisAligned* and
// the serial/axis unit tests above), so this checks the pipeline wires
// together and returns the empirically-scaled radius, not an
// unbiased round trip.
func TestEstimateTopDownCircle(t *testing.T) {
	proj := NewProjector(1000, 1000, 640, 360, 0, 0)
	ce := NewCylinderEstimator(proj)

	pose := PoseSnapshot{
		R:    [9]float64{1, 0, 0, 0, -1, 0, 0, 0, -1},
		Tvec: [3]float64{0, 0, 1000},
		C:    Point3{X: 0, Y: 0, Z: 1000},
	}

	imgW, imgH := 1280, 720
	// Ground circle of radius 50mm projects, under this pose, to a
	// square pixel bbox [590,310]-[690,410] (see projector_test.go's
	// topDownPose derivation for the underlying pinhole algebra).
	box := BBox{
		XMin: 590.0 / float64(imgW) * 1000,
		YMin: 310.0 / float64(imgH) * 1000,
		XMax: 690.0 / float64(imgW) * 1000,
		YMax: 410.0 / float64(imgH) * 1000,
	}

	gc, err := ce.Estimate(box, imgW, imgH, pose)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if gc.Radius < 40 || gc.Radius > 50 {
		t.Fatalf("radius = %v, want roughly 45 (50mm true radius scaled by RadiusFactor)", gc.Radius)
	}
	if math.IsNaN(gc.Height) || math.IsInf(gc.Height, 0) {
		t.Fatalf("height = %v, want a finite value", gc.Height)
	}
}
