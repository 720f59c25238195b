//go:build cgo
// +build cgo

package vision

import (
	"fmt"
	"math"
)

// CylinderEstimator recovers the ground-contact center, radius, and
// height of a vertical cylinder resting on the marker plane from its
// axis-aligned bounding box in normalized image coordinates.
//
// The empirical radius factor and the analytic/heuristic blend have no
// stated derivation in the source material; they are exposed here as
// tunable fields rather than baked-in constants.
type CylinderEstimator struct {
	Proj Projector

	// RadiusFactor is the empirical scale applied to the raw radius
	// estimate (spec default 0.9).
	RadiusFactor float64
	// HeuristicShrink is the coefficient in the heuristic diameter
	// fallback D_heur = min(W,H) * (1 - HeuristicShrink*2*C*S).
	HeuristicShrink float64
	// AxisPerturbation is alpha in the "up" direction probe
	// pc + alpha*az (spec default 0.1).
	AxisPerturbation float64
	// HeightCorrectionThreshold is the sqrt(1-(U.V)^2) floor above
	// which the height far-edge correction is applied; below it, per
	// the one stated regime, h is left untouched.
	HeightCorrectionThreshold float64
}

// NewCylinderEstimator builds an estimator with spec defaults.
func NewCylinderEstimator(proj Projector) CylinderEstimator {
	return CylinderEstimator{
		Proj:                      proj,
		RadiusFactor:              0.9,
		HeuristicShrink:           0.4,
		AxisPerturbation:          0.1,
		HeightCorrectionThreshold: 0.1,
	}
}

// imgBox is a bbox already converted to absolute pixel coordinates.
type imgBox struct {
	x1, y1, x2, y2 float64
}

func (b imgBox) width() float64  { return b.x2 - b.x1 }
func (b imgBox) height() float64 { return b.y2 - b.y1 }
func (b imgBox) center() Point2  { return Point2{X: (b.x1 + b.x2) / 2, Y: (b.y1 + b.y2) / 2} }

// Estimate back-projects a normalized bbox [ymin,xmin,ymax,xmax] (in
// thousandths of image dimensions) into a GroundCenter. It returns
// ErrInvalidBbox for malformed geometry and ErrGeometryDegenerate or
// ErrPoseUnavailable for numeric guards that trip; callers omit the
// GroundCenter on any error rather than failing the detection.
func (ce CylinderEstimator) Estimate(box BBox, imgW, imgH int, pose PoseSnapshot) (GroundCenter, error) {
	b := imgBox{
		x1: box.XMin / 1000 * float64(imgW),
		y1: box.YMin / 1000 * float64(imgH),
		x2: box.XMax / 1000 * float64(imgW),
		y2: box.YMax / 1000 * float64(imgH),
	}
	if b.width() <= 0 || b.height() <= 0 {
		return GroundCenter{}, fmt.Errorf("%w: non-positive extent", ErrInvalidBbox)
	}

	dUp, dDown := ce.axisDirection(b.center(), pose)

	uc, vc, ok := marchToEdge(b, b.center(), dDown)
	if !ok {
		return GroundCenter{}, fmt.Errorf("%w: no contact-edge intersection", ErrInvalidBbox)
	}
	ut, vt, ok := marchToEdge(b, b.center(), dUp)
	if !ok {
		return GroundCenter{}, fmt.Errorf("%w: no top-edge intersection", ErrInvalidBbox)
	}

	diameter := ce.diameter(dUp, b.width(), b.height())

	pEdge, err := ce.Proj.PixelToPlane(uc, vc, 0, pose)
	if err != nil {
		return GroundCenter{}, err
	}

	dCam := distance(pEdge, pose.C)
	dx := (uc - ce.Proj.CX) / ce.Proj.FX
	dy := (vc - ce.Proj.CY) / ce.Proj.FY
	cosAlpha := 1 / math.Sqrt(1+dx*dx+dy*dy)

	radius := (diameter / (2 * ce.Proj.FX)) * dCam * cosAlpha * ce.RadiusFactor

	pCenter := shiftTowardFarSide(pEdge, pose.C, radius)

	height, err := ce.height(ut, vt, pose, pCenter, radius)
	if err != nil {
		return GroundCenter{}, err
	}
	if height < 0 {
		height = 0
	}

	gc := GroundCenter{
		Marker: pCenter,
		World:  ce.Proj.MarkerToWorld(pCenter),
		Radius: radius,
		Height: height,
	}

	gc.PixelCenter = Point2{X: uc, Y: vc}
	gc.PixelCenterNorm = normalizePixel(gc.PixelCenter, imgW, imgH)

	topPoint := Point3{X: pCenter.X, Y: pCenter.Y, Z: height}
	if topPx, err := ce.Proj.MarkerToPixel(topPoint, pose); err == nil {
		gc.PixelTop = topPx
		gc.PixelTopNorm = normalizePixel(topPx, imgW, imgH)
	}

	radiusPxU := radius * ce.Proj.FX / math.Max(dCam, 1e-9)
	radiusPxV := radiusPxU * math.Abs(pose.R[8]) // R[2,2], foreshortening
	gc.RadiusPxNorm = Point2{X: radiusPxU / float64(imgW) * 1000, Y: radiusPxV / float64(imgH) * 1000}

	return gc, nil
}

// axisDirection computes the image-space "up" and "down" directions of
// the cylinder's world-vertical axis as seen from the current pose.
func (ce CylinderEstimator) axisDirection(center Point2, pose PoseSnapshot) (up, down Point2) {
	defaultUp := Point2{X: 0, Y: -1}

	pc := ce.Proj.PixelToRay(center.X, center.Y)
	az := Point3{X: pose.R[2], Y: pose.R[5], Z: pose.R[8]} // R[:,2] in camera frame

	perturbed := Point3{
		X: pc.X + ce.AxisPerturbation*az.X,
		Y: pc.Y + ce.AxisPerturbation*az.Y,
		Z: pc.Z + ce.AxisPerturbation*az.Z,
	}
	if perturbed.Z <= 1e-6 || pc.Z <= 1e-6 {
		return defaultUp, Point2{X: -defaultUp.X, Y: -defaultUp.Y}
	}

	p0 := Point2{X: pc.X/pc.Z*ce.Proj.FX + ce.Proj.CX, Y: pc.Y/pc.Z*ce.Proj.FY + ce.Proj.CY}
	p1 := Point2{X: perturbed.X/perturbed.Z*ce.Proj.FX + ce.Proj.CX, Y: perturbed.Y/perturbed.Z*ce.Proj.FY + ce.Proj.CY}

	diff := Point2{X: p1.X - p0.X, Y: p1.Y - p0.Y}
	norm := math.Hypot(diff.X, diff.Y)
	if norm < 1e-9 {
		return defaultUp, Point2{X: -defaultUp.X, Y: -defaultUp.Y}
	}
	up = Point2{X: diff.X / norm, Y: diff.Y / norm}
	down = Point2{X: -up.X, Y: -up.Y}
	return up, down
}

// marchToEdge walks from center in direction d and returns the pixel
// at the first bbox boundary crossing, i.e. the smallest positive t.
func marchToEdge(b imgBox, center Point2, d Point2) (u, v float64, ok bool) {
	best := math.Inf(1)
	consider := func(t float64) {
		if t > 1e-9 && t < best {
			best = t
		}
	}
	if d.X > 0 {
		consider((b.x2 - center.X) / d.X)
	} else if d.X < 0 {
		consider((b.x1 - center.X) / d.X)
	}
	if d.Y > 0 {
		consider((b.y2 - center.Y) / d.Y)
	} else if d.Y < 0 {
		consider((b.y1 - center.Y) / d.Y)
	}
	if math.IsInf(best, 1) {
		return 0, 0, false
	}
	return center.X + d.X*best, center.Y + d.Y*best, true
}

// diameter blends the analytic and heuristic diameter estimates.
func (ce CylinderEstimator) diameter(up Point2, width, height float64) float64 {
	c := math.Abs(up.X)
	s := math.Abs(up.Y)

	denom := c*c - s*s
	var dPoly float64
	if math.Abs(denom) > 1e-9 {
		dPoly = math.Abs(height*c-width*s) / math.Abs(denom)
	} else {
		dPoly = math.Min(width, height)
	}
	dPoly = math.Min(dPoly, math.Min(width, height))

	dHeur := math.Min(width, height) * (1 - ce.HeuristicShrink*2*c*s)

	w := denom * denom
	return w*dPoly + (1-w)*dHeur
}

// height solves for the cylinder's height given the top-edge pixel and
// applies the far-edge correction in the one stated regime.
func (ce CylinderEstimator) height(ut, vt float64, pose PoseSnapshot, pCenter Point3, radius float64) (float64, error) {
	rayMarker := ce.Proj.CameraFrameRay(ut, vt, pose)
	norm := math.Sqrt(rayMarker.X*rayMarker.X + rayMarker.Y*rayMarker.Y + rayMarker.Z*rayMarker.Z)
	if norm < 1e-9 {
		return 0, fmt.Errorf("%w: degenerate top-edge ray", ErrGeometryDegenerate)
	}
	u := Point3{X: rayMarker.X / norm, Y: rayMarker.Y / norm, Z: rayMarker.Z / norm}
	v := Point3{X: 0, Y: 0, Z: 1}

	a := pose.C
	bb := pCenter
	ab := Point3{X: bb.X - a.X, Y: bb.Y - a.Y, Z: bb.Z - a.Z}

	uv := dot3(u, v)
	denom := 1 - uv*uv
	if math.Abs(denom) < 1e-9 {
		return 0, nil
	}
	h := (dot3(ab, v) - dot3(ab, u)*uv) / denom

	sqrtTerm := math.Sqrt(math.Max(0, 1-uv*uv))
	if sqrtTerm > ce.HeightCorrectionThreshold {
		h += radius * uv / sqrtTerm
	}
	return h, nil
}

func dot3(a, b Point3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func distance(a, b Point3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// shiftTowardFarSide moves the near-edge contact point toward the
// cylinder's center by radius along the ground projection of the
// camera-to-edge vector.
func shiftTowardFarSide(edge Point3, camCenter Point3, radius float64) Point3 {
	dx := edge.X - camCenter.X
	dy := edge.Y - camCenter.Y
	norm := math.Hypot(dx, dy)
	if norm < 1e-9 {
		return edge
	}
	return Point3{
		X: edge.X + radius*dx/norm,
		Y: edge.Y + radius*dy/norm,
		Z: 0,
	}
}

func normalizePixel(p Point2, imgW, imgH int) Point2 {
	return Point2{
		X: p.X / float64(imgW) * 1000,
		Y: p.Y / float64(imgH) * 1000,
	}
}
