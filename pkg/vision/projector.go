//go:build cgo
// +build cgo

package vision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Projector performs pure, side-effect-free coordinate transforms over
// a PoseSnapshot and a set of intrinsics. None of its methods mutate
// the snapshot or the projector itself.
type Projector struct {
	FX, FY float64
	CX, CY float64
	Ox, Oy float64 // world frame offset, mm
}

// NewProjector builds a Projector from calibrated intrinsics and the
// configured world-frame offset.
func NewProjector(fx, fy, cx, cy, ox, oy float64) Projector {
	return Projector{FX: fx, FY: fy, CX: cx, CY: cy, Ox: ox, Oy: oy}
}

// PixelToRay converts a pixel coordinate to a camera-frame ray with
// unit z, i.e. ((u-cx)/fx, (v-cy)/fy, 1).
func (p Projector) PixelToRay(u, v float64) Point3 {
	return Point3{
		X: (u - p.CX) / p.FX,
		Y: (v - p.CY) / p.FY,
		Z: 1,
	}
}

// rotationMatrix returns the snapshot's rotation as a 3x3 gonum matrix.
func rotationMatrix(pose PoseSnapshot) *mat.Dense {
	return mat.NewDense(3, 3, pose.R[:])
}

// rotateByTranspose applies R^T to a camera-frame vector, yielding the
// same vector expressed in marker coordinates.
func rotateByTranspose(pose PoseSnapshot, v Point3) Point3 {
	r := rotationMatrix(pose)
	var rt mat.Dense
	rt.CloneFrom(r.T())

	vv := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(&rt, vv)
	return Point3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// PixelToPlane inverse-projects a pixel onto the marker-frame plane
// z=zplane, given the current pose. It fails with ErrGeometryDegenerate
// if the ray is (near-)parallel to the plane.
func (p Projector) PixelToPlane(u, v, zplane float64, pose PoseSnapshot) (Point3, error) {
	rayCam := p.PixelToRay(u, v)
	rayMarker := rotateByTranspose(pose, rayCam)

	if math.Abs(rayMarker.Z) <= 1e-6 {
		return Point3{}, fmt.Errorf("%w: ray parallel to plane z=%v", ErrGeometryDegenerate, zplane)
	}

	s := (zplane - pose.C.Z) / rayMarker.Z
	return Point3{
		X: pose.C.X + s*rayMarker.X,
		Y: pose.C.Y + s*rayMarker.Y,
		Z: pose.C.Z + s*rayMarker.Z,
	}, nil
}

// MarkerToPixel projects a marker-frame point into pixel coordinates
// using the calibrated pose. Distortion is not applied: the point is
// assumed to be evaluated against an already-undistorted image.
func (p Projector) MarkerToPixel(pt Point3, pose PoseSnapshot) (Point2, error) {
	r := rotationMatrix(pose)
	pv := mat.NewVecDense(3, []float64{pt.X, pt.Y, pt.Z})
	var cam mat.VecDense
	cam.MulVec(r, pv)
	cam.AddVec(&cam, mat.NewVecDense(3, pose.Tvec[:]))

	z := cam.AtVec(2)
	if math.Abs(z) <= 1e-9 {
		return Point2{}, fmt.Errorf("%w: point projects behind or on camera plane", ErrGeometryDegenerate)
	}

	return Point2{
		X: p.FX*cam.AtVec(0)/z + p.CX,
		Y: p.FY*cam.AtVec(1)/z + p.CY,
	}, nil
}

// WorldToMarker subtracts the configured world-frame offset.
func (p Projector) WorldToMarker(pt Point3) Point3 {
	return Point3{X: pt.X - p.Ox, Y: pt.Y - p.Oy, Z: pt.Z}
}

// MarkerToWorld adds the configured world-frame offset.
func (p Projector) MarkerToWorld(pt Point3) Point3 {
	return Point3{X: pt.X + p.Ox, Y: pt.Y + p.Oy, Z: pt.Z}
}

// CameraFrameRay rotates a camera-frame ray into marker coordinates.
// Exported for CylinderEstimator, which needs the marker-frame ray
// direction without the plane intersection PixelToPlane performs.
func (p Projector) CameraFrameRay(u, v float64, pose PoseSnapshot) Point3 {
	return rotateByTranspose(pose, p.PixelToRay(u, v))
}
