//go:build cgo
// +build cgo

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	colorPurple = color.RGBA{R: 160, G: 32, B: 240, A: 255}
	colorYellow = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	colorBlue   = color.RGBA{R: 30, G: 60, B: 255, A: 255}
	colorRed    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorGreen  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	colorCyan   = color.RGBA{R: 0, G: 220, B: 220, A: 255}
	colorWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// OverlayOptions selects what Overlay.Render draws onto a frame.
type OverlayOptions struct {
	DrawAxes       bool
	AxisLength     float64 // mm, default 50
	DrawTrajectory bool
}

// Overlay renders axes, pick-place trajectory, and detections onto an
// undistorted frame. Every intermediate Mat it touches is the caller's
// own frame; Overlay never retains a reference across calls.
type Overlay struct {
	Proj Projector
}

// NewOverlay builds an Overlay bound to the given projector.
func NewOverlay(proj Projector) Overlay {
	return Overlay{Proj: proj}
}

// Render draws the requested overlays in place on frame. pose may be
// the zero value with ok=false, in which case axes and trajectory are
// skipped (a frame without a pose is still renderable).
func (o Overlay) Render(frame gocv.Mat, pose PoseSnapshot, havePose bool, opts OverlayOptions, traj *PickPlaceTrajectory) {
	if havePose && opts.DrawAxes {
		o.drawAxes(frame, pose, opts.AxisLength)
	}
	if havePose && opts.DrawTrajectory && traj != nil {
		o.drawTrajectory(frame, pose, *traj)
	}
}

// DrawDetections draws bounding boxes and labels for a list of
// detections, annotating ground-center markers where present.
func (o Overlay) DrawDetections(frame gocv.Mat, dets []Detection, imgW, imgH int) {
	for _, d := range dets {
		pt1 := image.Pt(int(d.Box.XMin/1000*float64(imgW)), int(d.Box.YMin/1000*float64(imgH)))
		pt2 := image.Pt(int(d.Box.XMax/1000*float64(imgW)), int(d.Box.YMax/1000*float64(imgH)))
		gocv.Rectangle(&frame, image.Rectangle{Min: pt1, Max: pt2}, colorGreen, 2)

		label := fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100)
		if d.Ground != nil && d.Ground.ColorName != "" {
			label = fmt.Sprintf("%s %s", label, d.Ground.ColorName)
		}
		gocv.PutText(&frame, label, image.Pt(pt1.X, pt1.Y-6), gocv.FontHersheySimplex, 0.5, colorGreen, 1)

		if d.Ground != nil {
			center := image.Pt(int(d.Ground.PixelCenter.X), int(d.Ground.PixelCenter.Y))
			gocv.Circle(&frame, center, 4, colorCyan, -1)
		}
	}
}

// drawAxes draws the marker's X/Y/Z axes at origin, projected through
// the current pose, with axis-tip labels.
func (o Overlay) drawAxes(frame gocv.Mat, pose PoseSnapshot, length float64) {
	if length <= 0 {
		length = 50
	}
	origin, err := o.Proj.MarkerToPixel(Point3{}, pose)
	if err != nil {
		return
	}
	axes := []struct {
		tip   Point3
		c     color.RGBA
		label string
	}{
		{Point3{X: length}, colorRed, "X"},
		{Point3{Y: length}, colorGreen, "Y"},
		{Point3{Z: length}, colorBlue, "Z"},
	}
	o0 := image.Pt(int(origin.X), int(origin.Y))
	for _, ax := range axes {
		px, err := o.Proj.MarkerToPixel(ax.tip, pose)
		if err != nil {
			continue
		}
		p := image.Pt(int(px.X), int(px.Y))
		gocv.ArrowedLine(&frame, o0, p, ax.c, 2)
		gocv.PutText(&frame, ax.label, p, gocv.FontHersheySimplex, 0.6, ax.c, 2)
	}
}

// drawTrajectory draws the four-vertex pick-place stack: purple for
// the pick edge (pick-low to pick-safe), yellow for the horizontal
// transit (pick-safe to place-safe), blue for the place edge
// (place-safe to place-low).
func (o Overlay) drawTrajectory(frame gocv.Mat, pose PoseSnapshot, traj PickPlaceTrajectory) {
	pickLow := Point3{X: traj.PickXY.X, Y: traj.PickXY.Y, Z: traj.ZPick}
	pickSafe := Point3{X: traj.PickXY.X, Y: traj.PickXY.Y, Z: traj.ZSafe}
	placeSafe := Point3{X: traj.PlaceXY.X, Y: traj.PlaceXY.Y, Z: traj.ZSafe}
	placeLow := Point3{X: traj.PlaceXY.X, Y: traj.PlaceXY.Y, Z: traj.ZPlace}

	segs := []struct {
		a, b Point3
		c    color.RGBA
	}{
		{pickLow, pickSafe, colorPurple},
		{pickSafe, placeSafe, colorYellow},
		{placeSafe, placeLow, colorBlue},
	}
	for _, seg := range segs {
		pa, errA := o.Proj.MarkerToPixel(seg.a, pose)
		pb, errB := o.Proj.MarkerToPixel(seg.b, pose)
		if errA != nil || errB != nil {
			continue
		}
		gocv.Line(&frame, image.Pt(int(pa.X), int(pa.Y)), image.Pt(int(pb.X), int(pb.Y)), seg.c, 2)
	}

	for _, p := range []Point3{pickLow, pickSafe, placeSafe, placeLow} {
		px, err := o.Proj.MarkerToPixel(p, pose)
		if err != nil {
			continue
		}
		gocv.Circle(&frame, image.Pt(int(px.X), int(px.Y)), 5, colorWhite, -1)
	}
}
