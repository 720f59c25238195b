//go:build cgo
// +build cgo

package vision

import (
	"gocv.io/x/gocv"
)

// colorBucket names the fixed 11-color palette used for detection
// labeling. Boundaries are hue-range buckets over OpenCV's 0-179 HSV
// hue scale, with saturation/value used to carve out white/gray/black.
type colorBucket struct {
	name        string
	hueLo, hueHi int // inclusive, wraps if hueLo > hueHi (red)
}

var colorPalette = []colorBucket{
	{"red", 170, 179},
	{"red", 0, 9},
	{"orange", 10, 19},
	{"yellow", 20, 34},
	{"green", 35, 77},
	{"cyan", 78, 99},
	{"blue", 100, 129},
	{"purple", 130, 149},
	{"magenta", 150, 169},
}

// bucketForHSV maps one HSV sample to a color name from the fixed
// palette, applying the achromatic special cases before hue lookup.
func bucketForHSV(h, s, v float64) string {
	switch {
	case v < 40:
		return "black"
	case s < 40 && v > 200:
		return "white"
	case s < 40:
		return "gray"
	}
	for _, b := range colorPalette {
		if h >= float64(b.hueLo) && h <= float64(b.hueHi) {
			return b.name
		}
	}
	return "gray"
}

// SampleColor takes five samples evenly spaced along the cylinder's
// axis in image space (from ground to top), converts each to HSV, and
// majority-votes a color name from the fixed 11-color palette. Samples
// with v<30 (shadow) or s<20 (highlight) are dropped. If gc is nil
// (3D estimation failed), only the bbox center is sampled.
func SampleColor(frame gocv.Mat, box BBox, gc *GroundCenter, imgW, imgH int) (name string, hsv [3]float64) {
	hsvMat := gocv.NewMat()
	defer hsvMat.Close()
	gocv.CvtColor(frame, &hsvMat, gocv.ColorBGRToHSV)

	var points []Point2
	if gc != nil {
		ground := gc.PixelCenter
		top := gc.PixelTop
		const n = 5
		for i := 0; i < n; i++ {
			t := float64(i) / float64(n-1)
			points = append(points, Point2{
				X: ground.X + (top.X-ground.X)*t,
				Y: ground.Y + (top.Y-ground.Y)*t,
			})
		}
	} else {
		points = []Point2{box.CenterNorm()}
		points[0].X = points[0].X / 1000 * float64(imgW)
		points[0].Y = points[0].Y / 1000 * float64(imgH)
	}

	votes := map[string]int{}
	var sumH, sumS, sumV float64
	var kept int

	rows := hsvMat.Rows()
	cols := hsvMat.Cols()
	for _, p := range points {
		x, y := int(p.X), int(p.Y)
		if x < 0 || y < 0 || x >= cols || y >= rows {
			continue
		}
		hv := hsvMat.GetVecbAt(y, x)
		h, s, v := float64(hv[0]), float64(hv[1]), float64(hv[2])
		if v < 30 || s < 20 {
			continue
		}
		votes[bucketForHSV(h, s, v)]++
		sumH += h
		sumS += s
		sumV += v
		kept++
	}

	if kept == 0 {
		return "", [3]float64{}
	}

	best, bestCount := "", -1
	for name, count := range votes {
		if count > bestCount {
			best, bestCount = name, count
		}
	}

	return best, [3]float64{sumH / float64(kept), sumS / float64(kept), sumV / float64(kept)}
}
