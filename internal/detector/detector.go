// Package detector defines the boundary to the object detector. The
// detector itself is out of scope: this package holds the opaque
// predict(frame, conf) contract and a deterministic mock used by tests
// and by get_live_image when no real detector is wired.
package detector

import "github.com/robotvision/armctl/pkg/vision"

// Predictor is the opaque object-detector boundary: given a frame and
// a confidence threshold, return labeled bounding boxes in normalized
// [ymin,xmin,ymax,xmax] thousandths-of-image-dimension coordinates.
type Predictor interface {
	Predict(frame []byte, width, height int, confidence float64) ([]vision.Detection, error)
}

// Mock is a deterministic Predictor that returns a fixed set of
// detections regardless of frame content, for tests and for
// get_live_image when no real detector is configured.
type Mock struct {
	Detections []vision.Detection
}

// NewMock builds a Mock that always returns a single centered
// "earplug_case" detection above the given confidence.
func NewMock() *Mock {
	return &Mock{
		Detections: []vision.Detection{
			{
				Label:      "earplug_case",
				Confidence: 0.92,
				Box:        vision.BBox{YMin: 400, XMin: 400, YMax: 600, XMax: 600},
			},
		},
	}
}

// Predict returns the mock's fixed detections, filtered by confidence.
// Frame content and dimensions are ignored.
func (m *Mock) Predict(frame []byte, width, height int, confidence float64) ([]vision.Detection, error) {
	var out []vision.Detection
	for _, d := range m.Detections {
		if d.Confidence >= confidence {
			out = append(out, d)
		}
	}
	return out, nil
}
