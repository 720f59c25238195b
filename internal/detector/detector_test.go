package detector

import "testing"

func TestMockPredictFiltersByConfidence(t *testing.T) {
	m := NewMock()

	dets, err := m.Predict(nil, 1280, 720, 0.5)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection at conf 0.5, got %d", len(dets))
	}

	dets, err = m.Predict(nil, 1280, 720, 0.99)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(dets) != 0 {
		t.Fatalf("expected 0 detections at conf 0.99, got %d", len(dets))
	}
}

func TestMockPredictIgnoresFrameContent(t *testing.T) {
	m := NewMock()
	a, _ := m.Predict([]byte("frame-a"), 640, 480, 0.1)
	b, _ := m.Predict([]byte("completely different frame"), 1920, 1080, 0.1)
	if len(a) != len(b) {
		t.Fatalf("expected identical detection counts regardless of frame, got %d vs %d", len(a), len(b))
	}
}
