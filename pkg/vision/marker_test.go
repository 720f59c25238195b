//go:build cgo
// +build cgo

package vision

import "testing"

func TestDefaultMarkerModel(t *testing.T) {
	m := DefaultMarkerModel()
	if m.ID != 14 {
		t.Errorf("expected id 14, got %d", m.ID)
	}
	if m.Side != 63 {
		t.Errorf("expected side 63, got %v", m.Side)
	}
}

func TestObjectPoints(t *testing.T) {
	m := MarkerModel{ID: 1, Side: 50}
	pts := m.ObjectPoints()

	want := [4]Point3{
		{X: 50, Y: 50, Z: 0},
		{X: 50, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 50, Z: 0},
	}
	if pts != want {
		t.Errorf("ObjectPoints() = %+v, want %+v", pts, want)
	}
}

func TestObjectPointsZeroSide(t *testing.T) {
	m := MarkerModel{ID: 1, Side: 0}
	pts := m.ObjectPoints()
	for i, p := range pts {
		if p.X != 0 || p.Y != 0 || p.Z != 0 {
			t.Errorf("point %d = %+v, want origin", i, p)
		}
	}
}
