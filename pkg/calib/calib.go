// Package calib loads the immutable camera calibration used throughout
// the vision pipeline: the 3x3 intrinsic matrix K and the 5-element
// distortion vector d, read once at startup from a keyed binary archive.
package calib

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrCalibrationMissing is returned when a required key is absent from
// the archive, or the archive itself cannot be opened. Callers treat
// this as fatal at startup.
var ErrCalibrationMissing = errors.New("calib: calibration archive missing required data")

// Intrinsics is the immutable pinhole camera model recovered from a
// chessboard calibration: focal lengths and principal point packed into
// K, plus the five-term Brown-Conrady distortion vector.
//
//	K = [ fx  0  cx ]
//	    [  0 fy  cy ]
//	    [  0  0   1 ]
//	d = [k1 k2 p1 p2 k3]
type Intrinsics struct {
	FX, FY float64
	CX, CY float64
	Dist   [5]float64 // k1, k2, p1, p2, k3

	Width, Height int
}

// K returns the intrinsic matrix in row-major order.
func (in Intrinsics) K() [9]float64 {
	return [9]float64{
		in.FX, 0, in.CX,
		0, in.FY, in.CY,
		0, 0, 1,
	}
}

// arrayHeader is the fixed-size header written ahead of each member's
// raw float64 payload: a 2D shape descriptor (rows, cols), row-major.
// This mirrors the way numpy's .npz container records an array's shape
// next to its flat buffer, without pulling in a full ndarray codec.
type arrayHeader struct {
	Rows uint32
	Cols uint32
}

const arrayHeaderSize = 8 // 2 x uint32, little-endian

// Load reads K and d from a zip archive at path. The archive must
// contain two members, "mtx" and "dist", each an arrayHeader followed
// by Rows*Cols little-endian float64 values in row-major order.
func Load(path string) (*Intrinsics, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCalibrationMissing, path, err)
	}
	defer zr.Close()

	mtx, err := readMember(&zr.Reader, "mtx")
	if err != nil {
		return nil, err
	}
	if len(mtx) != 9 {
		return nil, fmt.Errorf("%w: mtx has %d elements, want 9", ErrCalibrationMissing, len(mtx))
	}

	dist, err := readMember(&zr.Reader, "dist")
	if err != nil {
		return nil, err
	}
	if len(dist) != 5 {
		return nil, fmt.Errorf("%w: dist has %d elements, want 5", ErrCalibrationMissing, len(dist))
	}

	in := &Intrinsics{
		FX: mtx[0], FY: mtx[4],
		CX: mtx[2], CY: mtx[5],
	}
	copy(in.Dist[:], dist)
	return in, nil
}

// readMember locates a named file in the zip archive and decodes it as
// a flat float64 array per the arrayHeader convention.
func readMember(zr *zip.Reader, name string) ([]float64, error) {
	var f *zip.File
	for _, candidate := range zr.File {
		if candidate.Name == name {
			f = candidate
			break
		}
	}
	if f == nil {
		return nil, fmt.Errorf("%w: key %q not found in archive", ErrCalibrationMissing, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening member %q: %v", ErrCalibrationMissing, name, err)
	}
	defer rc.Close()

	var hdr arrayHeader
	if err := binary.Read(rc, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header for %q: %v", ErrCalibrationMissing, name, err)
	}

	n := int(hdr.Rows) * int(hdr.Cols)
	if n <= 0 || n > 1<<20 {
		return nil, fmt.Errorf("%w: member %q has implausible shape %dx%d", ErrCalibrationMissing, name, hdr.Rows, hdr.Cols)
	}

	out := make([]float64, n)
	if err := binary.Read(rc, binary.LittleEndian, &out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: member %q truncated", ErrCalibrationMissing, name)
		}
		return nil, fmt.Errorf("%w: reading member %q: %v", ErrCalibrationMissing, name, err)
	}

	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: member %q contains non-finite value", ErrCalibrationMissing, name)
		}
	}

	return out, nil
}
