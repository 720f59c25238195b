//go:build cgo
// +build cgo

package vision

import (
	"fmt"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// fourccMJPEG is the FourCC code for Motion JPEG codec, widely
	// supported by USB webcams and cheaper to decode at the capture
	// driver than raw YUYV.
	fourccMJPEG = 0x47504A4D
)

// FrameSource is the single video capture owned by the geometry engine.
// Read acquires the capture lock for the duration of one read; it is
// never nested under any other core lock.
type FrameSource interface {
	Open(deviceID, width, height, fps int) error
	// Read captures one frame as BGR and returns it to the caller, who
	// owns the returned Mat and must Close it.
	Read() (gocv.Mat, error)
	Close() error
}

// OpenCVCamera implements FrameSource using OpenCV via GoCV.
//
// Implementation notes:
//   - Uses the V4L2 backend on Linux to avoid GStreamer pipeline errors.
//   - Sets the MJPEG codec explicitly for USB webcam compatibility.
//   - Thread-safe: mu protects all fields and camera operations, held
//     only for the duration of a single Open/Read/Close call.
type OpenCVCamera struct {
	mu sync.Mutex

	deviceID int
	width    int
	height   int
	fps      int

	webcam *gocv.VideoCapture
	opened bool
}

// NewOpenCVCamera creates an unopened camera source.
func NewOpenCVCamera() *OpenCVCamera {
	return &OpenCVCamera{}
}

// Open initializes the camera at the given device index and requested
// mode. Zero width/height/fps leaves the driver default in place.
func (c *OpenCVCamera) Open(deviceID, width, height, fps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return fmt.Errorf("%w: camera already opened", ErrCameraUnavailable)
	}

	webcam, err := gocv.OpenVideoCaptureWithAPI(deviceID, gocv.VideoCaptureV4L2)
	if err != nil {
		return fmt.Errorf("%w: opening device %d: %v", ErrCameraUnavailable, deviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("%w: device %d not found or unavailable", ErrCameraUnavailable, deviceID)
	}

	webcam.Set(gocv.VideoCaptureFOURCC, fourccMJPEG)

	if width > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if fps > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(fps))
	}

	c.deviceID = deviceID
	c.width = int(webcam.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(webcam.Get(gocv.VideoCaptureFrameHeight))
	c.fps = int(webcam.Get(gocv.VideoCaptureFPS))
	c.webcam = webcam
	c.opened = true

	// Some cameras need a moment after opening; discard the first frame.
	warmup := gocv.NewMat()
	c.webcam.Read(&warmup)
	warmup.Close()

	return nil
}

// Read captures one BGR frame. The caller owns and must Close the
// returned Mat.
func (c *OpenCVCamera) Read() (gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return gocv.NewMat(), fmt.Errorf("%w: camera not opened", ErrCaptureFailed)
	}

	mat := gocv.NewMat()
	if ok := c.webcam.Read(&mat); !ok {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: read from camera failed", ErrCaptureFailed)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: captured frame is empty", ErrCaptureFailed)
	}

	return mat, nil
}

// Close releases camera resources. Safe to call on an unopened camera.
func (c *OpenCVCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return nil
	}
	c.opened = false
	if c.webcam != nil {
		if err := c.webcam.Close(); err != nil {
			return fmt.Errorf("closing webcam: %w", err)
		}
	}
	return nil
}

// ActualResolution returns the camera's negotiated resolution.
func (c *OpenCVCamera) ActualResolution() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// ActualFPS returns the camera's negotiated frame rate.
func (c *OpenCVCamera) ActualFPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// EnumerateCameras best-effort probes device indices [0,maxDevices) and
// returns the ones that open successfully.
func EnumerateCameras(maxDevices int) []int {
	if maxDevices <= 0 {
		maxDevices = 10
	}

	var devices []int
	for i := 0; i < maxDevices; i++ {
		cam, err := gocv.OpenVideoCaptureWithAPI(i, gocv.VideoCaptureV4L2)
		if err != nil {
			continue
		}
		if cam.IsOpened() {
			devices = append(devices, i)
		}
		cam.Close()
	}
	sort.Ints(devices)
	return devices
}
