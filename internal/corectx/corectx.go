// Package corectx holds the single Context value threading every
// process-wide handle: pose tracker, frame publisher, serial gateway,
// joypad status, workpiece catalog, and detector. It replaces the
// lazy-singleton pattern with explicit handle objects constructed once
// at startup, per the design's "Global state" note, mirroring the
// teacher's Tracker state machine (ctx/cancel/wg, explicit Start/
// Stop/Close) in pkg/miface/tracker.go.
package corectx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robotvision/armctl/internal/config"
	"github.com/robotvision/armctl/internal/detector"
	"github.com/robotvision/armctl/pkg/calib"
	"github.com/robotvision/armctl/pkg/catalog"
	"github.com/robotvision/armctl/pkg/joypad"
	"github.com/robotvision/armctl/pkg/serialgw"
	"github.com/robotvision/armctl/pkg/vision"
)

// State represents the current state of the Context's capture loop.
type State int

const (
	// StateIdle means the context is constructed but capture is not running.
	StateIdle State = iota
	// StateRunning means the capture loop is actively publishing frames.
	StateRunning
	// StateClosed means the context has been closed and cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Common errors returned by Context.
var (
	ErrContextClosed  = errors.New("corectx: context is closed")
	ErrContextRunning = errors.New("corectx: capture loop already running")
)

// Context is the single value carrying all shared, process-wide state.
// Tool handlers in pkg/toolhub borrow it; no package outside corectx
// keeps file-level mutable state of its own.
type Context struct {
	Config *config.Config

	Camera      vision.FrameSource
	Intrinsics  calib.Intrinsics
	Marker      vision.MarkerModel
	Tracker     *vision.PoseTracker
	Publisher   *vision.FramePublisher
	Projector   vision.Projector
	Cylinder    vision.CylinderEstimator
	Serial      *serialgw.Gateway
	Catalog     catalog.Catalog
	Joypad      *joypad.Status
	Detector    detector.Predictor

	mu    sync.RWMutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Context from configuration: opens the camera, loads
// calibration, and builds the pose tracker, projector, cylinder
// estimator, frame publisher, and serial gateway. Camera and
// calibration failures are fatal, returned as typed errors rather than
// deferred to first use.
func New(cfg *config.Config) (*Context, error) {
	intr, err := calib.Load(cfg.Camera.CalibrationPath)
	if err != nil {
		return nil, fmt.Errorf("loading calibration: %w", err)
	}

	camera := vision.NewOpenCVCamera()
	if err := camera.Open(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS); err != nil {
		return nil, fmt.Errorf("opening camera: %w", err)
	}

	return NewWithCamera(cfg, camera, *intr)
}

// NewWithCamera builds a Context over an already-opened FrameSource
// and known intrinsics, skipping hardware initialization. Production
// code should use New; this seam exists so tests can substitute a
// synthetic FrameSource and avoid touching real camera hardware.
func NewWithCamera(cfg *config.Config, camera vision.FrameSource, intr calib.Intrinsics) (*Context, error) {
	marker := vision.MarkerModel{ID: cfg.Marker.ID, Side: cfg.Marker.SideMM}
	tracker := vision.NewPoseTracker(camera, intr, marker)
	tracker.SetCacheTTL(time.Duration(cfg.Pose.CacheTTLMillis) * time.Millisecond)
	tracker.Install(vision.PoseSnapshot{}, false)

	proj := vision.NewProjector(intr.FX, intr.FY, intr.CX, intr.CY, cfg.World.OffsetXMM, cfg.World.OffsetYMM)
	publisher := vision.NewFramePublisher(camera, tracker)
	publisher.SetProjector(proj)

	cc := &Context{
		Config:     cfg,
		Camera:     camera,
		Intrinsics: intr,
		Marker:     marker,
		Tracker:    tracker,
		Publisher:  publisher,
		Projector:  proj,
		Cylinder:   vision.NewCylinderEstimator(proj),
		Serial:     serialgw.NewGateway(cfg.Serial.Port),
		Catalog:    catalog.Default(),
		Joypad:     joypad.NewStatus(),
		Detector:   detector.NewMock(),
		state:      StateIdle,
	}
	cc.Serial.SetTimeout(time.Duration(cfg.Serial.TimeoutSeconds) * time.Second)

	return cc, nil
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Start begins the background capture loop that feeds the
// FramePublisher at the configured FPS, for the MJPEG streamer and
// any tool call that reads the latest pose without forcing its own
// capture. Returns immediately; the loop runs in its own goroutine.
func (c *Context) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRunning:
		return ErrContextRunning
	case StateClosed:
		return ErrContextClosed
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state = StateRunning

	c.wg.Add(1)
	go c.captureLoop()
	return nil
}

// captureLoop runs CaptureAndProcess on a ticker at the configured FPS
// until the context is cancelled.
func (c *Context) captureLoop() {
	defer c.wg.Done()

	fps := c.Config.Camera.FPS
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = c.Publisher.CaptureAndProcess()
		}
	}
}

// Close stops the capture loop and releases the camera, pose tracker,
// published frame, and serial port.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrContextClosed
	}
	if c.state == StateRunning {
		c.cancel()
	}
	c.state = StateClosed
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error
	c.Publisher.Close()
	c.Tracker.Close()
	if err := c.Camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing camera: %w", err))
	}
	if err := c.Serial.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing serial gateway: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("closing context: %v", errs)
	}
	return nil
}
