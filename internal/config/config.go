// Package config provides TOML configuration loading for armctl.
//
// The configuration file supports the following structure:
//
//	[camera]
//	device_id = 0
//	width = 1280
//	height = 720
//	fps = 30
//	calibration_path = "calib.zip"
//
//	[marker]
//	id = 14
//	side_mm = 63.0
//
//	[world]
//	offset_x_mm = 196.0
//	offset_y_mm = 100.0
//
//	[serial]
//	port = ""
//	timeout_seconds = 45
//
//	[pose]
//	cache_ttl_ms = 100
//
// Example usage:
//
//	cfg, err := config.Load("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Camera device: %d\n", cfg.Camera.DeviceID)
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the complete configuration for armctl.
type Config struct {
	Camera CameraConfig `toml:"camera"`
	Marker MarkerConfig `toml:"marker"`
	World  WorldConfig  `toml:"world"`
	Serial SerialConfig `toml:"serial"`
	Pose   PoseConfig   `toml:"pose"`
}

// CameraConfig holds webcam capture settings.
type CameraConfig struct {
	// DeviceID is the camera device index (default: 0).
	DeviceID int `toml:"device_id"`
	// Width is the capture width in pixels (default: 1280).
	Width int `toml:"width"`
	// Height is the capture height in pixels (default: 720).
	Height int `toml:"height"`
	// FPS is the target frame rate (default: 30).
	FPS int `toml:"fps"`
	// CalibrationPath is the path to the keyed binary calibration
	// archive holding the camera's intrinsics and distortion
	// coefficients. No default; required for pose tracking to start.
	CalibrationPath string `toml:"calibration_path"`
}

// MarkerConfig identifies the fiducial marker PoseTracker looks for.
type MarkerConfig struct {
	// ID is the ArUco DICT_4X4_50 marker id (default: 14).
	ID int `toml:"id"`
	// SideMM is the marker's physical side length in mm (default: 63).
	SideMM float64 `toml:"side_mm"`
}

// WorldConfig is the fixed offset applied when converting a marker-
// frame coordinate into the world frame used by the robot arm.
type WorldConfig struct {
	// OffsetXMM is Ox (default: 196).
	OffsetXMM float64 `toml:"offset_x_mm"`
	// OffsetYMM is Oy (default: 100).
	OffsetYMM float64 `toml:"offset_y_mm"`
}

// SerialConfig configures the microcontroller link.
type SerialConfig struct {
	// Port is the serial device path. Empty enumerates candidates and
	// picks the first by natural-number order (default: "").
	Port string `toml:"port"`
	// TimeoutSeconds is the per-exchange read timeout (default: 45).
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// PoseConfig tunes the pose cache.
type PoseConfig struct {
	// CacheTTLMillis is how long a successful pose snapshot is reused
	// before update_pose re-captures (default: 100).
	CacheTTLMillis int `toml:"cache_ttl_ms"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    1280,
			Height:   720,
			FPS:      30,
		},
		Marker: MarkerConfig{
			ID:     14,
			SideMM: 63.0,
		},
		World: WorldConfig{
			OffsetXMM: 196.0,
			OffsetYMM: 100.0,
		},
		Serial: SerialConfig{
			Port:           "",
			TimeoutSeconds: 45,
		},
		Pose: PoseConfig{
			CacheTTLMillis: 100,
		},
	}
}

// Load reads and parses a TOML configuration file.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 {
		return fmt.Errorf("camera width must be positive, got %d", c.Camera.Width)
	}
	if c.Camera.Height <= 0 {
		return fmt.Errorf("camera height must be positive, got %d", c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera FPS must be positive, got %d", c.Camera.FPS)
	}
	if c.Marker.SideMM <= 0 {
		return fmt.Errorf("marker side_mm must be positive, got %f", c.Marker.SideMM)
	}
	if c.Serial.TimeoutSeconds <= 0 {
		return fmt.Errorf("serial timeout must be positive, got %d", c.Serial.TimeoutSeconds)
	}
	if c.Pose.CacheTTLMillis < 0 {
		return fmt.Errorf("pose cache TTL must not be negative, got %d", c.Pose.CacheTTLMillis)
	}
	return nil
}
