// Package main provides the CLI wrapper for armctl.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robotvision/armctl/internal/config"
	"github.com/robotvision/armctl/internal/corectx"
	"github.com/robotvision/armctl/internal/httpapi"
	"github.com/robotvision/armctl/pkg/toolhub"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	cameraID := flag.Int("camera", -1, "Camera device ID (overrides config)")
	serialPort := flag.String("serial-port", "", "Serial port to the microcontroller (overrides config)")
	httpAddr := flag.String("http-addr", ":8080", "Address to serve /stream.mjpg and /tools/ on")
	verbose := flag.Bool("verbose", false, "Enable verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "armctl - robot-arm and vision control service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("armctl version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *cameraID >= 0 {
		cfg.Camera.DeviceID = *cameraID
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}

	if *verbose {
		log.Printf("Configuration:")
		log.Printf("  Camera: device=%d, %dx%d@%dfps, calibration=%s",
			cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS, cfg.Camera.CalibrationPath)
		log.Printf("  Marker: id=%d, side=%.1fmm", cfg.Marker.ID, cfg.Marker.SideMM)
		log.Printf("  World offset: (%.1f, %.1f) mm", cfg.World.OffsetXMM, cfg.World.OffsetYMM)
		log.Printf("  Serial: port=%q, timeout=%ds", cfg.Serial.Port, cfg.Serial.TimeoutSeconds)
	}

	cc, err := corectx.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build core context: %v", err)
	}
	defer cc.Close()

	if err := cc.Start(); err != nil {
		log.Fatalf("Failed to start capture loop: %v", err)
	}
	log.Println("Capture loop started.")

	registry := toolhub.New(cc)

	mux := http.NewServeMux()
	mux.Handle("/stream.mjpg", httpapi.NewMJPEGHandler(cc))
	mux.Handle("/tools/", httpapi.NewToolHandler(registry))

	server := &http.Server{Addr: *httpAddr, Handler: mux}
	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("Serving /stream.mjpg and /tools/ on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErrCh:
		log.Printf("HTTP server error: %v", err)
	}

	if err := server.Close(); err != nil {
		log.Printf("Error closing HTTP server: %v", err)
	}
}
