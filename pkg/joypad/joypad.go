// Package joypad holds the teleoperation joypad's decoded axis state
// and smooths it into servo pulses. No HID backend is implemented
// here (the joypad teleoperation loop itself is out of scope); this
// package is the single channel a HID poller would feed and the
// consumer that owns the servo-pulse integrator, replacing the
// source's callback-list wiring with a channel per the design's
// callback-driven-joypad rewrite.
package joypad

import "sync"

// AxisReport is one decoded HID report: four centered, deadzone-
// applied axis values in the range [-128,127], matching the source's
// byte layout (X, Y, RX, RY at report bytes 0-3).
type AxisReport struct {
	X, Y, RX, RY int8
}

// deadzone matches the source's joypad.py: values within +-10 of
// center collapse to zero.
const deadzone = 10

// DecodeAxis centers a raw HID axis byte (0-255, center 128) and
// applies the deadzone.
func DecodeAxis(raw byte) int8 {
	scaled := int(raw) - 128
	if scaled > -deadzone && scaled < deadzone {
		return 0
	}
	if scaled > 127 {
		scaled = 127
	}
	if scaled < -128 {
		scaled = -128
	}
	return int8(scaled)
}

// Status is the holder get_joypad_status reads: the last decoded axis
// report, updated by whichever goroutine is draining the producer
// channel.
type Status struct {
	mu     sync.RWMutex
	report AxisReport
}

// NewStatus returns a zeroed status holder.
func NewStatus() *Status {
	return &Status{}
}

// Set installs the latest decoded report.
func (s *Status) Set(r AxisReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
}

// Get returns the last decoded report.
func (s *Status) Get() AxisReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Consume drains reports from ch into the status holder until ch is
// closed. Intended to run in its own goroutine, fed by a HID poller;
// the control loop that reads Status is the only other reader, so
// Consume is the single writer per the design's channel rewrite.
func (s *Status) Consume(ch <-chan AxisReport) {
	for r := range ch {
		s.Set(r)
	}
}
