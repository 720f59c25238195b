package joypad

import "sync"

// Filter1D is a scalar Kalman filter smoothing one servo's pulse
// width. Adapted from the source's landmark-smoothing filter: the
// same constant-velocity, no-control-input update, now tracking a
// servo pulse value instead of a 3D point.
type Filter1D struct {
	mu sync.Mutex

	x, p, q, r  float64
	initialized bool
}

// NewFilter1D builds a filter from a 0 (max smoothing) to 1 (no
// smoothing) trade-off factor.
func NewFilter1D(smoothingFactor float64) *Filter1D {
	return &Filter1D{
		p: 1.0,
		q: 0.1,
		r: 1.0 - smoothingFactor*0.9 + 0.1,
	}
}

// Update processes one measurement and returns the filtered value.
func (f *Filter1D) Update(measurement float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.initialized {
		f.x = measurement
		f.initialized = true
		return measurement
	}

	pPred := f.p + f.q
	k := pPred / (pPred + f.r)
	f.x = f.x + k*(measurement-f.x)
	f.p = (1 - k) * pPred
	return f.x
}

// Reset clears the filter's state.
func (f *Filter1D) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.x, f.p, f.initialized = 0, 1.0, false
}

// ServoIntegrator smooths a fixed set of named servo pulses, one
// Filter1D per servo, lazily created on first Update.
type ServoIntegrator struct {
	mu      sync.Mutex
	filters map[string]*Filter1D
	factor  float64
}

// NewServoIntegrator builds an integrator with the given smoothing
// factor applied to every servo it tracks.
func NewServoIntegrator(smoothingFactor float64) *ServoIntegrator {
	return &ServoIntegrator{
		filters: make(map[string]*Filter1D),
		factor:  smoothingFactor,
	}
}

// Update smooths one servo's pulse measurement.
func (si *ServoIntegrator) Update(servo string, pulse float64) float64 {
	si.mu.Lock()
	f, ok := si.filters[servo]
	if !ok {
		f = NewFilter1D(si.factor)
		si.filters[servo] = f
	}
	si.mu.Unlock()
	return f.Update(pulse)
}

// Reset clears every tracked servo's filter state.
func (si *ServoIntegrator) Reset() {
	si.mu.Lock()
	defer si.mu.Unlock()
	for _, f := range si.filters {
		f.Reset()
	}
}
