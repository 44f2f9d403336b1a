// Package receiver implements the mutually-exclusive wrapper around
// hardware IQ sampling described in spec §4.1: every operation that
// touches the device acquires an internal mutex, so a UI-triggered setter
// can never race with an in-flight read.
package receiver

import (
	"fmt"
	"log"
	"sync"
)

// Driver serializes access to a Device. All hardware errors are caught at
// this layer and surfaced as a failure indication rather than propagated
// as a panic; the driver itself never crashes its caller.
type Driver struct {
	mu          sync.Mutex
	device      Device
	connected   bool
	centerFreq  float64
	sampleRate  float64
	pendingPPM  int
	appliedPPM  int
	lastPPMSet  bool
}

// New wraps device in a Driver. The device is not opened until Connect is
// called.
func New(device Device) *Driver {
	return &Driver{device: device}
}

// Connect opens the underlying device and re-applies the last requested
// PPM correction if it is non-zero (§4.1).
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}
	if err := d.device.Open(); err != nil {
		log.Printf("receiver: connect failed: %v", err)
		return fmt.Errorf("receiver: connect: %w", err)
	}
	d.connected = true

	if d.lastPPMSet && d.pendingPPM != 0 {
		if err := d.device.SetPPM(d.pendingPPM); err != nil {
			log.Printf("receiver: failed to re-apply ppm %d on connect: %v", d.pendingPPM, err)
		} else {
			d.appliedPPM = d.pendingPPM
		}
	}
	return nil
}

// Disconnect closes the underlying device.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	err := d.device.Close()
	d.connected = false
	if err != nil {
		log.Printf("receiver: disconnect error: %v", err)
		return fmt.Errorf("receiver: disconnect: %w", err)
	}
	return nil
}

// IsConnected reports whether the device is currently open.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Tune sets the center frequency.
func (d *Driver) Tune(freqHz float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return fmt.Errorf("receiver: tune: not connected")
	}
	if err := d.device.SetCenterFreq(freqHz); err != nil {
		log.Printf("receiver: tune to %.0f failed: %v", freqHz, err)
		return fmt.Errorf("receiver: tune: %w", err)
	}
	d.centerFreq = freqHz
	return nil
}

// SetGain sets the tuner gain. db is ignored when auto is true (0 => auto,
// per §3, mirrored here by the caller passing auto=true).
func (d *Driver) SetGain(db float64, auto bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return fmt.Errorf("receiver: set_gain: not connected")
	}
	if err := d.device.SetGain(db, auto); err != nil {
		log.Printf("receiver: set_gain(%.1f, auto=%v) failed: %v", db, auto, err)
		return fmt.Errorf("receiver: set_gain: %w", err)
	}
	return nil
}

// SetSampleRate sets the IQ sample rate in Hz.
func (d *Driver) SetSampleRate(hz float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return fmt.Errorf("receiver: set_sample_rate: not connected")
	}
	if err := d.device.SetSampleRate(hz); err != nil {
		log.Printf("receiver: set_sample_rate(%.0f) failed: %v", hz, err)
		return fmt.Errorf("receiver: set_sample_rate: %w", err)
	}
	d.sampleRate = hz
	return nil
}

// ReadSamples reads exactly n complex IQ samples, or fails.
func (d *Driver) ReadSamples(n int) ([]Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil, fmt.Errorf("receiver: read_samples: not connected")
	}
	samples, err := d.device.ReadSamples(n)
	if err != nil {
		log.Printf("receiver: read_samples(%d) failed: %v", n, err)
		return nil, fmt.Errorf("receiver: read_samples: %w", err)
	}
	if len(samples) != n {
		return nil, fmt.Errorf("receiver: read_samples: expected %d samples, got %d", n, len(samples))
	}
	return samples, nil
}

// SetPPM sets the PPM correction. When disconnected, the value is cached
// and applied on the next Connect (§4.1); when connected, it is applied
// immediately.
func (d *Driver) SetPPM(ppm int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ppm < -100 {
		ppm = -100
	} else if ppm > 100 {
		ppm = 100
	}

	d.pendingPPM = ppm
	d.lastPPMSet = true

	if !d.connected {
		return nil
	}
	if err := d.device.SetPPM(ppm); err != nil {
		log.Printf("receiver: set_ppm(%d) failed: %v", ppm, err)
		return fmt.Errorf("receiver: set_ppm: %w", err)
	}
	d.appliedPPM = ppm
	return nil
}

// GetCenterFreq returns the last center frequency Tune succeeded with.
func (d *Driver) GetCenterFreq() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.centerFreq
}

// GetSampleRate returns the last sample rate SetSampleRate succeeded with.
func (d *Driver) GetSampleRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleRate
}

// AppliedPPM returns the PPM value actually applied to the device (as
// opposed to one cached while disconnected). Used by tests to verify the
// "apply on next connect" contract (§8 scenario F).
func (d *Driver) AppliedPPM() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appliedPPM
}
