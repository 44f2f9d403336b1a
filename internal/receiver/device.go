package receiver

import "fmt"

// Sample is a single complex IQ sample (in-phase, quadrature).
type Sample complex128

// Device is the low-level hardware contract a concrete SDR binding
// implements. Driver wraps a Device with the mutex-serialization and
// error-discipline contract required by spec §4.1; Device itself is free
// to be a thin cgo shim (e.g. librtlsdr) or, as here, a deterministic
// simulated source used for tests and for environments with no attached
// hardware.
type Device interface {
	Open() error
	Close() error
	SetCenterFreq(hz float64) error
	CenterFreq() float64
	SetSampleRate(hz float64) error
	SampleRate() float64
	SetGain(db float64, auto bool) error
	SetPPM(ppm int) error
	ReadSamples(n int) ([]Sample, error)
}

// Simulated is a deterministic Device used when no physical RTL-SDR-class
// receiver is attached. Its IQ stream comes from a source function given
// the tuned center frequency and sample rate: white noise by default, or a
// tone plus noise via ToneSource, which is enough to drive
// the scanner/demodulator pipelines end to end in tests and in dry-run
// deployments.
type Simulated struct {
	opened     bool
	centerHz   float64
	sampleRate float64
	gainDb     float64
	autoGain   bool
	ppm        int
	source     func(n int, centerHz, sampleRate float64) []Sample
}

// NewSimulated builds a Simulated device. source generates n IQ samples
// given the currently tuned center frequency and sample rate; pass nil to
// use a default white-noise generator.
func NewSimulated(source func(n int, centerHz, sampleRate float64) []Sample) *Simulated {
	if source == nil {
		source = whiteNoise
	}
	return &Simulated{source: source, sampleRate: 2_400_000}
}

func (s *Simulated) Open() error {
	s.opened = true
	return nil
}

func (s *Simulated) Close() error {
	s.opened = false
	return nil
}

func (s *Simulated) SetCenterFreq(hz float64) error {
	if !s.opened {
		return fmt.Errorf("receiver: device not open")
	}
	s.centerHz = hz
	return nil
}

func (s *Simulated) CenterFreq() float64 { return s.centerHz }

func (s *Simulated) SetSampleRate(hz float64) error {
	if !s.opened {
		return fmt.Errorf("receiver: device not open")
	}
	if hz <= 0 {
		return fmt.Errorf("receiver: sample rate must be positive, got %v", hz)
	}
	s.sampleRate = hz
	return nil
}

func (s *Simulated) SampleRate() float64 { return s.sampleRate }

func (s *Simulated) SetGain(db float64, auto bool) error {
	if !s.opened {
		return fmt.Errorf("receiver: device not open")
	}
	s.autoGain = auto
	s.gainDb = db
	return nil
}

func (s *Simulated) SetPPM(ppm int) error {
	if !s.opened {
		return fmt.Errorf("receiver: device not open")
	}
	s.ppm = ppm
	return nil
}

func (s *Simulated) ReadSamples(n int) ([]Sample, error) {
	if !s.opened {
		return nil, fmt.Errorf("receiver: device not open")
	}
	if n <= 0 {
		return nil, fmt.Errorf("receiver: sample count must be positive, got %d", n)
	}
	return s.source(n, s.centerHz, s.sampleRate), nil
}
