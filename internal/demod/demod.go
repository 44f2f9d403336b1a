// Package demod implements the multi-mode DSP pipeline that turns complex
// IQ chunks into mono float32 audio (spec §4.2). The pipeline is stateless
// per chunk: every Demodulate call starts from scratch and never carries
// filter memory across calls, matching the "never allocates persistent
// state between calls" contract.
package demod

import (
	"math"
	"math/cmplx"
	"sync"
)

// Mode is a closed tagged variant over the three supported demodulation
// modes, replacing the source's string-keyed dispatch (§9) so an invalid
// mode is unrepresentable.
type Mode int

const (
	NFM Mode = iota
	WFM
	AM
)

func (m Mode) String() string {
	switch m {
	case NFM:
		return "NFM"
	case WFM:
		return "WFM"
	case AM:
		return "AM"
	default:
		return "unknown"
	}
}

// AudioRate is the fixed output sample rate for all modes.
const AudioRate = 48000

const squelchEpsilon = 1e-10

// Demodulator converts IQ chunks to audio; the mode, sample rate and
// squelch are chosen per Demodulate call. Volume is the only field mutated after construction, so it is guarded
// by its own mutex independent of the per-call parameters passed into
// Demodulate.
type Demodulator struct {
	mu     sync.Mutex
	volume float32
}

// New builds a Demodulator at unity volume.
func New() *Demodulator {
	return &Demodulator{volume: 1.0}
}

// SetVolume sets the output volume, clamped to [0, 1].
func (d *Demodulator) SetVolume(v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	d.mu.Lock()
	d.volume = v
	d.mu.Unlock()
}

func (d *Demodulator) volumeNow() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// powerDb computes 10*log10(mean(|s|^2) + eps).
func powerDb(samples []complex128) float64 {
	if len(samples) == 0 {
		return -math.MaxFloat64
	}
	var sum float64
	for _, s := range samples {
		sum += real(s)*real(s) + imag(s)*imag(s)
	}
	mean := sum / float64(len(samples))
	return 10 * math.Log10(mean+squelchEpsilon)
}

// decimationFactor returns floor(sampleRate/AudioRate), at least 1.
func decimationFactor(sampleRate float64) int {
	d := int(math.Floor(sampleRate / AudioRate))
	if d < 1 {
		d = 1
	}
	return d
}

// Demodulate runs the squelch pre-step and then the mode-specific
// pipeline, returning float32 audio at AudioRate. Empty input returns
// empty output.
func (d *Demodulator) Demodulate(samples []complex128, sampleRate float64, squelchDb float64, mode Mode) []float32 {
	if len(samples) == 0 {
		return []float32{}
	}

	decim := decimationFactor(sampleRate)
	outLen := len(samples) / decim

	if powerDb(samples) < squelchDb {
		return make([]float32, outLen)
	}

	volume := d.volumeNow()

	switch mode {
	case NFM:
		return demodNFM(samples, decim, outLen, volume)
	case WFM:
		return demodWFM(samples, sampleRate, decim, outLen, volume)
	case AM:
		return demodAM(samples, sampleRate, decim, outLen, volume)
	default:
		return make([]float32, outLen)
	}
}

// phaseDiscriminate computes phi[n] = arg(s[n]*conj(s[n-1])) for n>=1,
// the common FM discriminator for NFM and WFM.
func phaseDiscriminate(samples []complex128) []float64 {
	if len(samples) < 2 {
		return nil
	}
	phi := make([]float64, len(samples)-1)
	for n := 1; n < len(samples); n++ {
		phi[n-1] = cmplx.Phase(samples[n] * cmplx.Conj(samples[n-1]))
	}
	return phi
}

func clampLen(want, have int) int {
	if want > have {
		return have
	}
	return want
}

// decimateFIR anti-alias filters with a short boxcar (a causal FIR) then
// picks every D-th sample.
func decimateFIR(x []float64, d int, outLen int) []float64 {
	n := clampLen(outLen, len(x)/d)
	out := make([]float64, outLen)
	if n == 0 || d <= 0 {
		return out
	}
	taps := d
	if taps < 1 {
		taps = 1
	}
	window := make([]float64, 0, taps)
	var sum float64
	xi := 0
	for i := 0; i < n; i++ {
		target := (i + 1) * d
		for xi < target && xi < len(x) {
			window = append(window, x[xi])
			sum += x[xi]
			if len(window) > taps {
				sum -= window[0]
				window = window[1:]
			}
			xi++
		}
		if len(window) == 0 {
			out[i] = 0
			continue
		}
		out[i] = sum / float64(len(window))
	}
	return out
}

// decimateIIR anti-alias filters with a one-pole low-pass IIR section
// then picks every D-th sample.
func decimateIIR(x []float64, d int, cutoffHz, sampleRate float64, outLen int) []float64 {
	n := clampLen(outLen, len(x)/d)
	out := make([]float64, outLen)
	if n == 0 || d <= 0 {
		return out
	}
	lp := NewLowpass(cutoffHz, sampleRate)
	xi := 0
	var last float64
	for i := 0; i < n; i++ {
		target := (i + 1) * d
		for xi < target && xi < len(x) {
			last = lp.Filter(x[xi])
			xi++
		}
		out[i] = last
	}
	return out
}

func demodNFM(samples []complex128, decim, outLen int, volume float32) []float32 {
	phi := phaseDiscriminate(samples)
	decimated := decimateFIR(phi, decim, outLen)
	return scaleToFloat32(decimated, 0.5*float64(volume))
}

func demodWFM(samples []complex128, sampleRate float64, decim, outLen int, volume float32) []float32 {
	phi := phaseDiscriminate(samples)
	decimated := decimateIIR(phi, decim, float64(AudioRate)/2, sampleRate, outLen)

	hp := NewHighpass(100, AudioRate)
	for i, v := range decimated {
		decimated[i] = hp.Filter(v)
	}
	return scaleToFloat32(decimated, 0.5*float64(volume))
}

func demodAM(samples []complex128, sampleRate float64, decim, outLen int, volume float32) []float32 {
	env := make([]float64, len(samples))
	var mean float64
	for i, s := range samples {
		env[i] = cmplx.Abs(s)
		mean += env[i]
	}
	if len(env) > 0 {
		mean /= float64(len(env))
	}
	for i := range env {
		env[i] -= mean
	}

	decimated := decimateFIR(env, decim, outLen)

	lp := NewLowpass(5000, AudioRate)
	for i, v := range decimated {
		decimated[i] = lp.Filter(v)
	}
	return scaleToFloat32(decimated, 0.3*float64(volume))
}

func scaleToFloat32(x []float64, scale float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v * scale)
	}
	return out
}
