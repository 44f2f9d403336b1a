package scanner

import (
	"sync"

	"github.com/nondem/sdrscan/internal/demod"
)

// ManualDecimation is the manual-mode decimation factor D used by the
// buffer-size rounding rule in §3/§8 (960kHz manual rate / 48kHz audio
// rate = 20).
const ManualDecimation = 20

// RunMode is the persistent Scan/Manual flag, independent of whether the
// worker is currently Paused or Active (§3: "mode" vs the derived
// "running").
type RunMode int

const (
	ModeScan RunMode = iota
	ModeManual
)

// RunState is the derived Paused/Active flag.
type RunState int

const (
	Paused RunState = iota
	Active
)

// Params holds every mutable scanner parameter behind one mutex (§3, §5).
// Every mutator acquires the lock, updates fields, and returns
// immediately — it never blocks on the worker. The worker reads a
// snapshot (a value copy) at well-defined points rather than holding the
// lock across DSP work.
type Params struct {
	mu sync.Mutex

	mode    RunMode
	running RunState

	manualFreqHz float64
	gainDb       float64 // 0 => auto, per §3
	thresholdDb  float64
	squelchDb    float64
	bufferSize   uint32
	volume       float32
	demodMode    demod.Mode
	ppm          int32
	spectrumOn   bool
}

// Snapshot is a read-only value copy of Params, taken by the worker at
// loop heads.
type Snapshot struct {
	Mode         RunMode
	Running      RunState
	ManualFreqHz float64
	GainDb       float64
	ThresholdDb  float64
	SquelchDb    float64
	BufferSize   uint32
	Volume       float32
	DemodMode    demod.Mode
	PPM          int32
	SpectrumOn   bool
}

// NewParams builds Params with the construction-time defaults from §3.
func NewParams() *Params {
	p := &Params{
		mode:       ModeScan,
		running:    Paused,
		volume:     1.0,
		bufferSize: roundBufferSize(16384),
		demodMode:  demod.NFM,
	}
	return p
}

func roundBufferSize(n uint32) uint32 {
	return n - (n % ManualDecimation)
}

// Snapshot returns a value copy of the current parameters.
func (p *Params) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Mode:         p.mode,
		Running:      p.running,
		ManualFreqHz: p.manualFreqHz,
		GainDb:       p.gainDb,
		ThresholdDb:  p.thresholdDb,
		SquelchDb:    p.squelchDb,
		BufferSize:   p.bufferSize,
		Volume:       p.volume,
		DemodMode:    p.demodMode,
		PPM:          p.ppm,
		SpectrumOn:   p.spectrumOn,
	}
}

// StartScan moves Paused -> Active, in whichever mode is currently set.
func (p *Params) StartScan() {
	p.mu.Lock()
	p.running = Active
	p.mu.Unlock()
}

// StopScan moves Scan/Manual (Active) -> Paused.
func (p *Params) StopScan() {
	p.mu.Lock()
	p.running = Paused
	p.mu.Unlock()
}

// SetManualMode switches to Manual at frequency freqHz, from either state
// (§4.4's transition table shows it firing from Scan; it is harmless and
// idempotent from Manual or Paused too).
func (p *Params) SetManualMode(freqHz float64) {
	p.mu.Lock()
	p.mode = ModeManual
	p.manualFreqHz = freqHz
	p.mu.Unlock()
}

// ExitManualMode switches back to Scan.
func (p *Params) ExitManualMode() {
	p.mu.Lock()
	p.mode = ModeScan
	p.mu.Unlock()
}

// ToggleMode sets the mode flag alone, without touching running state or
// the manual frequency — used by a UI mode switch before start_scan().
func (p *Params) ToggleMode(isManual bool) {
	p.mu.Lock()
	if isManual {
		p.mode = ModeManual
	} else {
		p.mode = ModeScan
	}
	p.mu.Unlock()
}

// SetManualFreq updates the manual-mode target frequency without
// changing mode.
func (p *Params) SetManualFreq(hz float64) {
	p.mu.Lock()
	p.manualFreqHz = hz
	p.mu.Unlock()
}

// SetGain sets the gain override in dB; 0 means auto (§3).
func (p *Params) SetGain(db float64) {
	p.mu.Lock()
	p.gainDb = db
	p.mu.Unlock()
}

// SetThreshold sets the per-scan threshold override, coerced to >= 0
// (§3 invariant, §7 "coerce to nearest valid value").
func (p *Params) SetThreshold(db float64) {
	if db < 0 {
		db = 0
	}
	p.mu.Lock()
	p.thresholdDb = db
	p.mu.Unlock()
}

// SetSquelch sets the absolute squelch floor.
func (p *Params) SetSquelch(db float64) {
	p.mu.Lock()
	p.squelchDb = db
	p.mu.Unlock()
}

// SetBufferSize rounds n down to a multiple of the manual decimation
// factor and stores it (§3, §8 property 7). A negative-equivalent (here,
// simply an unreasonably huge) request is coerced by the uint32 domain
// itself; explicit negative values can't reach this signature from a
// conforming caller, matching §7's "coerce to nearest valid value".
func (p *Params) SetBufferSize(n uint32) {
	rounded := roundBufferSize(n)
	p.mu.Lock()
	p.bufferSize = rounded
	p.mu.Unlock()
}

// SetVolume sets output volume, clamped to [0,1].
func (p *Params) SetVolume(v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

// SetDemodMode sets the manual-mode demodulation mode.
func (p *Params) SetDemodMode(m demod.Mode) {
	p.mu.Lock()
	p.demodMode = m
	p.mu.Unlock()
}

// SetPPM sets the PPM correction, clamped to [-100,100] (§3).
func (p *Params) SetPPM(ppm int32) {
	if ppm < -100 {
		ppm = -100
	} else if ppm > 100 {
		ppm = 100
	}
	p.mu.Lock()
	p.ppm = ppm
	p.mu.Unlock()
}

// SetSpectrumEnabled toggles spectrum-snapshot publication.
func (p *Params) SetSpectrumEnabled(on bool) {
	p.mu.Lock()
	p.spectrumOn = on
	p.mu.Unlock()
}
