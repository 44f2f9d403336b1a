// Package band defines the static frequency-band descriptor that drives
// scan mode, plus the Gain tagged variant shared with the scanner and
// receiver packages.
package band

import "fmt"

// Gain models the source's numeric-or-"auto" sentinel as a closed tagged
// variant: an invalid gain value is unrepresentable.
type Gain struct {
	auto bool
	db   float64
}

// AutoGain returns the "auto" gain sentinel.
func AutoGain() Gain {
	return Gain{auto: true}
}

// DbGain returns a fixed gain value in dB.
func DbGain(db float64) Gain {
	return Gain{db: db}
}

// IsAuto reports whether the gain is the "auto" sentinel.
func (g Gain) IsAuto() bool {
	return g.auto
}

// Db returns the fixed gain value. Only meaningful when IsAuto is false.
func (g Gain) Db() float64 {
	return g.db
}

// Resolve returns g unless g is the zero value, in which case it falls
// back to def. DbGain(0) equals the zero value, so it falls back as well.
func (g Gain) Resolve(def Gain) Gain {
	if g == (Gain{}) {
		return def
	}
	return g
}

func (g Gain) String() string {
	if g.auto {
		return "auto"
	}
	return fmt.Sprintf("%.1fdB", g.db)
}

// Band is an immutable frequency-band descriptor loaded once by the host
// application and passed by reference at scanner construction.
type Band struct {
	ID          string
	Name        string
	Enabled     bool
	StartFreqHz float64
	EndFreqHz   float64
	StepSizeHz  float64
	Gain        Gain
	DwellTimeMs int
	ThresholdDb float64
}

// Validate checks the invariants from the data model: start <= end,
// step > 0, dwell >= 0.
func (b Band) Validate() error {
	if b.StartFreqHz > b.EndFreqHz {
		return fmt.Errorf("band %q: start_freq_hz %.0f > end_freq_hz %.0f", b.ID, b.StartFreqHz, b.EndFreqHz)
	}
	if b.StepSizeHz <= 0 {
		return fmt.Errorf("band %q: step_size_hz must be > 0, got %.0f", b.ID, b.StepSizeHz)
	}
	if b.DwellTimeMs < 0 {
		return fmt.Errorf("band %q: dwell_time_ms must be >= 0, got %d", b.ID, b.DwellTimeMs)
	}
	return nil
}

// Steps returns each tuned frequency in the band's scan walk, in order.
func (b Band) Steps() []float64 {
	if b.StepSizeHz <= 0 {
		return nil
	}
	var out []float64
	for f := b.StartFreqHz; f <= b.EndFreqHz; f += b.StepSizeHz {
		out = append(out, f)
	}
	return out
}
