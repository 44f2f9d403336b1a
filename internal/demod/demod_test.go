package demod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func toneSamples(n int, freqHz, sampleRateHz, amplitude float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		phase := 2 * math.Pi * freqHz * float64(i) / sampleRateHz
		out[i] = complex(amplitude*math.Cos(phase), amplitude*math.Sin(phase))
	}
	return out
}

// Property 1 (§8): a chunk whose power sits well below the squelch floor
// must demodulate to silence, regardless of mode.
func TestSquelchSilenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := Mode(rapid.IntRange(0, 2).Draw(t, "mode"))
		n := rapid.IntRange(40, 400).Draw(t, "n")
		samples := toneSamples(n, 1000, 960_000, 1e-8) // tiny amplitude

		d := New()
		out := d.Demodulate(samples, 960_000, 0, mode) // squelch floor at 0dB
		for _, v := range out {
			assert.Equal(t, float32(0), v)
		}
	})
}

// Property 2 (§8): output length always equals floor(len(in)/decimation).
func TestDecimationRatioProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := Mode(rapid.IntRange(0, 2).Draw(t, "mode"))
		sampleRate := rapid.Float64Range(96_000, 2_400_000).Draw(t, "rate")
		n := rapid.IntRange(200, 4000).Draw(t, "n")
		samples := toneSamples(n, 5000, sampleRate, 1.0)

		d := New()
		out := d.Demodulate(samples, sampleRate, -200, mode) // squelch wide open
		want := n / decimationFactor(sampleRate)
		assert.Equal(t, want, len(out))
	})
}

// Property 3 (§8): scaling volume scales the output amplitude linearly.
func TestVolumeLinearityProperty(t *testing.T) {
	samples := toneSamples(960, 3000, 960_000, 1.0)

	d := New()
	d.SetVolume(1.0)
	full := d.Demodulate(samples, 960_000, -200, NFM)

	d.SetVolume(0.5)
	half := d.Demodulate(samples, 960_000, -200, NFM)

	require.Equal(t, len(full), len(half))
	for i := range full {
		assert.InDelta(t, float64(full[i])*0.5, float64(half[i]), 1e-4)
	}
}

func TestVolumeClamped(t *testing.T) {
	d := New()
	d.SetVolume(-1)
	assert.Equal(t, float32(0), d.volumeNow())
	d.SetVolume(5)
	assert.Equal(t, float32(1), d.volumeNow())
}

func TestPhaseDiscriminateConstantFrequency(t *testing.T) {
	samples := toneSamples(100, 1000, 48000, 1.0)
	phi := phaseDiscriminate(samples)
	require.Len(t, phi, len(samples)-1)

	expected := 2 * math.Pi * 1000 / 48000
	for _, p := range phi {
		assert.InDelta(t, expected, p, 1e-9)
	}
}

func TestDemodAMOutputLengthMatchesDecimation(t *testing.T) {
	n := 960
	samples := make([]complex128, n)
	for i := range samples {
		samples[i] = complex(1.0+0.0*float64(i), 0)
	}
	d := New()
	out := d.Demodulate(samples, 960_000, -200, AM)
	assert.Len(t, out, n/decimationFactor(960_000))
}

func TestDemodulateEmptyInput(t *testing.T) {
	d := New()
	out := d.Demodulate(nil, 960_000, -200, NFM)
	assert.Empty(t, out)
}

func TestPowerDbMonotonicWithAmplitude(t *testing.T) {
	low := toneSamples(100, 1000, 48000, 0.01)
	high := toneSamples(100, 1000, 48000, 1.0)
	assert.Less(t, powerDb(low), powerDb(high))
}

func TestOnePoleFilterConverges(t *testing.T) {
	lp := NewLowpass(1000, 48000)
	var y float64
	for i := 0; i < 10000; i++ {
		y = lp.Filter(1.0)
	}
	assert.InDelta(t, 1.0, y, 1e-3)
}

func TestOnePoleFilterResetClearsState(t *testing.T) {
	lp := NewLowpass(1000, 48000)
	for i := 0; i < 100; i++ {
		lp.Filter(1.0)
	}
	lp.Reset()
	assert.Equal(t, 0.0, lp.Filter(0))
}
