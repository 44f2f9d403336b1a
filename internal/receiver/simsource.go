package receiver

import (
	"math"
	"math/rand"
)

// whiteNoise is the default Simulated source: low-power complex Gaussian
// noise, no tone. Used when a test only cares about the driver's control
// surface rather than its signal content.
func whiteNoise(n int, _, _ float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample(complex(rand.NormFloat64()*1e-3, rand.NormFloat64()*1e-3))
	}
	return out
}

// ToneSource returns a Simulated source function that emits a complex tone
// offsetHz away from whatever center frequency the device is tuned to, at
// the given amplitude, mixed with Gaussian noise at noiseAmplitude.
func ToneSource(offsetHz, amplitude, noiseAmplitude float64) func(int, float64, float64) []Sample {
	phase := 0.0
	return func(n int, _, sampleRate float64) []Sample {
		if sampleRate <= 0 {
			sampleRate = 2_400_000
		}
		out := make([]Sample, n)
		step := 2 * math.Pi * offsetHz / sampleRate
		for i := range out {
			re := amplitude*math.Cos(phase) + rand.NormFloat64()*noiseAmplitude
			im := amplitude*math.Sin(phase) + rand.NormFloat64()*noiseAmplitude
			out[i] = Sample(complex(re, im))
			phase += step
		}
		return out
	}
}
