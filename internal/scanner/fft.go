package scanner

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/nondem/sdrscan/internal/detect"
	"github.com/nondem/sdrscan/internal/receiver"
)

const powerFloorEpsilon = 1e-20

// spectralAnalysis is the per-cycle output of analyzeChunk: a full power
// spectrum plus the detected peak and its noise-floor-relative strength,
// per §4.4's scan algorithm.
type spectralAnalysis struct {
	freqsHz    []float64
	powersDb   []float64
	peakIdx    int
	peakDb     float64
	noiseDb    float64
	relDb      float64
}

// analyzeChunk runs an FFT over samples, centered at centerFreqHz with
// the given sampleRateHz, and returns the fftshifted power spectrum along
// with the strongest bin and the median noise floor. Grounded on
// audio_extensions/morse/spectrum_analyzer.go's gonum/dsp/fourier use and
// percentile-based noise floor estimate.
func analyzeChunk(samples []receiver.Sample, centerFreqHz, sampleRateHz float64) spectralAnalysis {
	n := len(samples)
	fft := fourier.NewCmplxFFT(n)

	seq := make([]complex128, n)
	for i, s := range samples {
		seq[i] = complex128(s)
	}
	coeffs := fft.Coefficients(nil, seq)

	powersDb := make([]float64, n)
	freqsHz := make([]float64, n)
	binHz := sampleRateHz / float64(n)

	// fftshift: bin 0 is DC; reorder so index 0 is the most negative
	// frequency and the array is monotonically increasing in frequency.
	for i := 0; i < n; i++ {
		shifted := (i + n/2) % n
		mag2 := real(coeffs[shifted])*real(coeffs[shifted]) + imag(coeffs[shifted])*imag(coeffs[shifted])
		powersDb[i] = 10 * math.Log10(mag2/float64(n*n)+powerFloorEpsilon)

		offsetBins := float64(i) - float64(n)/2
		freqsHz[i] = centerFreqHz + offsetBins*binHz
	}

	noiseDb := medianOf(powersDb)

	peakIdx := 0
	for i := 1; i < n; i++ {
		if powersDb[i] > powersDb[peakIdx] {
			peakIdx = i
		}
	}

	return spectralAnalysis{
		freqsHz:  freqsHz,
		powersDb: powersDb,
		peakIdx:  peakIdx,
		peakDb:   powersDb[peakIdx],
		noiseDb:  noiseDb,
		relDb:    powersDb[peakIdx] - noiseDb,
	}
}

func medianOf(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// toSpectrum converts an analysis into the externally published
// detect.Spectrum shape.
func (a spectralAnalysis) toSpectrum() detect.Spectrum {
	return detect.Spectrum{FrequenciesHz: a.freqsHz, PowerDb: a.powersDb}
}
