package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nondem/sdrscan/internal/band"
	"github.com/nondem/sdrscan/internal/config"
	"github.com/nondem/sdrscan/internal/demod"
	"github.com/nondem/sdrscan/internal/detect"
	"github.com/nondem/sdrscan/internal/logger"
	"github.com/nondem/sdrscan/internal/receiver"
)

func testConfig() config.ScannerConfig {
	return config.ScannerConfig{
		ScanSampleRateHz:   2_400_000,
		ManualSampleRateHz: 960_000,
		NumSamples:         2048,
		SpectrumEveryNth:   4,
		BufferSize:         16384,
	}
}

func newTestScanner(t *testing.T, source func(int, float64, float64) []receiver.Sample, bands []band.Band) *Scanner {
	t.Helper()
	driver := receiver.New(receiver.NewSimulated(source))
	require.NoError(t, driver.Connect())
	l, err := logger.Open(t.TempDir() + "/det.db")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return New(driver, demod.New(), l, nil, nil, bands, testConfig())
}

// Property 7 (§8): buffer size always rounds down to a multiple of D=20.
func TestBufferRoundingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint32Range(0, 1_000_000).Draw(t, "n")
		p := NewParams()
		p.SetBufferSize(n)
		got := p.Snapshot().BufferSize
		assert.Equal(t, n-(n%ManualDecimation), got)
		assert.Equal(t, uint32(0), got%ManualDecimation)
	})
}

// Property 6 (§8): events are delivered from EventQueue in enqueue order.
func TestEventQueueOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(t, "n")
		q := NewEventQueue()
		for i := 0; i < n; i++ {
			q.Push(detect.NewEvent(time.Now(), float64(i), float64(i), -40, -90, "b", "band"))
		}
		for i := 0; i < n; i++ {
			ev, ok := q.TryPop()
			require.True(t, ok)
			assert.Equal(t, float64(i), ev.FrequencyHz)
		}
		_, ok := q.TryPop()
		assert.False(t, ok)
	})
}

// Scenario A (§8): a tone at +200kHz offset in a 2.4MHz window centered on
// 146.5MHz, SNR 30dB, threshold_db=10 produces one event near 146.7MHz
// with relative_power_db >= 20.
func TestScanCycleDetectsOffsetTone(t *testing.T) {
	source := receiver.ToneSource(200_000, 1.0, 1.0/31.62) // ~30dB SNR
	bands := []band.Band{{
		ID: "a", Name: "test", Enabled: true,
		StartFreqHz: 146_500_000, EndFreqHz: 146_500_000, StepSizeHz: 1,
		Gain: band.AutoGain(), DwellTimeMs: 0, ThresholdDb: 10,
	}}
	s := newTestScanner(t, source, bands)
	s.Params.StartScan()

	s.scanCycle(0)

	ev, ok := s.results.TryPop()
	require.True(t, ok, "expected one detection event")
	assert.InDelta(t, 146_700_000, ev.FrequencyHz, 2000)
	assert.GreaterOrEqual(t, ev.RelativePowerDb, 20.0)

	_, ok = s.results.TryPop()
	assert.False(t, ok, "expected exactly one event")
}

// Scenario E (§8): one band with 5 steps, all above threshold, produces
// exactly five queued events and five logged rows.
func TestScanCycleExactlyFiveDetections(t *testing.T) {
	source := receiver.ToneSource(50_000, 1.0, 1e-4)
	bands := []band.Band{{
		ID: "e", Name: "e-band", Enabled: true,
		StartFreqHz: 100_000_000, EndFreqHz: 100_400_000, StepSizeHz: 100_000,
		Gain: band.AutoGain(), DwellTimeMs: 0, ThresholdDb: 5,
	}}
	s := newTestScanner(t, source, bands)
	require.Len(t, bands[0].Steps(), 5)
	s.Params.StartScan()

	s.scanCycle(0)

	count := 0
	for {
		_, ok := s.results.TryPop()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 5, count)

	n, err := s.log.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

// Property 4 (§8): every emitted event clears its band's threshold and
// its frequency lies within the analyzed window.
func TestDetectionInvariantProperty(t *testing.T) {
	source := receiver.ToneSource(300_000, 1.0, 1e-4)
	bands := []band.Band{{
		ID: "inv", Name: "inv", Enabled: true,
		StartFreqHz: 433_000_000, EndFreqHz: 433_000_000, StepSizeHz: 1,
		Gain: band.AutoGain(), DwellTimeMs: 0, ThresholdDb: 8,
	}}
	s := newTestScanner(t, source, bands)
	s.Params.StartScan()
	s.scanCycle(0)

	ev, ok := s.results.TryPop()
	require.True(t, ok)
	assert.Greater(t, ev.RelativePowerDb, 8.0)
	assert.LessOrEqual(t, absf(ev.FrequencyHz-ev.CenterFreqHz), testConfig().ScanSampleRateHz/2)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Property 5 (§8): a threshold change takes effect on the next analysis
// cycle, not mid-cycle.
func TestParameterFreshnessAppliesNextCycle(t *testing.T) {
	source := receiver.ToneSource(300_000, 1.0, 1e-4)
	bands := []band.Band{{
		ID: "fresh", Name: "fresh", Enabled: true,
		StartFreqHz: 146_000_000, EndFreqHz: 146_000_000, StepSizeHz: 1,
		Gain: band.AutoGain(), DwellTimeMs: 0, ThresholdDb: 5,
	}}
	s := newTestScanner(t, source, bands)
	s.Params.StartScan()

	s.scanCycle(0)
	_, ok := s.results.TryPop()
	require.True(t, ok, "low threshold should detect")

	s.Params.SetThreshold(200) // unreachable threshold
	s.scanCycle(0)
	_, ok = s.results.TryPop()
	assert.False(t, ok, "raised threshold must suppress next cycle's detection")
}

// Scenario D (§8): entering manual mode tunes and sets the manual sample
// rate before any samples are read.
func TestManualCycleTunesAndSetsRateBeforeRead(t *testing.T) {
	rec := newRecordingDevice()
	driver := receiver.New(rec)
	require.NoError(t, driver.Connect())

	s := New(driver, demod.New(), nil, nil, nil, nil, testConfig())
	s.Params.SetManualMode(145_500_000)

	ok := s.manualCycle(s.Params.Snapshot())
	require.True(t, ok)

	require.Contains(t, rec.calls, "read")
	readIdx := indexOf(rec.calls, "read")
	require.Contains(t, rec.calls[:readIdx], "tune")
	require.Contains(t, rec.calls[:readIdx], "rate")
	assert.Equal(t, 145_500_000.0, rec.centerHz)
	assert.Equal(t, 960_000.0, rec.sampleRate)
}

func indexOf(xs []string, v string) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

// recordingDevice wraps a Simulated device's behavior while logging the
// order operations arrive in, for scenario D's ordering assertion.
type recordingDevice struct {
	inner      *receiver.Simulated
	calls      []string
	centerHz   float64
	sampleRate float64
}

func newRecordingDevice() *recordingDevice {
	return &recordingDevice{inner: receiver.NewSimulated(nil)}
}

func (r *recordingDevice) Open() error  { return r.inner.Open() }
func (r *recordingDevice) Close() error { return r.inner.Close() }

func (r *recordingDevice) SetCenterFreq(hz float64) error {
	r.calls = append(r.calls, "tune")
	r.centerHz = hz
	return r.inner.SetCenterFreq(hz)
}
func (r *recordingDevice) CenterFreq() float64 { return r.inner.CenterFreq() }

func (r *recordingDevice) SetSampleRate(hz float64) error {
	r.calls = append(r.calls, "rate")
	r.sampleRate = hz
	return r.inner.SetSampleRate(hz)
}
func (r *recordingDevice) SampleRate() float64 { return r.inner.SampleRate() }

func (r *recordingDevice) SetGain(db float64, auto bool) error {
	r.calls = append(r.calls, "gain")
	return r.inner.SetGain(db, auto)
}

func (r *recordingDevice) SetPPM(ppm int) error {
	r.calls = append(r.calls, "ppm")
	return r.inner.SetPPM(ppm)
}

func (r *recordingDevice) ReadSamples(n int) ([]receiver.Sample, error) {
	r.calls = append(r.calls, "read")
	return r.inner.ReadSamples(n)
}

// Shutdown must be idempotent and must disconnect the driver.
func TestShutdownDisconnectsDriver(t *testing.T) {
	s := newTestScanner(t, nil, nil)
	s.Run()
	time.Sleep(10 * time.Millisecond)

	s.Shutdown()
	s.Shutdown() // idempotent
	assert.False(t, s.driver.IsConnected())
}
