package scanner

import (
	"time"

	"github.com/nondem/sdrscan/internal/band"
	"github.com/nondem/sdrscan/internal/detect"
	"github.com/nondem/sdrscan/internal/metrics"
)

// workerLoop is the single background goroutine that owns the receiver.
// It alternates between sleeping while Paused, sweeping bands in Scan
// mode, and demodulating in Manual mode, re-reading Params at every loop
// head so changes take effect on the next cycle rather than blocking the
// caller (§5, §8 property 5).
func (s *Scanner) workerLoop() {
	defer close(s.doneCh)

	if err := s.driver.Connect(); err != nil {
		// Nothing productive to do without a receiver; wait for shutdown.
		<-s.stopCh
		return
	}

	cycle := 0
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		snap := s.Params.Snapshot()
		if err := s.driver.SetPPM(int(snap.PPM)); err != nil {
			// Non-fatal: continue with whatever PPM is currently applied.
			_ = err
		}

		switch {
		case snap.Running == Paused:
			s.setState(metrics.StatePaused)
			if !sleepOrStop(s.stopCh, pauseLatency) {
				return
			}
		case snap.Mode == ModeManual:
			s.setState(metrics.StateManual)
			if !s.manualCycle(snap) {
				if !sleepOrStop(s.stopCh, pauseLatency) {
					return
				}
			}
		default:
			s.setState(metrics.StateScan)
			cycle = s.scanCycle(cycle)
		}
	}
}

func (s *Scanner) setState(st metrics.State) {
	if s.metrics != nil {
		s.metrics.SetState(st)
	}
}

// sleepOrStop sleeps for d, returning false early if stopCh fires.
func sleepOrStop(stopCh <-chan struct{}, d time.Duration) bool {
	select {
	case <-stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// scanCycle sweeps every enabled band once, publishing a detect.Event for
// any step whose peak clears the effective threshold and, every Kth
// analyzed step, a spectrum snapshot (§4.4 steps 1-6). It returns the
// updated cycle counter.
func (s *Scanner) scanCycle(cycle int) int {
	if err := s.driver.SetSampleRate(s.cfg.ScanSampleRateHz); err != nil {
		sleepOrStop(s.stopCh, pauseLatency)
		return cycle
	}

	for _, b := range s.bands {
		if !b.Enabled {
			continue
		}
		for _, stepHz := range b.Steps() {
			select {
			case <-s.stopCh:
				return cycle
			default:
			}

			snap := s.Params.Snapshot()
			if snap.Running == Paused || snap.Mode != ModeScan {
				return cycle
			}

			if err := s.driver.Tune(stepHz); err != nil {
				continue
			}

			auto, db := effectiveGain(b.Gain, snap.GainDb)
			if err := s.driver.SetGain(db, auto); err != nil {
				continue
			}

			samples, err := s.driver.ReadSamples(s.cfg.NumSamples)
			if err != nil {
				continue
			}

			analysis := analyzeChunk(samples, s.driver.GetCenterFreq(), s.driver.GetSampleRate())
			if s.metrics != nil {
				s.metrics.ScanCyclesTotal.Inc()
			}

			threshold := b.ThresholdDb
			if snap.ThresholdDb > 0 {
				threshold = snap.ThresholdDb
			}
			if analysis.relDb > threshold {
				ev := detect.NewEvent(
					time.Now(),
					analysis.freqsHz[analysis.peakIdx],
					stepHz,
					analysis.peakDb,
					analysis.noiseDb,
					b.ID,
					b.Name,
				)
				s.results.Push(ev)
				if s.metrics != nil {
					s.metrics.DetectionsTotal.WithLabelValues(b.Name).Inc()
				}
				if s.log != nil {
					if ok := s.log.LogEvent(ev); !ok && s.metrics != nil {
						s.metrics.LoggerWriteFailures.Inc()
					}
				}
			}

			cycle++
			if snap.SpectrumOn && cycle%s.spectrumEveryNth() == 0 {
				s.spectrum.TrySend(analysis.toSpectrum())
			}

			if !sleepOrStop(s.stopCh, time.Duration(b.DwellTimeMs)*time.Millisecond) {
				return cycle
			}
		}
	}
	return cycle
}

func (s *Scanner) spectrumEveryNth() int {
	if s.cfg.SpectrumEveryNth <= 0 {
		return 1
	}
	return s.cfg.SpectrumEveryNth
}

// effectiveGain resolves the gain to apply for a scan step: an explicit,
// non-zero Params override always wins over the band's own descriptor
// (§3: "gain_db: 0 => auto").
func effectiveGain(bandGain band.Gain, paramGainDb float64) (auto bool, db float64) {
	if paramGainDb != 0 {
		return false, paramGainDb
	}
	if bandGain.IsAuto() {
		return true, 0
	}
	return false, bandGain.Db()
}

// manualCycle tunes to the manual frequency, reads one buffer's worth of
// IQ samples, demodulates it, and writes the resulting audio to the sink
// (§4.4's manual-mode algorithm). A tune/sample-rate failure is treated
// as a persistent hardware fault: it exits manual mode to Paused rather
// than retrying forever. A read failure is treated as transient: it
// returns false so the caller backs off and retries on the next cycle,
// staying in Manual mode (§4.4 step 3).
func (s *Scanner) manualCycle(snap Snapshot) bool {
	if err := s.driver.SetSampleRate(s.cfg.ManualSampleRateHz); err != nil {
		s.Params.StopScan()
		return false
	}
	if err := s.driver.Tune(snap.ManualFreqHz); err != nil {
		s.Params.StopScan()
		return false
	}
	auto, db := effectiveGain(band.AutoGain(), snap.GainDb)
	_ = s.driver.SetGain(db, auto)

	n := int(snap.BufferSize)
	if n <= 0 {
		return false
	}
	samples, err := s.driver.ReadSamples(n)
	if err != nil {
		return false
	}

	iq := make([]complex128, len(samples))
	for i, v := range samples {
		iq[i] = complex128(v)
	}

	s.demodulator.SetVolume(snap.Volume)
	audio := s.demodulator.Demodulate(iq, s.driver.GetSampleRate(), snap.SquelchDb, snap.DemodMode)
	if s.metrics != nil {
		s.metrics.DemodChunksTotal.WithLabelValues(snap.DemodMode.String()).Inc()
	}
	if len(audio) == 0 {
		return true
	}

	if err := s.audio.Write(audio); err != nil && s.metrics != nil {
		s.metrics.AudioSinkFailures.Inc()
	}
	return true
}
