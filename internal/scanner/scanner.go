// Package scanner implements the band-scanning and manual-tuning engine
// from spec §4.4: a single background worker serializes all receiver
// I/O, branching on Params.Snapshot() between sweeping the configured
// bands (publishing detect.Event and detect.Spectrum) and demodulating a
// single manually-tuned frequency to audio.
package scanner

import (
	"sync"
	"time"

	"github.com/nondem/sdrscan/internal/audiosink"
	"github.com/nondem/sdrscan/internal/band"
	"github.com/nondem/sdrscan/internal/config"
	"github.com/nondem/sdrscan/internal/demod"
	"github.com/nondem/sdrscan/internal/logger"
	"github.com/nondem/sdrscan/internal/metrics"
	"github.com/nondem/sdrscan/internal/receiver"
)

// pauseLatency is the interval the worker sleeps for while Paused before
// re-checking Params, matching §6's ">=10Hz" poll requirement.
const pauseLatency = 50 * time.Millisecond

// shutdownGrace is the minimum time the worker is given to notice a
// cleared run flag before teardown proceeds (§4.4 shutdown sequence).
const shutdownGrace = 200 * time.Millisecond

// Scanner owns the receiver driver, demodulator, optional detection
// logger, audio sink, and the one background worker goroutine that
// serializes all access to the receiver (§5).
type Scanner struct {
	driver      *receiver.Driver
	demodulator *demod.Demodulator
	log         *logger.Logger // nil => no persistence
	audio       audiosink.Sink
	metrics     *metrics.Metrics // nil => no metrics
	bands       []band.Band
	cfg         config.ScannerConfig

	Params   *Params
	results  *EventQueue
	spectrum *SpectrumQueue

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New builds a Scanner. log, sink, and m may be nil; the worker degrades
// gracefully in each case per §9's optionality design notes.
func New(driver *receiver.Driver, demodulator *demod.Demodulator, log *logger.Logger, sink audiosink.Sink, m *metrics.Metrics, bands []band.Band, cfg config.ScannerConfig) *Scanner {
	if sink == nil {
		sink = audiosink.NopSink{}
	}
	s := &Scanner{
		driver:      driver,
		demodulator: demodulator,
		log:         log,
		audio:       sink,
		metrics:     m,
		bands:       bands,
		cfg:         cfg,
		Params:      NewParams(),
		results:     NewEventQueue(),
		spectrum:    NewSpectrumQueue(),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	if cfg.BufferSize > 0 {
		s.Params.SetBufferSize(cfg.BufferSize)
	}
	return s
}

// Run starts the worker goroutine. It must be called exactly once.
func (s *Scanner) Run() {
	go s.workerLoop()
}

// Results exposes the detection-event consumer endpoint.
func (s *Scanner) Results() *EventQueue { return s.results }

// Spectrum exposes the spectrum-snapshot consumer endpoint.
func (s *Scanner) Spectrum() *SpectrumQueue { return s.spectrum }

// Shutdown runs the teardown sequence from §4.4: exit manual mode, clear
// the run flag, wait out the grace period for the worker to notice, then
// stop the worker, close the audio sink, and disconnect the driver. It is
// idempotent.
func (s *Scanner) Shutdown() {
	s.once.Do(func() {
		s.Params.ExitManualMode()
		s.Params.StopScan()
		time.Sleep(shutdownGrace)

		close(s.stopCh)
		<-s.doneCh

		s.audio.Close()
		s.driver.Disconnect()
	})
}
