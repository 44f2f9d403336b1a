// Package metrics wires Prometheus collectors for the scanner engine, in
// the same style as the teacher's prometheus.go: collectors bundled in a
// Metrics value and registered against a caller-supplied registry, with small helper
// functions so call sites never touch label construction directly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// State mirrors the scanner's run state for the gauge below.
type State int

const (
	StatePaused State = iota
	StateScan
	StateManual
)

// Metrics bundles all collectors the scanner engine reports.
type Metrics struct {
	DetectionsTotal       *prometheus.CounterVec
	ScanCyclesTotal       prometheus.Counter
	DemodChunksTotal      *prometheus.CounterVec
	LoggerWriteFailures   prometheus.Counter
	AudioSinkFailures     prometheus.Counter
	State                 prometheus.Gauge
}

// New constructs and registers the collectors against reg. An
// AlreadyRegisteredError (e.g. double-registration in tests) is ignored the
// way the teacher's prometheus.go tolerates re-registration during reloads;
// any other registration error panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrscan_detections_total",
			Help: "Total detection events emitted by scan mode, by band.",
		}, []string{"band"}),
		ScanCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrscan_scan_cycles_total",
			Help: "Total completed scan-mode analysis cycles.",
		}),
		DemodChunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrscan_demod_chunks_total",
			Help: "Total IQ chunks demodulated in manual mode, by mode.",
		}, []string{"mode"}),
		LoggerWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrscan_logger_write_failures_total",
			Help: "Total non-fatal detection logger write failures.",
		}),
		AudioSinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrscan_audio_sink_failures_total",
			Help: "Total non-fatal audio sink write failures.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdrscan_state",
			Help: "Current scanner state: 0=Paused, 1=Scan, 2=Manual.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.DetectionsTotal, m.ScanCyclesTotal, m.DemodChunksTotal,
		m.LoggerWriteFailures, m.AudioSinkFailures, m.State,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

// SetState updates the state gauge.
func (m *Metrics) SetState(s State) {
	m.State.Set(float64(s))
}
