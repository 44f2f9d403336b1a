// Package detect holds the value types that cross the queue boundary
// between the scanner engine and its UI/logger consumers.
package detect

import "time"

// Event is a single detection produced by scan mode when a spectral peak
// rises above a band's threshold.
type Event struct {
	Timestamp        time.Time
	FrequencyHz      float64
	CenterFreqHz     float64
	PowerDb          float64
	NoiseFloorDb     float64
	RelativePowerDb  float64
	BandID           string
	BandName         string
}

// NewEvent builds an Event, deriving RelativePowerDb from power and noise
// floor so callers can't construct an inconsistent value.
func NewEvent(ts time.Time, freqHz, centerFreqHz, powerDb, noiseFloorDb float64, bandID, bandName string) Event {
	return Event{
		Timestamp:       ts,
		FrequencyHz:     freqHz,
		CenterFreqHz:    centerFreqHz,
		PowerDb:         powerDb,
		NoiseFloorDb:    noiseFloorDb,
		RelativePowerDb: powerDb - noiseFloorDb,
		BandID:          bandID,
		BandName:        bandName,
	}
}

// Spectrum is a transient power-spectrum snapshot: paired vectors of equal
// length, overwritten by the latest sample.
type Spectrum struct {
	FrequenciesHz []float64
	PowerDb       []float64
}
