// Command sdrscan wires the engine together: load configuration, bring
// up the receiver, demodulator, detection logger, and audio sink, start
// the scanner's worker goroutine, and serve Prometheus metrics until a
// termination signal arrives (§4.4, §6).
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nondem/sdrscan/internal/audiosink"
	"github.com/nondem/sdrscan/internal/band"
	"github.com/nondem/sdrscan/internal/config"
	"github.com/nondem/sdrscan/internal/demod"
	"github.com/nondem/sdrscan/internal/logger"
	"github.com/nondem/sdrscan/internal/metrics"
	"github.com/nondem/sdrscan/internal/receiver"
	"github.com/nondem/sdrscan/internal/scanner"
)

// defaultBands is a small built-in example set. Real deployments supply
// their own band list by reference at construction time (§3's
// Non-goals exclude band-file parsing from this module); this is just
// enough to make the binary do something useful out of the box.
func defaultBands() []band.Band {
	return []band.Band{
		{
			ID: "nfm-vhf-air", Name: "VHF Airband", Enabled: true,
			StartFreqHz: 118_000_000, EndFreqHz: 136_000_000, StepSizeHz: 25_000,
			Gain: band.AutoGain(), DwellTimeMs: 50, ThresholdDb: 12,
		},
		{
			ID: "nfm-2m", Name: "2m Amateur", Enabled: true,
			StartFreqHz: 144_000_000, EndFreqHz: 148_000_000, StepSizeHz: 12_500,
			Gain: band.AutoGain(), DwellTimeMs: 50, ThresholdDb: 12,
		},
	}
}

func main() {
	configPath := flag.String("config", "sdrscan.yaml", "path to engine configuration file")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus metrics on")
	deviceIndex := flag.Int("device", -1, "receiver device index override (-1 uses config)")
	flag.Parse()

	cfg := config.Default()
	if loaded, err := config.Load(*configPath); err != nil {
		log.Printf("sdrscan: no config at %s, using defaults: %v", *configPath, err)
	} else {
		cfg = loaded
	}
	if *deviceIndex >= 0 {
		cfg.Receiver.DeviceIndex = *deviceIndex
	}

	device := receiver.NewSimulated(nil)
	driver := receiver.New(device)
	demodulator := demod.New()

	detLogger, err := logger.Open(cfg.Logger.Path)
	if err != nil {
		log.Printf("sdrscan: detection logger disabled: %v", err)
		detLogger = nil
	}

	var sink audiosink.Sink = audiosink.NopSink{}
	if cfg.Audio.Enabled {
		sink = audiosink.OpenOrNop(demod.AudioRate)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	eng := scanner.New(driver, demodulator, detLogger, sink, m, defaultBands(), cfg.Scanner)
	eng.Run()
	eng.Params.StartScan()

	go func() {
		results := eng.Results()
		for {
			ev, ok := results.Pop()
			if !ok {
				return
			}
			log.Printf("detection: %s %.0fHz %.1fdB (noise %.1fdB)", ev.BandName, ev.FrequencyHz, ev.PowerDb, ev.NoiseFloorDb)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("sdrscan: metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("sdrscan: shutting down")
	eng.Shutdown()
	eng.Results().Close()
	server.Close()
	if detLogger != nil {
		detLogger.Close()
	}
}
