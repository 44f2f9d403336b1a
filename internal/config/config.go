// Package config loads engine-level runtime settings — not band lists,
// which stay the host application's job per spec §1's Non-goals — the
// way the teacher's config.go loads its YAML config: a single struct of
// yaml-tagged sub-structs, defaults applied after Unmarshal.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's own runtime configuration.
type Config struct {
	Receiver ReceiverConfig `yaml:"receiver"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Logger   LoggerConfig   `yaml:"logger"`
	Audio    AudioConfig    `yaml:"audio"`
}

// ReceiverConfig controls the hardware driver defaults.
type ReceiverConfig struct {
	DeviceIndex int `yaml:"device_index"`
}

// ScannerConfig carries the non-band scanner defaults named in §4.4's
// scan algorithm and §9's Open Question resolutions.
type ScannerConfig struct {
	ScanSampleRateHz   float64 `yaml:"scan_sample_rate_hz"`
	ManualSampleRateHz float64 `yaml:"manual_sample_rate_hz"`
	NumSamples         int     `yaml:"num_samples"`
	SpectrumEveryNth   int     `yaml:"spectrum_every_nth"`
	BufferSize         uint32  `yaml:"buffer_size"`
}

// LoggerConfig points the detection logger at its backing file.
type LoggerConfig struct {
	Path string `yaml:"path"`
}

// AudioConfig controls the audio sink.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the engine's built-in defaults, matching the values
// named throughout §4.4 and §9.
func Default() Config {
	return Config{
		Receiver: ReceiverConfig{DeviceIndex: 0},
		Scanner: ScannerConfig{
			ScanSampleRateHz:   2_400_000,
			ManualSampleRateHz: 960_000,
			NumSamples:         2048,
			SpectrumEveryNth:   4,
			BufferSize:         16384,
		},
		Logger: LoggerConfig{Path: "detections.db"},
		Audio:  AudioConfig{Enabled: true},
	}
}

// Load reads a YAML file at path over the defaults: any field the file
// doesn't set keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
