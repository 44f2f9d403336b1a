// Package audiosink treats audio output as a capability (spec §9): if the
// platform's audio device cannot be opened, manual mode still runs, just
// silently, via NopSink.
package audiosink

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// Sink accepts mono 48kHz float32 audio. PortAudioSink writes it in fixed
// blocks of defaultFramesPerBuffer frames; the block size is not left to
// the host.
type Sink interface {
	Write(samples []float32) error
	Close() error
}

// NopSink discards everything written to it. Used when audio
// initialization fails so the rest of manual mode is unaffected (§7).
type NopSink struct{}

func (NopSink) Write([]float32) error { return nil }
func (NopSink) Close() error          { return nil }

// PortAudioSink streams mono float32 audio to the default output device
// via gordonklaus/portaudio, grounded on the teacher's own
// clients/go/api_handlers.go use of the same library for device
// enumeration. It uses portaudio's blocking (buffer-based) stream API:
// out is the fixed-size buffer the stream reads from on each Write.
type PortAudioSink struct {
	stream *portaudio.Stream
	out    []float32
}

const defaultFramesPerBuffer = 960 // 20ms at 48kHz

// Open initializes PortAudio and opens the default output stream at
// sampleRate, mono, float32. On any failure it returns a non-nil error
// and the caller should fall back to NopSink rather than treat it as
// fatal.
func Open(sampleRate float64) (Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audiosink: initialize: %w", err)
	}

	out := make([]float32, defaultFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, len(out), &out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audiosink: open default stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audiosink: start stream: %w", err)
	}

	return &PortAudioSink{stream: stream, out: out}, nil
}

// Write blocks until samples have been written to the output device,
// chunking in blocks of len(s.out) (defaultFramesPerBuffer frames) and
// zero-padding the final partial block.
func (s *PortAudioSink) Write(samples []float32) error {
	for off := 0; off < len(samples); off += len(s.out) {
		n := copy(s.out, samples[off:])
		for i := n; i < len(s.out); i++ {
			s.out[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			log.Printf("audiosink: write failed: %v", err)
			return fmt.Errorf("audiosink: write: %w", err)
		}
	}
	return nil
}

// Close stops the stream and releases PortAudio.
func (s *PortAudioSink) Close() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}

// OpenOrNop opens a PortAudioSink, falling back to NopSink (and logging
// once) on any failure — the concrete implementation of §9's "Audio
// optionality" design note.
func OpenOrNop(sampleRate float64) Sink {
	sink, err := Open(sampleRate)
	if err != nil {
		log.Printf("audiosink: disabling audio for this session: %v", err)
		return NopSink{}
	}
	return sink
}
