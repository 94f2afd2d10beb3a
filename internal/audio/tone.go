// Package audio turns the sound-active signal into an audible tone.
package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

const (
	SampleRate = 44100
	Frequency  = 440.0
	Volume     = 0.05

	bytesPerSample = 4 // mono float32
)

// Tone is an io.Reader producing a little-endian float32 square wave while
// active and silence otherwise. SetActive may be called from any goroutine.
type Tone struct {
	active atomic.Bool

	// only touched by the reading goroutine
	phase float64
	step  float64
}

func NewTone(sampleRate int) *Tone {
	return &Tone{
		step: Frequency / float64(sampleRate),
	}
}

func (t *Tone) SetActive(active bool) {
	t.active.Store(active)
}

func (t *Tone) Active() bool {
	return t.active.Load()
}

func (t *Tone) Read(p []byte) (int, error) {
	active := t.active.Load()

	n := len(p) / bytesPerSample
	for i := 0; i < n; i++ {
		sample := float32(0)
		if active {
			sample = Volume
			if t.phase >= 0.5 {
				sample = -Volume
			}
			t.phase = math.Mod(t.phase+t.step, 1)
		}
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(sample))
	}

	// a trailing partial sample is padded with silence
	for i := n * bytesPerSample; i < len(p); i++ {
		p[i] = 0
	}

	return len(p), nil
}
