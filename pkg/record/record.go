// Package record keeps polled telemetry for display and logging: a
// time-windowed buffer of recent samples and a CSV writer for persistent
// logs.
package record

import (
	"time"

	"github.com/itohio/gopid/pkg/controller"
)

// Sample is one telemetry poll tagged with its wall-clock receipt time.
type Sample struct {
	Timestamp time.Time
	Data      controller.Telemetry
}

// Buffer keeps samples inside a sliding time window, ordered oldest first.
// Samples age out relative to the newest sample, not the wall clock, so a
// paused poller does not empty the buffer.
type Buffer struct {
	window  time.Duration
	samples []Sample
}

// NewBuffer creates a buffer holding window's worth of samples. A
// non-positive window keeps everything.
func NewBuffer(window time.Duration) *Buffer {
	return &Buffer{window: window}
}

// Add appends a sample and evicts samples older than the window.
func (b *Buffer) Add(s Sample) {
	b.samples = append(b.samples, s)

	if b.window <= 0 {
		return
	}

	cutoff := s.Timestamp.Add(-b.window)
	drop := 0
	for drop < len(b.samples)-1 && b.samples[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		b.samples = b.samples[drop:]
	}
}

// Samples returns a copy of the buffered samples, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Latest returns the newest sample, or false if the buffer is empty.
func (b *Buffer) Latest() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// TemperatureSpan returns the minimum and maximum buffered temperature.
func (b *Buffer) TemperatureSpan() (min, max float64) {
	if len(b.samples) == 0 {
		return 0, 0
	}

	min = b.samples[0].Data.Temperature
	max = min
	for _, s := range b.samples[1:] {
		t := s.Data.Temperature
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return min, max
}
