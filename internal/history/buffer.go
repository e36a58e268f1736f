// Package history keeps a bounded, insertion-ordered window of price
// samples per tracked asset.
package history

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCapacity is the number of samples kept per asset when no
// explicit window size is configured.
const DefaultCapacity = 60

var (
	// ErrStaleSample is returned when a sample does not advance the
	// buffer's timeline. The caller drops the sample and moves on.
	ErrStaleSample = errors.New("history: sample timestamp not after last sample")

	// ErrAlreadyPopulated is returned by BulkLoad on a non-empty buffer.
	// Backfill runs once per asset; hitting this is a programming error.
	ErrAlreadyPopulated = errors.New("history: buffer already populated")
)

// Sample is one observed price at a point in time.
type Sample struct {
	Time  time.Time
	Price decimal.Decimal
}

// Buffer is a fixed-capacity ring of samples ordered by time. Once full,
// each append evicts the oldest sample. Buffer is not safe for concurrent
// use; the dashboard loop is its only writer.
type Buffer struct {
	samples []Sample
	start   int
	size    int
}

// NewBuffer returns an empty buffer holding at most capacity samples.
// A non-positive capacity falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{samples: make([]Sample, capacity)}
}

// Append adds one live sample. When the buffer is full the oldest sample
// is evicted. Samples must strictly advance in time; anything at or
// before the newest stored sample is rejected with ErrStaleSample and
// the buffer is left untouched.
func (b *Buffer) Append(s Sample) error {
	if last, ok := b.Last(); ok && !s.Time.After(last.Time) {
		return ErrStaleSample
	}
	b.push(s)
	return nil
}

// BulkLoad seeds an empty buffer with historical samples in ascending
// time order, keeping only the newest capacity samples when given more.
// Out-of-order entries are skipped rather than rejected wholesale since
// upstream kline feeds occasionally repeat a boundary candle.
func (b *Buffer) BulkLoad(samples []Sample) error {
	if b.size != 0 {
		return ErrAlreadyPopulated
	}
	if len(samples) > len(b.samples) {
		samples = samples[len(samples)-len(b.samples):]
	}
	for _, s := range samples {
		if last, ok := b.Last(); ok && !s.Time.After(last.Time) {
			continue
		}
		b.push(s)
	}
	return nil
}

// Snapshot returns the buffered samples oldest first. The slice is a
// copy; mutating it does not affect the buffer.
func (b *Buffer) Snapshot() []Sample {
	out := make([]Sample, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.samples[(b.start+i)%len(b.samples)]
	}
	return out
}

// Last returns the newest sample, if any.
func (b *Buffer) Last() (Sample, bool) {
	if b.size == 0 {
		return Sample{}, false
	}
	return b.samples[(b.start+b.size-1)%len(b.samples)], true
}

// Len reports how many samples are currently stored.
func (b *Buffer) Len() int { return b.size }

// Cap reports the fixed capacity.
func (b *Buffer) Cap() int { return len(b.samples) }

func (b *Buffer) push(s Sample) {
	if b.size == len(b.samples) {
		b.samples[b.start] = s
		b.start = (b.start + 1) % len(b.samples)
		return
	}
	b.samples[(b.start+b.size)%len(b.samples)] = s
	b.size++
}
