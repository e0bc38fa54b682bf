// Package series keeps the rolling window of per-second RGB samples shared by
// the chart renderer, the exporters and the viewer feed.
package series

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"

	"rgbmonitor/internal/sampler"
)

// DefaultCapacity is the number of samples kept (five minutes at one sample per second).
const DefaultCapacity = 300

// ErrNotIncreasing is returned when a sample does not advance the series time.
var ErrNotIncreasing = errors.New("sample time must be strictly increasing")

// Buffer is a fixed-capacity FIFO of samples. The oldest sample is evicted
// once the capacity is exceeded.
type Buffer struct {
	mu       sync.RWMutex
	samples  deque.Deque[sampler.Sample]
	capacity int
}

// NewBuffer creates a Buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Append pushes a sample to the back, evicting from the front when full.
func (b *Buffer) Append(sample sampler.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.samples.Len() > 0 {
		if last := b.samples.Back(); sample.T <= last.T {
			return fmt.Errorf("%w: got t=%d after t=%d", ErrNotIncreasing, sample.T, last.T)
		}
	}

	b.samples.PushBack(sample)
	for b.samples.Len() > b.capacity {
		b.samples.PopFront()
	}
	return nil
}

// Clear drops every sample.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples.Clear()
}

// Snapshot returns an ordered copy of the current samples.
func (b *Buffer) Snapshot() []sampler.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]sampler.Sample, b.samples.Len())
	for i := range out {
		out[i] = b.samples.At(i)
	}
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples.Len()
}

// Capacity returns the maximum number of samples kept.
func (b *Buffer) Capacity() int {
	return b.capacity
}
