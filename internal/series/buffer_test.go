package series

import (
	"errors"
	"sync"
	"testing"

	"rgbmonitor/internal/sampler"
)

func sampleAt(t int) sampler.Sample {
	return sampler.Sample{T: t, R: float64(t), G: float64(t) / 2, B: 1}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := NewBuffer(300)

	for i := 1; i <= 301; i++ {
		if err := b.Append(sampleAt(i)); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
		if b.Len() > 300 {
			t.Fatalf("buffer exceeded capacity: %d", b.Len())
		}
	}

	snap := b.Snapshot()
	if len(snap) != 300 {
		t.Fatalf("expected 300 samples, got %d", len(snap))
	}
	for i, s := range snap {
		if s.T != i+2 {
			t.Fatalf("expected sample %d at index %d, got %d", i+2, i, s.T)
		}
	}
}

func TestBuffer_ClearThenSnapshot(t *testing.T) {
	b := NewBuffer(10)
	for i := 0; i < 5; i++ {
		_ = b.Append(sampleAt(i))
	}

	b.Clear()
	for i := 0; i < 3; i++ {
		if snap := b.Snapshot(); len(snap) != 0 {
			t.Fatalf("expected empty snapshot after clear, got %d samples", len(snap))
		}
	}

	if err := b.Append(sampleAt(0)); err != nil {
		t.Fatalf("Append after clear failed: %v", err)
	}
	if snap := b.Snapshot(); len(snap) != 1 || snap[0].T != 0 {
		t.Fatalf("expected one sample with T=0, got %+v", snap)
	}
}

func TestBuffer_RejectsNonIncreasing(t *testing.T) {
	b := NewBuffer(10)
	_ = b.Append(sampleAt(3))

	for _, ts := range []int{3, 2} {
		err := b.Append(sampleAt(ts))
		if !errors.Is(err, ErrNotIncreasing) {
			t.Errorf("Append(t=%d): expected ErrNotIncreasing, got %v", ts, err)
		}
	}
	if b.Len() != 1 {
		t.Errorf("rejected samples must not be stored, len=%d", b.Len())
	}
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewBuffer(10)
	_ = b.Append(sampleAt(1))

	snap := b.Snapshot()
	snap[0].R = 999

	if got := b.Snapshot()[0].R; got != 1 {
		t.Errorf("snapshot mutation leaked into buffer: R=%.1f", got)
	}
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	if got := NewBuffer(0).Capacity(); got != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, got)
	}
}

func TestBuffer_ConcurrentReaders(t *testing.T) {
	b := NewBuffer(50)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.Append(sampleAt(i))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := b.Snapshot()
				for j := 1; j < len(snap); j++ {
					if snap[j].T <= snap[j-1].T {
						t.Errorf("snapshot out of order at %d", j)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	if b.Len() != 50 {
		t.Errorf("expected 50 samples, got %d", b.Len())
	}
}
