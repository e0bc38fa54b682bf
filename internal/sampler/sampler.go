// Package sampler turns a per-frame video callback into one RGB sample per
// elapsed wall-clock second.
//
// A Sampler is owned by the goroutine that receives frames. It is not safe for
// concurrent use; callers hand emitted samples to consumers over a channel.
package sampler

import "time"

// Sample is the per-second aggregate: seconds since the session started and
// the mean R, G and B intensity (0-255) of the frames folded into it.
type Sample struct {
	T int
	R float64
	G float64
	B float64
}

// Sampler accumulates frame means and emits a Sample whenever a second
// boundary is crossed.
type Sampler struct {
	now   func() time.Time
	start time.Time

	frameCount     int
	rSum           float64
	gSum           float64
	bSum           float64
	secondsElapsed int
}

// New creates a Sampler whose clock starts immediately. A nil now uses time.Now.
func New(now func() time.Time) *Sampler {
	if now == nil {
		now = time.Now
	}
	s := &Sampler{now: now}
	s.Reset()
	return s
}

// Reset restarts the clock and drops any accumulated frames.
func (s *Sampler) Reset() {
	s.start = s.now()
	s.secondsElapsed = 0
	s.clear()
}

// Process folds one frame into the running sums. When the floor of the
// elapsed time has moved past the current second it returns the averaged
// sample and starts a new accumulation window.
//
// The sample for second k covers every frame received since the previous
// emission, including the frame that crossed the boundary.
func (s *Sampler) Process(f Frame) (Sample, bool) {
	if means, ok := f.ChannelMeans(); ok {
		s.rSum += means.R
		s.gSum += means.G
		s.bSum += means.B
		s.frameCount++
	}

	elapsed := s.elapsedSeconds()
	if elapsed <= s.secondsElapsed {
		return Sample{}, false
	}

	var (
		sample  Sample
		emitted bool
	)
	if s.frameCount > 0 {
		n := float64(s.frameCount)
		sample = Sample{
			T: s.secondsElapsed,
			R: s.rSum / n,
			G: s.gSum / n,
			B: s.bSum / n,
		}
		emitted = true
	}

	s.clear()
	s.secondsElapsed = elapsed
	return sample, emitted
}

// SecondsElapsed is the label the next emitted sample will carry.
func (s *Sampler) SecondsElapsed() int {
	return s.secondsElapsed
}

// FrameCount is the number of frames accumulated since the last emission.
func (s *Sampler) FrameCount() int {
	return s.frameCount
}

func (s *Sampler) elapsedSeconds() int {
	d := s.now().Sub(s.start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func (s *Sampler) clear() {
	s.frameCount = 0
	s.rSum = 0
	s.gSum = 0
	s.bSum = 0
}
