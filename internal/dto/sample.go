package dto

import "rgbmonitor/internal/sampler"

// Sample is the wire form of one per-second RGB sample.
type Sample struct {
	T int     `json:"t"`
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// FromSamples converts sampler output into wire samples.
func FromSamples(samples []sampler.Sample) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{T: s.T, R: s.R, G: s.G, B: s.B}
	}
	return out
}
