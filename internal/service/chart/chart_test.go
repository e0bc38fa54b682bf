package chart

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"rgbmonitor/internal/sampler"
)

func rampSamples(n int) []sampler.Sample {
	samples := make([]sampler.Sample, n)
	for i := range samples {
		samples[i] = sampler.Sample{T: i, R: float64(i % 256), G: 128, B: float64(255 - i%256)}
	}
	return samples
}

func TestRender_NoSamples(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil, Options{Width: 400, Height: 200}); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("Expected ErrNoSamples, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing written, got %d bytes", buf.Len())
	}
}

func TestRender_PNGSize(t *testing.T) {
	tests := []struct {
		name    string
		samples []sampler.Sample
	}{
		{"single sample", rampSamples(1)},
		{"two samples", rampSamples(2)},
		{"full window", rampSamples(300)},
		{"beyond window", rampSamples(400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Render(&buf, tt.samples, Options{Width: 640, Height: 320, WindowSeconds: 300})
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}

			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("Output is not a PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 320 {
				t.Errorf("Expected 640x320, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestSecondsFormatter(t *testing.T) {
	if got := secondsFormatter(12.4); got != "12" {
		t.Errorf("Expected 12, got %q", got)
	}
	if got := secondsFormatter("x"); got != "" {
		t.Errorf("Expected empty string for non-float, got %q", got)
	}
}
