// Package chart renders the rolling RGB series as a PNG line chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"rgbmonitor/internal/sampler"
)

// ErrNoSamples is returned when there is nothing to plot yet.
var ErrNoSamples = errors.New("no samples to render")

// Channel intensities are 8-bit.
const (
	minValue = 0
	maxValue = 255
)

// Options controls the chart canvas and the visible time window.
type Options struct {
	Width         int
	Height        int
	WindowSeconds int
}

// Render draws the last WindowSeconds of samples as three lines, one per channel.
func Render(w io.Writer, samples []sampler.Sample, opts Options) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	last := samples[len(samples)-1].T
	minT := 0
	if opts.WindowSeconds > 0 {
		minT = max(0, last-opts.WindowSeconds)
	}

	xs := make([]float64, 0, len(samples))
	rs := make([]float64, 0, len(samples))
	gs := make([]float64, 0, len(samples))
	bs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.T < minT {
			continue
		}
		xs = append(xs, float64(s.T))
		rs = append(rs, s.R)
		gs = append(gs, s.G)
		bs = append(bs, s.B)
	}

	xMax := float64(last)
	if xMax <= float64(minT) {
		xMax = float64(minT) + 1
	}

	ch := gochart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           "Time (s)",
			Range:          &gochart.ContinuousRange{Min: float64(minT), Max: xMax},
			ValueFormatter: secondsFormatter,
		},
		YAxis: gochart.YAxis{
			Name:  "Mean RGB value",
			Range: &gochart.ContinuousRange{Min: minValue, Max: maxValue},
		},
		Series: []gochart.Series{
			channelSeries("R", xs, rs, gochart.ColorRed),
			channelSeries("G", xs, gs, gochart.ColorGreen),
			channelSeries("B", xs, bs, gochart.ColorBlue),
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func channelSeries(name string, xs, ys []float64, col drawing.Color) gochart.ContinuousSeries {
	style := gochart.Style{StrokeColor: col, StrokeWidth: 2}

	// go-chart needs two points to draw a line
	if len(xs) == 1 {
		style.DotColor = col
		style.DotWidth = 4
		return gochart.ContinuousSeries{
			Name:    name,
			XValues: []float64{xs[0], xs[0] + 1},
			YValues: []float64{ys[0], ys[0]},
			Style:   style,
		}
	}
	return gochart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: style}
}

func secondsFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%d", int(math.Round(f)))
	}
	return ""
}
