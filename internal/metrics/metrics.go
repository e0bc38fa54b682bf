// Package metrics exposes Prometheus instrumentation for the capture
// pipeline, the sample queue and the viewer feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture
	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_frames_received_total",
			Help: "Total number of camera frames received while a session was active",
		},
	)

	FrameDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_frame_decode_errors_total",
			Help: "Total number of camera frames that could not be decoded",
		},
	)

	FramesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_frames_rejected_total",
			Help: "Total number of frames dropped because another camera owns the session",
		},
	)

	CameraFPS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rgbmonitor_camera_fps",
			Help: "Camera frame rate estimated over a sliding window, refreshed every poll",
		},
	)

	// Samples
	SamplesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_samples_emitted_total",
			Help: "Total number of per-second samples produced by the sampler",
		},
	)

	SamplesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_samples_dropped_total",
			Help: "Total number of samples dropped because the hand-off queue was full",
		},
	)

	SeriesLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rgbmonitor_series_length",
			Help: "Current number of samples in the rolling series",
		},
	)

	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_sessions_started_total",
			Help: "Total number of capture sessions started",
		},
	)

	// Viewers
	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rgbmonitor_viewers_connected",
			Help: "Current number of connected viewer websockets",
		},
	)

	ViewerFramesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rgbmonitor_viewer_frames_skipped_total",
			Help: "Total number of frames not forwarded to viewers because of rate limiting or a full broadcast queue",
		},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rgbmonitor_exports_total",
			Help: "Total number of series exports by format",
		},
		[]string{"format"},
	)
)
