// Package supervisor runs the long-lived services under a suture tree so a
// crashed service is restarted without taking the process down.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"rgbmonitor/internal/logger"
)

// TreeConfig holds the restart policy.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig matches suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree has two layers: capture (poller, UDP camera, viewer hub) and api (HTTP server).
type Tree struct {
	root    *suture.Supervisor
	capture *suture.Supervisor
	api     *suture.Supervisor
}

func NewTree(log *logger.Logger, config TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := childSpec
	rootSpec.EventHook = eventHook(log)

	root := suture.New("rgbmonitor", rootSpec)
	capture := suture.New("capture-layer", childSpec)
	api := suture.New("api-layer", childSpec)
	root.Add(capture)
	root.Add(api)

	return &Tree{root: root, capture: capture, api: api}
}

// eventHook sends supervisor events to the leveled logs.
func eventHook(log *logger.Logger) suture.EventHook {
	return func(e suture.Event) {
		switch e.Type() {
		case suture.EventTypeServicePanic:
			log.Error("💥 Supervisor: %s", e)
		case suture.EventTypeResume:
			log.Info("Supervisor: %s", e)
		default:
			log.Warning("⚠️  Supervisor: %s", e)
		}
	}
}

func (t *Tree) AddCaptureService(svc suture.Service) suture.ServiceToken {
	return t.capture.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}
