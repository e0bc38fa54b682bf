package service

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/metrics"
	"rgbmonitor/internal/series"
)

// StatusSource reports the capture session state and the camera frame rate.
type StatusSource interface {
	Status() SessionStatus
	FPS() float64
}

// Poller is the consumer side of the sample queue. It drains samples into the
// series without blocking and publishes the snapshot to viewers about once
// per render interval while a session is active.
type Poller struct {
	source         StatusSource
	queue          <-chan QueuedSample
	series         *series.Buffer
	viewers        Broadcaster
	logger         *logger.Logger
	pollInterval   time.Duration
	renderInterval time.Duration
	window         int

	sessionID  string
	lastRender time.Time
}

func NewPoller(source StatusSource, queue <-chan QueuedSample, buffer *series.Buffer, viewers Broadcaster, cfg *config.Config, logger *logger.Logger) *Poller {
	return &Poller{
		source:         source,
		queue:          queue,
		series:         buffer,
		viewers:        viewers,
		logger:         logger,
		pollInterval:   cfg.PollInterval,
		renderInterval: cfg.RenderInterval,
		window:         cfg.WindowSeconds,
	}
}

// Serve polls until ctx is cancelled. The sleep between polls only bounds CPU use.
func (p *Poller) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.Info("🔧 Sample poller started (poll %s, render %s)", p.pollInterval, p.renderInterval)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("🔧 Sample poller stopped")
			return ctx.Err()
		case now := <-ticker.C:
			p.Tick(now)
		}
	}
}

// String names the service for the supervisor.
func (p *Poller) String() string {
	return "sample-poller"
}

// Tick runs one poll cycle and reports whether a snapshot was published.
func (p *Poller) Tick(now time.Time) bool {
	status := p.source.Status()
	if status.Active && status.ID != p.sessionID {
		p.adopt(status.ID)
	}

	p.drain()
	metrics.SeriesLength.Set(float64(p.series.Len()))

	if !status.Active {
		metrics.CameraFPS.Set(0)
		return false
	}
	metrics.CameraFPS.Set(p.source.FPS())

	if !p.lastRender.IsZero() && now.Sub(p.lastRender) < p.renderInterval {
		return false
	}
	p.lastRender = now
	p.publish()
	return true
}

// adopt switches to a new session and clears the series.
func (p *Poller) adopt(sessionID string) {
	p.series.Clear()
	p.sessionID = sessionID
	p.lastRender = time.Time{}
	p.logger.Info("Session %s observed - series cleared", sessionID)
}

func (p *Poller) drain() {
	for {
		select {
		case item := <-p.queue:
			if item.SessionID != p.sessionID {
				// the session may have started after Status was read
				if current := p.source.Status(); !current.Active || current.ID != item.SessionID {
					continue
				}
				p.adopt(item.SessionID)
			}
			if err := p.series.Append(item.Sample); err != nil {
				p.logger.Warning("Dropping sample: %v", err)
			}
		default:
			return
		}
	}
}

func (p *Poller) publish() {
	if p.viewers == nil {
		return
	}

	msg, err := json.Marshal(dto.SeriesMessage{
		Type:      dto.TypeSeries,
		SessionID: p.sessionID,
		Window:    p.window,
		Samples:   dto.FromSamples(p.series.Snapshot()),
	})
	if err != nil {
		p.logger.Error("Failed to encode series message: %v", err)
		return
	}
	p.viewers.Broadcast(msg)
}
