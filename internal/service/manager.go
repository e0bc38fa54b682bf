package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prep/average"
	"golang.org/x/time/rate"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/metrics"
	"rgbmonitor/internal/sampler"
)

var (
	// ErrSessionInactive is returned for frames received while no session is running.
	ErrSessionInactive = errors.New("capture session is not active")
	// ErrUnknownSession is returned when ending a session that is not the current one.
	ErrUnknownSession = errors.New("capture session is not the current one")
	// ErrCameraBusy is returned when another camera owns the capture session.
	ErrCameraBusy = errors.New("another camera owns the capture session")
)

// Frame sources. Only one camera feeds the sampler at a time.
const (
	SourceAPI     = "api"
	SourceBrowser = "browser"
	SourceUDP     = "udp"
)

// SessionStatus describes the capture session observed by the consumer side.
// Source is the camera that owns the session; it is kept after the session ends.
type SessionStatus struct {
	Active    bool
	ID        string
	Source    string
	StartedAt time.Time
}

// QueuedSample is a sample tagged with the session that produced it.
type QueuedSample struct {
	SessionID string
	Sample    sampler.Sample
}

// DecodedFrame is a frame backed by resources that must be released.
type DecodedFrame interface {
	sampler.Frame
	Close() error
}

// FrameDecoder turns an encoded camera payload into a frame.
type FrameDecoder interface {
	Decode(data []byte) (DecodedFrame, error)
}

// DecoderFunc adapts a function to FrameDecoder.
type DecoderFunc func(data []byte) (DecodedFrame, error)

func (f DecoderFunc) Decode(data []byte) (DecodedFrame, error) { return f(data) }

// Broadcaster delivers messages to viewers without blocking.
type Broadcaster interface {
	Broadcast(message []byte) bool
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager is the producer side: it owns the sampler, forwards frames to
// viewers and hands samples to the consumer over a bounded queue.
type Manager struct {
	decoder     FrameDecoder
	viewers     Broadcaster
	logger      *logger.Logger
	viewerLimit *rate.Limiter
	fps         *average.SlidingWindow
	fpsWindow   time.Duration
	now         func() time.Time

	samplerMu sync.Mutex // chroni sampler i zmianę sesji
	sampler   *sampler.Sampler

	queue chan QueuedSample

	statusMu sync.RWMutex
	status   SessionStatus
}

func NewManager(decoder FrameDecoder, viewers Broadcaster, cfg *config.Config, logger *logger.Logger, opts ...ManagerOption) (*Manager, error) {
	fps, err := average.New(cfg.FPSWindow, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to create fps window: %w", err)
	}

	m := &Manager{
		decoder:     decoder,
		viewers:     viewers,
		logger:      logger,
		viewerLimit: rate.NewLimiter(rate.Limit(cfg.ViewerFPS), 1),
		fps:         fps,
		fpsWindow:   cfg.FPSWindow,
		now:         time.Now,
		queue:       make(chan QueuedSample, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sampler = sampler.New(m.now)

	m.logger.Info("🎬 Manager started - queue size %d, viewer fps %.1f", cfg.QueueSize, cfg.ViewerFPS)
	return m, nil
}

// StartSession begins a new capture session, restarting the sampler clock.
// A running session is replaced but keeps its camera, so the camera can still
// end it on disconnect. Otherwise the session belongs to SourceAPI until a
// camera sends a frame.
func (m *Manager) StartSession() SessionStatus {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()

	source := SourceAPI
	if current := m.Status(); current.Active && current.Source != SourceAPI {
		source = current.Source
	}
	return m.startLocked(source)
}

// ClaimSession gives a camera the session. It fails with ErrCameraBusy while
// another camera owns an active session. A session started over the API is
// replaced; a session the camera already owns is returned unchanged.
func (m *Manager) ClaimSession(source string) (SessionStatus, error) {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()

	current := m.Status()
	if current.Active {
		switch current.Source {
		case source:
			return current, nil
		case SourceAPI:
		default:
			return current, ErrCameraBusy
		}
	}
	return m.startLocked(source), nil
}

// startLocked requires samplerMu.
func (m *Manager) startLocked(source string) SessionStatus {
	status := SessionStatus{
		Active:    true,
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: m.now(),
	}

	m.statusMu.Lock()
	previous := m.status
	m.status = status
	m.statusMu.Unlock()

	m.sampler.Reset()
	m.fps.Reset()
	metrics.SessionsStarted.Inc()

	if previous.Active {
		m.logger.Info("📹 Session %s replaced by %s (%s)", previous.ID, status.ID, source)
	} else {
		m.logger.Info("📹 Session %s started (%s)", status.ID, source)
	}
	return status
}

// EndSession stops the session with the given id. An empty id ends whatever
// session is running.
func (m *Manager) EndSession(id string) error {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()

	current := m.Status()
	if !current.Active {
		return ErrSessionInactive
	}
	if id != "" && id != current.ID {
		return ErrUnknownSession
	}
	m.endLocked(current)
	return nil
}

// ReleaseSession ends the active session if source owns it.
func (m *Manager) ReleaseSession(source string) error {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()

	current := m.Status()
	if !current.Active {
		return ErrSessionInactive
	}
	if current.Source != source {
		return ErrCameraBusy
	}
	m.endLocked(current)
	return nil
}

// endLocked requires samplerMu.
func (m *Manager) endLocked(current SessionStatus) {
	m.statusMu.Lock()
	m.status.Active = false
	m.statusMu.Unlock()

	m.sampler.Reset()
	m.logger.Info("🛑 Session %s ended (%s)", current.ID, current.Source)
}

// Status returns the current session status.
func (m *Manager) Status() SessionStatus {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// Samples is the consumer end of the hand-off queue.
func (m *Manager) Samples() <-chan QueuedSample {
	return m.queue
}

// HandleCameraFrame forwards the frame to viewers and, while a session is
// active, folds it into the sampler. Frames from a camera that does not own
// the session are rejected with ErrCameraBusy. The first frame into a session
// started over the API makes its camera the owner.
func (m *Manager) HandleCameraFrame(source string, data []byte) error {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()

	status := m.Status()
	if status.Source != "" && status.Source != SourceAPI && status.Source != source {
		metrics.FramesRejected.Inc()
		return ErrCameraBusy
	}
	if status.Active && status.Source == SourceAPI {
		m.statusMu.Lock()
		m.status.Source = source
		m.statusMu.Unlock()
		m.logger.Info("📹 Session %s now fed by %s camera", status.ID, source)
	}

	m.SendToViewers(data)
	if !status.Active {
		return ErrSessionInactive
	}

	metrics.FramesReceived.Inc()
	m.fps.Add(1)

	frame, err := m.decoder.Decode(data)
	if err != nil {
		metrics.FrameDecodeErrors.Inc()
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	defer frame.Close()

	sample, ok := m.sampler.Process(frame)
	if !ok {
		return nil
	}

	metrics.SamplesEmitted.Inc()
	m.enqueue(QueuedSample{SessionID: status.ID, Sample: sample})
	return nil
}

// enqueue never blocks the capture path; a full queue drops the sample.
func (m *Manager) enqueue(item QueuedSample) {
	select {
	case m.queue <- item:
	default:
		metrics.SamplesDropped.Inc()
		m.logger.Warning("⚠️  Sample queue full - dropping sample t=%d", item.Sample.T)
	}
}

// SendToViewers broadcasts the unchanged frame, at most ViewerFPS times per second.
func (m *Manager) SendToViewers(image []byte) {
	if m.viewers == nil {
		return
	}
	if !m.viewerLimit.Allow() {
		metrics.ViewerFramesSkipped.Inc()
		return
	}

	msg, err := json.Marshal(dto.FrameMessage{
		Type:  dto.TypeFrame,
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		m.logger.Error("Failed to encode frame message: %v", err)
		return
	}

	if !m.viewers.Broadcast(msg) {
		metrics.ViewerFramesSkipped.Inc()
	}
}

// FPS estimates the camera frame rate over the configured window.
func (m *Manager) FPS() float64 {
	total, _ := m.fps.Total(m.fpsWindow)
	return float64(total) / m.fpsWindow.Seconds()
}

// Stop releases background resources.
func (m *Manager) Stop() {
	m.fps.Stop()
	m.logger.Info("🛑 Manager stopped")
}
