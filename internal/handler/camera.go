package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/service"
)

const (
	cameraReadWait = 30 * time.Second
	udpBufferSize  = 64 * 1024
	udpIdleTimeout = 5 * time.Second
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// CameraWebsocketHandler accepts the browser camera. Every binary message is
// one JPEG frame. Connecting claims the session and disconnecting releases it.
// Only one camera may be connected at a time; a second one gets 409.
func CameraWebsocketHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	var connected atomic.Bool

	return func(w http.ResponseWriter, r *http.Request) {
		if !connected.CompareAndSwap(false, true) {
			logger.Warning("Rejected second camera from %s", r.RemoteAddr)
			http.Error(w, "camera already connected", http.StatusConflict)
			return
		}
		defer connected.Store(false)

		status, err := manager.ClaimSession(service.SourceBrowser)
		if err != nil {
			logger.Warning("Rejected camera from %s: %v", r.RemoteAddr, err)
			http.Error(w, "camera already connected", http.StatusConflict)
			return
		}
		defer releaseSession(manager, service.SourceBrowser, logger)

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Camera WebSocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(cfg.MaxFrameBytes)
		logger.Info("📷 Camera connected from %s (session %s)", r.RemoteAddr, status.ID)

		for {
			conn.SetReadDeadline(time.Now().Add(cameraReadWait))
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Camera disconnected normally")
				} else {
					logger.Error("Camera disconnected with error: %v", err)
				}
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}

			if err := manager.HandleCameraFrame(service.SourceBrowser, data); err != nil && !errors.Is(err, service.ErrSessionInactive) {
				logger.Warning("Skipping camera frame: %v", err)
			}
		}
	}
}

// releaseSession ends the session if source still owns it.
func releaseSession(manager *service.Manager, source string, logger *logger.Logger) {
	err := manager.ReleaseSession(source)
	if err != nil && !errors.Is(err, service.ErrSessionInactive) && !errors.Is(err, service.ErrCameraBusy) {
		logger.Error("Failed to release %s session: %v", source, err)
	}
}

// frameAssembler rebuilds JPEG frames split across datagrams.
type frameAssembler struct {
	buf      bytes.Buffer
	maxBytes int
}

// Push appends one datagram and returns a complete frame once the JPEG end
// marker arrives. A start marker discards any partial frame.
func (a *frameAssembler) Push(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, jpegHeader) {
		a.buf.Reset()
	} else if a.buf.Len() == 0 {
		// middle of a frame we never saw the start of
		return nil, false
	}

	a.buf.Write(data)
	if a.maxBytes > 0 && a.buf.Len() > a.maxBytes {
		a.buf.Reset()
		return nil, false
	}

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, a.buf.Len())
	copy(frame, a.buf.Bytes())
	a.buf.Reset()
	return frame, true
}

// UDPCameraListener receives JPEG frames from a network camera over UDP and
// feeds them into the same path as the browser camera. The first frame of a
// stream claims the session; idleTimeout without datagrams releases it.
type UDPCameraListener struct {
	manager     *service.Manager
	logger      *logger.Logger
	addr        string
	maxBytes    int
	idleTimeout time.Duration

	mu        sync.RWMutex
	boundAddr string
	streaming bool // tylko w pętli odczytu
}

func NewUDPCameraListener(manager *service.Manager, cfg *config.Config, logger *logger.Logger) *UDPCameraListener {
	return &UDPCameraListener{
		manager:     manager,
		logger:      logger,
		addr:        fmt.Sprintf(":%d", cfg.CameraUDPPort),
		maxBytes:    int(cfg.MaxFrameBytes),
		idleTimeout: udpIdleTimeout,
	}
}

// Serve listens until ctx is cancelled.
func (l *UDPCameraListener) Serve(ctx context.Context) error {
	conn, err := l.listen()
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	l.logger.Info("UDP Camera listener started on %s", l.Addr())
	return l.readLoop(ctx, conn)
}

func (l *UDPCameraListener) listen() (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", l.addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.boundAddr = conn.LocalAddr().String()
	l.mu.Unlock()
	return conn, nil
}

// Addr is the bound address, empty until Serve is listening.
func (l *UDPCameraListener) Addr() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.boundAddr
}

func (l *UDPCameraListener) readLoop(ctx context.Context, conn *net.UDPConn) error {
	buffer := make([]byte, udpBufferSize)
	assembler := &frameAssembler{maxBytes: l.maxBytes}
	defer l.endStream()

	for {
		conn.SetReadDeadline(time.Now().Add(l.idleTimeout))
		n, remoteAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("UDP Camera listener stopped")
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				assembler.buf.Reset()
				l.endStream()
				continue
			}
			l.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		frame, ok := assembler.Push(buffer[:n])
		if !ok {
			continue
		}
		l.handleFrame(frame, remoteAddr)
	}
}

func (l *UDPCameraListener) handleFrame(frame []byte, from *net.UDPAddr) {
	if !l.streaming {
		l.streaming = true
		status, err := l.manager.ClaimSession(service.SourceUDP)
		if err != nil {
			l.logger.Warning("📷 UDP camera %s ignored: %v", from, err)
		} else {
			l.logger.Info("📷 UDP camera %s feeds session %s", from, status.ID)
		}
	}
	err := l.manager.HandleCameraFrame(service.SourceUDP, frame)
	if err != nil && !errors.Is(err, service.ErrSessionInactive) && !errors.Is(err, service.ErrCameraBusy) {
		l.logger.Warning("Skipping UDP frame from %s: %v", from, err)
	}
}

func (l *UDPCameraListener) endStream() {
	if !l.streaming {
		return
	}
	l.streaming = false
	l.logger.Info("📷 UDP camera went quiet")
	releaseSession(l.manager, service.SourceUDP, l.logger)
}

func (l *UDPCameraListener) String() string {
	return "udp-camera-listener"
}
