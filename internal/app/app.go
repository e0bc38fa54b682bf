package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/handler"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/route"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
	"rgbmonitor/internal/service/vision"
	"rgbmonitor/internal/service/websocket"
	"rgbmonitor/internal/supervisor"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	hubService *websocket.HubService
	manager    *service.Manager
	series     *series.Buffer
	tree       *supervisor.Tree
}

func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	decoder := vision.NewDecoder()
	hub := websocket.NewHubService(log)
	mng, err := service.NewManager(service.DecoderFunc(func(data []byte) (service.DecodedFrame, error) {
		frame, err := decoder.Decode(data)
		if err != nil {
			return nil, err
		}
		return frame, nil
	}), hub, cfg, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	buffer := series.NewBuffer(cfg.SeriesCapacity)
	poller := service.NewPoller(mng, mng.Samples(), buffer, hub, cfg, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           route.SetupRoutes(mng, buffer, hub, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(log, supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})
	tree.AddCaptureService(hub)
	tree.AddCaptureService(poller)
	if cfg.CameraUDPPort > 0 {
		tree.AddCaptureService(handler.NewUDPCameraListener(mng, cfg, log))
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.ShutdownTimeout, log))

	return &App{
		config:     cfg,
		logger:     log,
		hubService: hub,
		manager:    mng,
		series:     buffer,
		tree:       tree,
	}, nil
}

// Run blocks until ctx is cancelled and all services have stopped.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()
	defer a.manager.Stop()

	fmt.Printf("🚀 RGB Monitor\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	if a.config.CameraUDPPort > 0 {
		fmt.Printf("📷 UDP camera port: %d\n", a.config.CameraUDPPort)
	}
	fmt.Printf("📈 Window: %d samples, render every %s\n", a.config.SeriesCapacity, a.config.RenderInterval)
	fmt.Printf("📁 Logs: %s\n", a.config.LogDirectory)

	a.logger.Info("Server starting on port %d", a.config.Port)
	err := a.tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Supervisor stopped: %v", err)
		return err
	}
	a.logger.Info("Server stopped")
	return nil
}
