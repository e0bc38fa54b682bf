package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/handler"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/middleware"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
	hub "rgbmonitor/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static files, the camera and viewer websockets,
// the series API, log endpoints and /metrics.
func SetupRoutes(manager *service.Manager, buffer *series.Buffer, viewers *hub.HubService,
	cfg *config.Config, logger *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// WebSockets
	r.Get("/ws/camera", handler.CameraWebsocketHandler(manager, cfg, logger))
	r.Get("/ws/view", handler.ViewWebsocketHandler(manager, buffer, viewers, cfg, logger))

	// API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", handler.SessionStatusHandler(manager, buffer, logger))
		r.Post("/session/start", handler.StartSessionHandler(manager, buffer, logger))
		r.Post("/session/stop", handler.StopSessionHandler(manager, buffer, logger))

		r.Get("/series", handler.SeriesHandler(manager, buffer, cfg, logger))
		r.Get("/chart.png", handler.ChartHandler(buffer, cfg, logger))
		r.Get("/export.xlsx", handler.ExportXLSXHandler(buffer, logger))
		r.Get("/export.csv", handler.ExportCSVHandler(buffer, logger))
	})

	// Log endpoints
	r.Get("/logs/{level}", handler.ShowLogsHandler(logger))
	r.Post("/logs/{level}/clear", handler.ClearLogsHandler(logger))

	r.Handle("/metrics", promhttp.Handler())

	// Automatic HTML handler mapping for example: /about -> <static>/about.html
	r.Get("/*", dynamicHTMLHandler(cfg.StaticDirectory))

	return r
}
