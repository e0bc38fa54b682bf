package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"rgbmonitor/internal/logger"
)

// logFileName maps the {level} route parameter to a managed log file.
func logFileName(r *http.Request) (string, bool) {
	name := chi.URLParam(r, "level") + ".log"
	return name, logger.IsLogFile(name)
}

// ShowLogsHandler serves info.log, warning.log or error.log as text/plain.
func ShowLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFileName(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveLogFile(w, r, log.Dir(), name)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates one log file via the logger utility.
func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFileName(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := log.CleanLogs(name); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to clear "+name, log)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
