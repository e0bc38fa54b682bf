package handler

import (
	"errors"
	"net/http"

	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
)

func sessionInfo(status service.SessionStatus, manager *service.Manager, buffer *series.Buffer) dto.SessionInfo {
	info := dto.SessionInfo{
		Active:    status.Active,
		ID:        status.ID,
		Source:    status.Source,
		StartedAt: status.StartedAt,
		Samples:   buffer.Len(),
	}
	if status.Active {
		info.FPS = manager.FPS()
	}
	return info
}

// SessionStatusHandler reports whether a capture session is running.
func SessionStatusHandler(manager *service.Manager, buffer *series.Buffer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sessionInfo(manager.Status(), manager, buffer), logger)
	}
}

// StartSessionHandler starts a new session, replacing any running one.
// A camera that owned the replaced session keeps the new one, so its
// disconnect still stops capture. Without a camera the first one to send a
// frame takes it. The series is cleared by the poller once it observes the
// new session.
func StartSessionHandler(manager *service.Manager, buffer *series.Buffer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := manager.StartSession()
		respondJSON(w, http.StatusOK, sessionInfo(status, manager, buffer), logger)
	}
}

// StopSessionHandler ends the running session. The series is kept for export.
func StopSessionHandler(manager *service.Manager, buffer *series.Buffer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.EndSession(""); err != nil {
			if errors.Is(err, service.ErrSessionInactive) {
				respondError(w, http.StatusConflict, err.Error(), logger)
				return
			}
			logger.Error("Failed to stop session: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to stop session", logger)
			return
		}
		respondJSON(w, http.StatusOK, sessionInfo(manager.Status(), manager, buffer), logger)
	}
}
