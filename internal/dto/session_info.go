package dto

import (
	"time"

	"github.com/goccy/go-json"
)

// SessionInfo is the payload of the session status endpoint.
type SessionInfo struct {
	Active    bool      `json:"active"`
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Samples   int       `json:"samples"`
	FPS       float64   `json:"fps"`
}

// MarshalJSON renders StartedAt as RFC 3339 and omits it for sessions that never started.
func (s SessionInfo) MarshalJSON() ([]byte, error) {
	type Alias SessionInfo
	startedAt := ""
	if !s.StartedAt.IsZero() {
		startedAt = s.StartedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(&struct {
		StartedAt string `json:"startedAt,omitempty"`
		Alias
	}{
		StartedAt: startedAt,
		Alias:     (Alias)(s),
	})
}
