package dto

// Message types pushed to viewers.
const (
	TypeFrame  = "frame"
	TypeSeries = "series"
)

// SeriesMessage carries the current rolling series snapshot.
type SeriesMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId"`
	Window    int      `json:"window"`
	Samples   []Sample `json:"samples"`
}
