package dto

// FrameMessage forwards one camera frame (base64 JPEG) to viewers unchanged.
type FrameMessage struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}
