package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"rgbmonitor/internal/sampler"
)

// ErrEmptyFrame is returned when a payload decodes to an image without pixels.
var ErrEmptyFrame = errors.New("decoded image is empty")

// Frame wraps a decoded BGR Mat. It must be closed after use.
type Frame struct {
	mat gocv.Mat
}

// ChannelMeans averages each channel over all pixels of the frame.
func (f *Frame) ChannelMeans() (sampler.Means, bool) {
	if f.mat.Empty() || f.mat.Channels() < 3 {
		return sampler.Means{}, false
	}
	// OpenCV keeps channels in BGR order
	mean := f.mat.Mean()
	return sampler.Means{R: mean.Val3, G: mean.Val2, B: mean.Val1}, true
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	return f.mat.Close()
}

// Decoder turns encoded camera payloads (JPEG/PNG) into frames.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes an encoded image into a colour Frame.
func (d *Decoder) Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &Frame{mat: mat}, nil
}
