package sampler

// Means holds per-channel arithmetic means of one frame.
type Means struct {
	R float64
	G float64
	B float64
}

// Frame is a single captured video frame.
// ChannelMeans returns false when the frame carries no pixels.
type Frame interface {
	ChannelMeans() (Means, bool)
}

// RGBFrame is an in-memory frame with interleaved 8-bit R,G,B pixels.
type RGBFrame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewUniformFrame returns a width x height frame where every pixel is (r,g,b).
func NewUniformFrame(width, height int, r, g, b uint8) *RGBFrame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	pix := make([]uint8, width*height*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
	}
	return &RGBFrame{Width: width, Height: height, Pix: pix}
}

// ChannelMeans averages each channel over all pixels of the frame.
func (f *RGBFrame) ChannelMeans() (Means, bool) {
	if f == nil {
		return Means{}, false
	}
	pixels := f.Width * f.Height
	if pixels <= 0 || len(f.Pix) < pixels*3 {
		return Means{}, false
	}

	var r, g, b uint64
	for i := 0; i < pixels*3; i += 3 {
		r += uint64(f.Pix[i])
		g += uint64(f.Pix[i+1])
		b += uint64(f.Pix[i+2])
	}

	n := float64(pixels)
	return Means{R: float64(r) / n, G: float64(g) / n, B: float64(b) / n}, true
}
