package pipeline

import (
	"context"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

// Crop is the number of pixels removed from each edge of the stream
type Crop struct {
	Top    int
	Left   int
	Right  int
	Bottom int
}

// IsZero reports whether nothing is cropped
func (c Crop) IsZero() bool {
	return c == Crop{}
}

// ComputeCrop maps a selection inside the full captured area onto stream
// pixels. Every edge is rounded to an even number and clamped to the
// stream dimension.
func ComputeCrop(ctx context.Context, data models.CropData, streamWidth, streamHeight int) Crop {
	full := data.FullRect
	if full.Width <= 0 || full.Height <= 0 {
		return Crop{}
	}

	scaleH := float64(streamWidth) / full.Width
	scaleV := float64(streamHeight) / full.Height
	if scaleH != scaleV {
		logger.Warnf(ctx, "horizontal and vertical scale factors differ: %v != %v", scaleH, scaleV)
	}

	sel := models.Rect{
		X:      (data.SelectionRect.X - full.X) * scaleH,
		Y:      (data.SelectionRect.Y - full.Y) * scaleV,
		Width:  data.SelectionRect.Width * scaleH,
		Height: data.SelectionRect.Height * scaleV,
	}

	rawTop := sel.Y
	rawLeft := sel.X
	rawRight := float64(streamWidth) - (sel.Width + sel.X)
	rawBottom := float64(streamHeight) - (sel.Height + sel.Y)
	logger.Debugf(ctx, "raw crop: top=%v left=%v right=%v bottom=%v", rawTop, rawLeft, rawRight, rawBottom)

	return Crop{
		Top:    clamp(roundToEvenFloat(rawTop), 0, streamHeight),
		Left:   clamp(roundToEvenFloat(rawLeft), 0, streamWidth),
		Right:  clamp(roundToEvenFloat(rawRight), 0, streamWidth),
		Bottom: clamp(roundToEvenFloat(rawBottom), 0, streamHeight),
	}
}

// StreamSize returns the size of the video before cropping: the single
// stream size, or the side by side composition of all streams
func StreamSize(streams []models.Stream) (int, int, bool) {
	var width, height int
	for _, s := range streams {
		if !s.HasSize() {
			return 0, 0, false
		}
		width += int(s.Size.Width)
		height = max(height, int(s.Size.Height))
	}
	return width, height, len(streams) > 0
}

func roundToEven(n int) int {
	return n / 2 * 2
}

func roundToEvenFloat(n float64) int {
	return int(math.Round(n/2)) * 2
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
