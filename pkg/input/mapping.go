// Package input captures local pointer, keyboard, touch and gamepad
// events, converts device coordinates into the remote framebuffer's
// coordinate space and emits wire-protocol messages through the peer
// session's send hook.
package input

import "math"

// FrameMapping maps client pixels to remote-frame pixels. It is
// recomputed on resize and layout changes; all outgoing absolute pointer
// coordinates derive exclusively from this mapping.
type FrameMapping struct {
	// Per-axis client-to-frame scale factors
	ScaleX float64
	ScaleY float64
	// Centering offsets of the rendered frame inside the element
	OffsetX float64
	OffsetY float64
	// Window scroll offsets
	ScrollX float64
	ScrollY float64
	// Remote frame dimensions in pixels
	FrameWidth  int
	FrameHeight int
}

// ComputeMapping derives the mapping from the frame's intrinsic size and
// the element's layout size. The frame is letterboxed inside the element
// preserving aspect ratio; the offsets locate the rendered area.
func ComputeMapping(frameWidth, frameHeight, layoutWidth, layoutHeight int, scrollX, scrollY float64) FrameMapping {
	m := FrameMapping{
		ScaleX:      1,
		ScaleY:      1,
		ScrollX:     scrollX,
		ScrollY:     scrollY,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
	}
	if frameWidth <= 0 || frameHeight <= 0 || layoutWidth <= 0 || layoutHeight <= 0 {
		return m
	}

	frameRatio := float64(frameWidth) / float64(frameHeight)
	layoutRatio := float64(layoutWidth) / float64(layoutHeight)

	renderWidth := float64(layoutWidth)
	renderHeight := float64(layoutHeight)
	if layoutRatio > frameRatio {
		// pillarboxed: full height, centered horizontally
		renderWidth = renderHeight * frameRatio
		m.OffsetX = (float64(layoutWidth) - renderWidth) / 2
	} else if layoutRatio < frameRatio {
		// letterboxed: full width, centered vertically
		renderHeight = renderWidth / frameRatio
		m.OffsetY = (float64(layoutHeight) - renderHeight) / 2
	}

	m.ScaleX = float64(frameWidth) / renderWidth
	m.ScaleY = float64(frameHeight) / renderHeight
	return m
}

// ClientToFrame converts a client-space position into frame coordinates.
// Results at or past the right/bottom edge clamp to the frame dimension
// and negative results clamp to zero.
func (m FrameMapping) ClientToFrame(clientX, clientY float64) (int, int) {
	x := (clientX + m.ScrollX - m.OffsetX) * m.ScaleX
	y := (clientY + m.ScrollY - m.OffsetY) * m.ScaleY
	return clampCoord(x, m.FrameWidth), clampCoord(y, m.FrameHeight)
}

func clampCoord(v float64, limit int) int {
	if v < 0 {
		return 0
	}
	rounded := int(math.Round(v))
	if rounded >= limit-1 {
		return limit
	}
	return rounded
}
