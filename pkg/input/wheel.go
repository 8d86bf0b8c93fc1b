package input

import (
	"math"
	"sync"
	"time"
)

// WheelFilter discriminates mouse wheels from trackpads and rate-limits
// trackpad scroll. A mouse wheel produces runs of equal, large deltas
// (discrete clicks); a trackpad produces a stream of small varying
// deltas. Mouse input bypasses the debounce so every click is forwarded.
type WheelFilter struct {
	mu sync.Mutex

	// Last absolute delta samples, newest last
	window []float64
	// Smallest nonzero delta observed so far, the magnitude unit
	smallest float64
	mouse    bool
	lastTick time.Time

	windowSize   int
	threshold    float64
	maxMagnitude int
	debounce     time.Duration
}

// NewWheelFilter creates a filter with the stock discrimination tuning:
// a 4-sample window, an 80-delta mouse threshold, a magnitude cap of 10
// and a 100ms trackpad debounce.
func NewWheelFilter() *WheelFilter {
	return &WheelFilter{
		windowSize:   4,
		threshold:    80,
		maxMagnitude: 10,
		debounce:     100 * time.Millisecond,
	}
}

// Sample feeds one raw wheel delta and reports whether a tick should be
// forwarded and with what normalized magnitude. Trackpad ticks arriving
// within the debounce window of the previous forwarded tick are dropped.
func (w *WheelFilter) Sample(delta float64, now time.Time) (magnitude int, ok bool) {
	abs := math.Abs(delta)
	if abs == 0 {
		return 0, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.window = append(w.window, abs)
	if len(w.window) > w.windowSize {
		w.window = w.window[1:]
	}
	w.mouse = w.classify()

	if w.smallest == 0 || abs < w.smallest {
		w.smallest = abs
	}

	if !w.mouse && now.Sub(w.lastTick) < w.debounce {
		return 0, false
	}
	w.lastTick = now

	magnitude = int(math.Round(abs / w.smallest))
	if magnitude < 1 {
		magnitude = 1
	}
	if magnitude > w.maxMagnitude {
		magnitude = w.maxMagnitude
	}
	return magnitude, true
}

// classify reports mouse when the window holds at least two consecutive
// equal samples above the threshold. Caller holds the lock.
func (w *WheelFilter) classify() bool {
	for i := 1; i < len(w.window); i++ {
		if w.window[i] == w.window[i-1] && w.window[i] > w.threshold {
			return true
		}
	}
	return false
}

// IsMouse reports the current source classification.
func (w *WheelFilter) IsMouse() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mouse
}

// Reset drops the sample window and classification.
func (w *WheelFilter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.window = w.window[:0]
	w.smallest = 0
	w.mouse = false
	w.lastTick = time.Time{}
}
