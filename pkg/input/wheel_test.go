package input

import (
	"testing"
	"time"
)

func TestWheelMouseClassification(t *testing.T) {
	w := NewWheelFilter()
	now := time.Now()

	// discrete wheel clicks: runs of equal large deltas
	forwarded := 0
	for _, d := range []float64{90, 90, 90, 90} {
		if _, ok := w.Sample(d, now); ok {
			forwarded++
		}
		now = now.Add(10 * time.Millisecond)
	}

	if !w.IsMouse() {
		t.Error("Expected mouse classification for [90,90,90,90]")
	}
	// once classified mouse, every tick is forwarded despite the short gaps
	if forwarded < 3 {
		t.Errorf("Expected mouse ticks forwarded without debounce, got %d of 4", forwarded)
	}
}

func TestWheelTrackpadClassification(t *testing.T) {
	w := NewWheelFilter()
	now := time.Now()

	forwarded := 0
	for _, d := range []float64{3, 5, 2, 4} {
		if _, ok := w.Sample(d, now); ok {
			forwarded++
		}
		now = now.Add(10 * time.Millisecond)
	}

	if w.IsMouse() {
		t.Error("Expected trackpad classification for [3,5,2,4]")
	}
	// 10ms apart is inside the 100ms debounce, only the first tick passes
	if forwarded != 1 {
		t.Errorf("Expected 1 forwarded trackpad tick, got %d", forwarded)
	}
}

func TestWheelTrackpadDebounceExpiry(t *testing.T) {
	w := NewWheelFilter()
	now := time.Now()

	if _, ok := w.Sample(3, now); !ok {
		t.Fatal("First tick should be forwarded")
	}
	if _, ok := w.Sample(4, now.Add(50*time.Millisecond)); ok {
		t.Error("Tick inside debounce window should be dropped")
	}
	if _, ok := w.Sample(5, now.Add(200*time.Millisecond)); !ok {
		t.Error("Tick after debounce window should be forwarded")
	}
}

func TestWheelMagnitudeNormalization(t *testing.T) {
	w := NewWheelFilter()
	now := time.Now()

	// first sample defines the unit
	mag, ok := w.Sample(3, now)
	if !ok || mag != 1 {
		t.Errorf("Expected magnitude 1, got %d (ok=%t)", mag, ok)
	}

	mag, ok = w.Sample(9, now.Add(200*time.Millisecond))
	if !ok || mag != 3 {
		t.Errorf("Expected magnitude 3, got %d (ok=%t)", mag, ok)
	}

	// magnitude is capped
	mag, ok = w.Sample(3000, now.Add(400*time.Millisecond))
	if !ok || mag != 10 {
		t.Errorf("Expected capped magnitude 10, got %d (ok=%t)", mag, ok)
	}
}

func TestWheelZeroDelta(t *testing.T) {
	w := NewWheelFilter()
	if _, ok := w.Sample(0, time.Now()); ok {
		t.Error("Zero delta should not be forwarded")
	}
}

func TestWheelReset(t *testing.T) {
	w := NewWheelFilter()
	now := time.Now()
	w.Sample(90, now)
	w.Sample(90, now)
	if !w.IsMouse() {
		t.Fatal("Expected mouse before reset")
	}
	w.Reset()
	if w.IsMouse() {
		t.Error("Expected classification cleared after reset")
	}
}
