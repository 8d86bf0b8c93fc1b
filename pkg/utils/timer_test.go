package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFires(t *testing.T) {
	timer := NewTimer()
	fired := make(chan struct{})

	timer.Arm(10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Timer did not fire")
	}
	if timer.Pending() {
		t.Error("Timer should not be pending after firing")
	}
}

func TestTimerCancel(t *testing.T) {
	timer := NewTimer()
	var fires int32

	timer.Arm(20*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})
	timer.Cancel()

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&fires) != 0 {
		t.Error("Cancelled timer should not fire")
	}
	if timer.Pending() {
		t.Error("Cancelled timer should not be pending")
	}
}

func TestTimerRearmSupersedes(t *testing.T) {
	timer := NewTimer()
	var first, second int32

	timer.Arm(20*time.Millisecond, func() {
		atomic.AddInt32(&first, 1)
	})
	// re-arming before the fire replaces the pending callback
	timer.Arm(20*time.Millisecond, func() {
		atomic.AddInt32(&second, 1)
	})

	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&first) != 0 {
		t.Error("Superseded callback should not fire")
	}
	if atomic.LoadInt32(&second) != 1 {
		t.Errorf("Expected exactly 1 fire, got %d", second)
	}
}

func TestTimerRepeatedRearm(t *testing.T) {
	timer := NewTimer()
	fired := make(chan struct{}, 1)

	for i := 0; i < 5; i++ {
		timer.Arm(30*time.Millisecond, func() {
			fired <- struct{}{}
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Timer did not fire after final re-arm")
	}
	select {
	case <-fired:
		t.Error("Timer fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}
