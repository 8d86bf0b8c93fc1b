// Package gamepad polls attached gamepads at a fixed interval and
// reports button and axis deltas. Only changed values are emitted so
// steady-state controllers produce no wire traffic.
package gamepad

import (
	"sync"
	"time"

	"github.com/maksgranko/selkies/pkg/protocol"
)

// MaxSlots is the number of gamepad slots scanned per poll.
const MaxSlots = 4

// State is one gamepad's sampled state. A nil entry in the provider's
// result means the slot is empty.
type State struct {
	ID      string
	Buttons []float64
	Axes    []float64
}

// Provider supplies the current state of all gamepad slots. The platform
// gamepad API is one implementation; tests use a scripted one.
type Provider interface {
	// Poll returns up to MaxSlots entries; nil entries are empty slots.
	Poll() []*State
}

// Config holds gamepad sampler configuration
type Config struct {
	// Poll interval
	Interval time.Duration
}

// DefaultConfig returns default gamepad sampler configuration
func DefaultConfig() Config {
	return Config{Interval: 16 * time.Millisecond}
}

// slot tracks the previously sampled values for one connected gamepad.
type slot struct {
	id      string
	buttons []float64
	// normalized axis bytes after dead-zone clamp
	axes []int
}

// Sampler polls the provider on a ticker and emits connect, disconnect,
// button and axis callbacks on change only.
type Sampler struct {
	mu       sync.Mutex
	config   Config
	provider Provider

	slots   [MaxSlots]*slot
	stopCh  chan struct{}
	running bool

	onConnect    func(index int, id string, numAxes, numButtons int)
	onDisconnect func(index int)
	onButton     func(index, button int, value float64)
	onAxis       func(index, axis, value int)
}

// NewSampler creates a sampler over the given provider.
func NewSampler(provider Provider, config Config) *Sampler {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Sampler{
		config:   config,
		provider: provider,
		stopCh:   make(chan struct{}),
	}
}

// SetOnConnect sets the gamepad attach callback
func (s *Sampler) SetOnConnect(fn func(index int, id string, numAxes, numButtons int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

// SetOnDisconnect sets the gamepad detach callback
func (s *Sampler) SetOnDisconnect(fn func(index int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// SetOnButton sets the changed-button callback
func (s *Sampler) SetOnButton(fn func(index, button int, value float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onButton = fn
}

// SetOnAxis sets the changed-axis callback; values are normalized bytes
func (s *Sampler) SetOnAxis(fn func(index, axis, value int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAxis = fn
}

// Start begins the polling loop.
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.pollLoop()
}

func (s *Sampler) pollLoop() {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample performs one poll over all slots, emitting deltas. Exposed so
// tests can drive the sampler without the ticker.
func (s *Sampler) Sample() {
	states := s.provider.Poll()

	for i := 0; i < MaxSlots; i++ {
		var state *State
		if i < len(states) {
			state = states[i]
		}

		s.mu.Lock()
		tracked := s.slots[i]
		s.mu.Unlock()

		switch {
		case state == nil && tracked == nil:
			continue
		case state == nil:
			s.mu.Lock()
			s.slots[i] = nil
			fn := s.onDisconnect
			s.mu.Unlock()
			if fn != nil {
				fn(i)
			}
		case tracked == nil:
			fresh := &slot{
				id:      state.ID,
				buttons: make([]float64, len(state.Buttons)),
				axes:    make([]int, len(state.Axes)),
			}
			copy(fresh.buttons, state.Buttons)
			for j, v := range state.Axes {
				fresh.axes[j] = protocol.NormalizeAxis(v)
			}
			s.mu.Lock()
			s.slots[i] = fresh
			fn := s.onConnect
			s.mu.Unlock()
			if fn != nil {
				fn(i, state.ID, len(state.Axes), len(state.Buttons))
			}
		default:
			s.diff(i, tracked, state)
		}
	}
}

// diff emits one callback per button or axis whose value changed since
// the previous sample.
func (s *Sampler) diff(index int, tracked *slot, state *State) {
	for j, v := range state.Buttons {
		if j < len(tracked.buttons) && tracked.buttons[j] == v {
			continue
		}
		if j >= len(tracked.buttons) {
			tracked.buttons = append(tracked.buttons, 0)
		}
		tracked.buttons[j] = v
		s.mu.Lock()
		fn := s.onButton
		s.mu.Unlock()
		if fn != nil {
			fn(index, j, v)
		}
	}

	for j, v := range state.Axes {
		normalized := protocol.NormalizeAxis(v)
		if j < len(tracked.axes) && tracked.axes[j] == normalized {
			continue
		}
		if j >= len(tracked.axes) {
			tracked.axes = append(tracked.axes, 0)
		}
		tracked.axes[j] = normalized
		s.mu.Lock()
		fn := s.onAxis
		s.mu.Unlock()
		if fn != nil {
			fn(index, j, normalized)
		}
	}
}

// Stop halts the polling loop and drops tracked state. Idempotent.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.mu.Unlock()

	close(s.stopCh)
}
