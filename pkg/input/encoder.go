package input

import (
	"math"
	"sync"
	"time"

	"github.com/maksgranko/selkies/pkg/protocol"
	"github.com/maksgranko/selkies/pkg/utils"
)

// Sender is the outbound hook the encoder emits wire messages through.
// The peer session satisfies it.
type Sender interface {
	SendMessage(msg string) error
}

// KeyAction classifies how a keyboard event was handled.
type KeyAction int

const (
	// KeyActionForwarded means the key was encoded and sent to the remote
	KeyActionForwarded KeyAction = iota
	// KeyActionIgnored means the key has no keysym mapping
	KeyActionIgnored
	// KeyActionToggleMenu is the intercepted menu hotkey, never forwarded
	KeyActionToggleMenu
	// KeyActionToggleFullscreen is the intercepted fullscreen hotkey
	KeyActionToggleFullscreen
	// KeyActionSuppressed is a browser-reserved combination dropped to
	// avoid interfering with the remote session
	KeyActionSuppressed
)

const (
	scrollDownButton = 3
	scrollUpButton   = 4
)

// Config holds input encoder configuration
type Config struct {
	// Resolution difference above which relative motion is scaled
	CursorScaleTolerance int
	// Quiet period after the last resize event before resize-end fires
	ResizeSettleDelay time.Duration
}

// DefaultConfig returns default input encoder configuration
func DefaultConfig() Config {
	return Config{
		CursorScaleTolerance: 10,
		ResizeSettleDelay:    500 * time.Millisecond,
	}
}

// Encoder converts local input events into wire messages. It maintains
// the accumulated button mask, the last absolute pointer position, the
// pointer-lock mode and the window-to-frame mapping.
type Encoder struct {
	mu     sync.Mutex
	config Config
	sender Sender
	logger *utils.Logger

	mapping     FrameMapping
	buttonMask  uint8
	lastX       int
	lastY       int
	pointerLock bool
	cursorScale float64

	ctrlDown  bool
	shiftDown bool

	wheel       *WheelFilter
	resizeTimer *utils.Timer
	lastResizeW int
	lastResizeH int

	onResizeEnd          func(width, height int)
	onPointerLockRequest func()
}

// NewEncoder creates an input encoder emitting through the given sender.
func NewEncoder(sender Sender, config Config, logger *utils.Logger) *Encoder {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Encoder{
		config:      config,
		sender:      sender,
		logger:      logger,
		cursorScale: 1,
		wheel:       NewWheelFilter(),
		resizeTimer: utils.NewTimer(),
	}
}

// SetOnResizeEnd sets the callback fired once a resize burst settles.
func (e *Encoder) SetOnResizeEnd(fn func(width, height int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResizeEnd = fn
}

// SetOnPointerLockRequest sets the callback fired when the chorded
// pointer-lock hotkey is pressed.
func (e *Encoder) SetOnPointerLockRequest(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPointerLockRequest = fn
}

// SetMapping installs a freshly computed window-to-frame mapping.
func (e *Encoder) SetMapping(m FrameMapping) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mapping = m
}

// Mapping returns the current window-to-frame mapping.
func (e *Encoder) Mapping() FrameMapping {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mapping
}

// SetPointerLock switches between absolute and relative pointer mode.
func (e *Encoder) SetPointerLock(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointerLock = active
}

// PointerLocked reports whether relative pointer mode is active.
func (e *Encoder) PointerLocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pointerLock
}

// UpdateCursorScale recomputes the relative-motion scale factor from the
// remote and local horizontal resolutions. Within the tolerance the scale
// stays 1 so matched setups send raw deltas.
func (e *Encoder) UpdateCursorScale(remoteWidth, localWidth int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if localWidth <= 0 || remoteWidth <= 0 {
		e.cursorScale = 1
		return
	}
	if abs(remoteWidth-localWidth) <= e.config.CursorScaleTolerance {
		e.cursorScale = 1
		return
	}
	e.cursorScale = float64(remoteWidth) / float64(localWidth)
}

// CursorScale returns the current relative-motion scale factor.
func (e *Encoder) CursorScale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursorScale
}

// HandlePointerMove encodes an absolute pointer move in client space.
// Ignored while pointer lock is active.
func (e *Encoder) HandlePointerMove(clientX, clientY float64) {
	e.mu.Lock()
	if e.pointerLock {
		e.mu.Unlock()
		return
	}
	x, y := e.mapping.ClientToFrame(clientX, clientY)
	e.lastX, e.lastY = x, y
	msg := protocol.EncodePointerAbsolute(x, y, e.buttonMask, 0)
	e.mu.Unlock()

	e.send(msg)
}

// HandleRelativeMove encodes pointer-locked relative motion, pre-scaled
// by the cursor scale factor. Ignored while pointer lock is inactive.
func (e *Encoder) HandleRelativeMove(movementX, movementY float64) {
	e.mu.Lock()
	if !e.pointerLock {
		e.mu.Unlock()
		return
	}
	dx := int(math.Round(movementX * e.cursorScale))
	dy := int(math.Round(movementY * e.cursorScale))
	msg := protocol.EncodePointerRelative(dx, dy, e.buttonMask, 0)
	e.mu.Unlock()

	e.send(msg)
}

// HandleButton encodes a pointer button transition at the given client
// position. A primary-button press chorded with Control and Shift is
// intercepted as the explicit pointer-lock request and not forwarded.
func (e *Encoder) HandleButton(button int, pressed bool, clientX, clientY float64) {
	e.mu.Lock()
	if button == 0 && pressed && e.ctrlDown && e.shiftDown && !e.pointerLock {
		fn := e.onPointerLockRequest
		e.mu.Unlock()
		if fn != nil {
			fn()
		}
		return
	}

	bit := uint8(1) << uint(button)
	if pressed {
		e.buttonMask |= bit
	} else {
		e.buttonMask &^= bit
	}
	msg := e.pointerMessageLocked(clientX, clientY, 0)
	e.mu.Unlock()

	e.send(msg)
}

// HandleWheel routes one raw wheel delta through the trackpad/mouse
// discrimination filter and, when forwarded, emits a synthetic scroll
// button press-then-release pair carrying the magnitude.
func (e *Encoder) HandleWheel(deltaY float64, clientX, clientY float64) {
	magnitude, ok := e.wheel.Sample(deltaY, time.Now())
	if !ok {
		return
	}
	button := scrollUpButton
	if deltaY > 0 {
		button = scrollDownButton
	}
	bit := uint8(1) << uint(button)

	e.mu.Lock()
	e.buttonMask |= bit
	press := e.pointerMessageLocked(clientX, clientY, magnitude)
	e.buttonMask &^= bit
	release := e.pointerMessageLocked(clientX, clientY, 0)
	e.mu.Unlock()

	e.send(press)
	e.send(release)
}

// HandleTouch encodes a touch transition. The first changed touch drives
// the absolute-position path with a synthetic primary button held for
// the duration of the contact.
func (e *Encoder) HandleTouch(clientX, clientY float64, active bool) {
	e.mu.Lock()
	if active {
		e.buttonMask |= 1
	} else {
		e.buttonMask &^= 1
	}
	x, y := e.mapping.ClientToFrame(clientX, clientY)
	e.lastX, e.lastY = x, y
	msg := protocol.EncodePointerAbsolute(x, y, e.buttonMask, 0)
	e.mu.Unlock()

	e.send(msg)
}

// HandleKey classifies and encodes one keyboard transition. Intercepted
// hotkeys and browser-reserved combinations are never forwarded; the
// returned action tells the caller what to do locally.
func (e *Encoder) HandleKey(key string, pressed bool) KeyAction {
	e.mu.Lock()
	switch key {
	case "Control":
		e.ctrlDown = pressed
	case "Shift":
		e.shiftDown = pressed
	}
	ctrl, shift := e.ctrlDown, e.shiftDown
	e.mu.Unlock()

	if pressed && ctrl && shift {
		switch key {
		case "m", "M":
			return KeyActionToggleMenu
		case "f", "F":
			return KeyActionToggleFullscreen
		case "r", "R", "i", "I":
			// hard refresh and dev tools stay local
			return KeyActionSuppressed
		}
	}
	if key == "F11" {
		return KeyActionSuppressed
	}

	sym, ok := KeysymFor(key)
	if !ok {
		return KeyActionIgnored
	}
	if pressed {
		e.send(protocol.EncodeKeyDown(sym))
	} else {
		e.send(protocol.EncodeKeyUp(sym))
	}
	return KeyActionForwarded
}

// ResetKeys releases all keys on the remote and clears modifier tracking.
func (e *Encoder) ResetKeys() {
	e.mu.Lock()
	e.ctrlDown = false
	e.shiftDown = false
	e.mu.Unlock()
	e.send(protocol.EncodeKeyReset())
}

// SendPointerVisible tells the remote whether to render its own cursor.
func (e *Encoder) SendPointerVisible(visible bool) {
	e.send(protocol.EncodePointerVisible(visible))
}

// ButtonMask returns the accumulated pointer button bitmask.
func (e *Encoder) ButtonMask() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buttonMask
}

// HandleResize records one resize event and re-arms the settle detector.
// The resize-end callback fires only after the configured quiet period
// with no newer event; each event supersedes the pending timer.
func (e *Encoder) HandleResize(width, height int) {
	e.mu.Lock()
	e.lastResizeW = width
	e.lastResizeH = height
	delay := e.config.ResizeSettleDelay
	e.mu.Unlock()

	e.resizeTimer.Arm(delay, func() {
		e.mu.Lock()
		fn := e.onResizeEnd
		w, h := e.lastResizeW, e.lastResizeH
		e.mu.Unlock()
		if fn != nil {
			fn(w, h)
		}
	})
}

// GamepadConnected forwards a gamepad attach event.
func (e *Encoder) GamepadConnected(index int, id string, numAxes, numButtons int) {
	e.send(protocol.EncodeJoystickConnect(index, id, numAxes, numButtons))
}

// GamepadDisconnected forwards a gamepad detach event.
func (e *Encoder) GamepadDisconnected(index int) {
	e.send(protocol.EncodeJoystickDisconnect(index))
}

// GamepadButton forwards one changed button sample.
func (e *Encoder) GamepadButton(index, button int, value float64) {
	e.send(protocol.EncodeJoystickButton(index, button, value))
}

// GamepadAxis forwards one changed, already-normalized axis sample.
func (e *Encoder) GamepadAxis(index, axis, value int) {
	e.send(protocol.EncodeJoystickAxis(index, axis, value))
}

// Close cancels the settle detector.
func (e *Encoder) Close() {
	e.resizeTimer.Cancel()
}

// pointerMessageLocked builds the position message for the current mode.
// Caller holds the lock.
func (e *Encoder) pointerMessageLocked(clientX, clientY float64, magnitude int) string {
	if e.pointerLock {
		return protocol.EncodePointerRelative(0, 0, e.buttonMask, magnitude)
	}
	x, y := e.mapping.ClientToFrame(clientX, clientY)
	e.lastX, e.lastY = x, y
	return protocol.EncodePointerAbsolute(x, y, e.buttonMask, magnitude)
}

func (e *Encoder) send(msg string) {
	if err := e.sender.SendMessage(msg); err != nil {
		e.logger.Debug("input message dropped: %v", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
