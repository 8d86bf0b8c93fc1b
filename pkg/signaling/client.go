// Package signaling implements the client side of the WebSocket
// signalling protocol: the HELLO handshake, the SDP/ICE envelope exchange
// and the reconnect state machine with retry cap and flap suppression.
package signaling

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/maksgranko/selkies/pkg/protocol"
	"github.com/maksgranko/selkies/pkg/utils"
)

// State is the connection phase of a signalling client
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config holds signalling client configuration. The windows and thresholds
// are policy, not protocol: they suppress reconnect storms on transient
// socket noise and they are tunable per deployment.
type Config struct {
	// Signalling endpoint, e.g. wss://host/app/signalling/
	URL string
	// Peer identifier sent in the HELLO handshake
	PeerID string
	// Client output resolution as "WxH", carried in the handshake
	Resolution string
	// Device pixel ratio, carried in the handshake
	Scale float64
	// Delay before a scheduled reconnect attempt
	RetryDelay time.Duration
	// Qualifying errors beyond this count signal the fatal condition
	MaxRetries int
	// Errors within this window after a successful connect are treated as
	// transient while the socket is still open
	FlapWindow time.Duration
	// A protocol-error close within this window after a successful connect
	// is treated as a reconnect artifact, not a disconnect
	CloseGraceWindow time.Duration
	// WebSocket opening handshake timeout
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the tuned default policy for a signalling endpoint.
func DefaultConfig(url, peerID string) Config {
	return Config{
		URL:              url,
		PeerID:           peerID,
		Resolution:       "1920x1080",
		Scale:            1.0,
		RetryDelay:       3 * time.Second,
		MaxRetries:       3,
		FlapWindow:       10 * time.Second,
		CloseGraceWindow: 5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Client owns one WebSocket connection to the signalling server. All event
// callbacks are optional; an unset callback drops the notification so the
// client runs headless under test.
type Client struct {
	mu     sync.Mutex
	config Config
	logger *utils.Logger

	conn  *websocket.Conn
	state State

	// gen increments on every dial and on disconnect so pump events from a
	// superseded socket are ignored
	gen uint64

	retryCount  int
	connectedAt time.Time
	// wasConnected tracks whether the current socket completed a handshake;
	// cleared when a close is suppressed so the next error drives retry
	wasConnected bool
	fatalFired   bool
	closed       bool

	retryTimer *utils.Timer
	writeMu    sync.Mutex

	onStatus     func(string)
	onError      func(error)
	onDebug      func(string)
	onSDP        func(webrtc.SessionDescription)
	onICE        func(webrtc.ICECandidateInit)
	onDisconnect func()
	onFatal      func()
}

// NewClient creates a signalling client. Call Connect to open the socket.
func NewClient(config Config, logger *utils.Logger) *Client {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Client{
		config:     config,
		logger:     logger,
		state:      StateDisconnected,
		retryTimer: utils.NewTimer(),
	}
}

// SetOnStatus sets the status text callback
func (c *Client) SetOnStatus(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// SetOnError sets the error callback
func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// SetOnDebug sets the debug text callback
func (c *Client) SetOnDebug(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDebug = fn
}

// SetOnSDP sets the callback for remote session descriptions
func (c *Client) SetOnSDP(fn func(webrtc.SessionDescription)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSDP = fn
}

// SetOnICE sets the callback for remote ICE candidates
func (c *Client) SetOnICE(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onICE = fn
}

// SetOnDisconnect sets the callback for an unexpected close of a
// previously healthy connection
func (c *Client) SetOnDisconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// SetOnFatal sets the callback fired once when the retry cap is
// exhausted; the owning layer is expected to reload the whole client
func (c *Client) SetOnFatal(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFatal = fn
}

// SetResolution updates the resolution and scale carried in the next
// HELLO handshake.
func (c *Client) SetResolution(resolution string, scale float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Resolution = resolution
	c.config.Scale = scale
}

// State returns the current connection phase.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryCount returns the current qualifying-error count.
func (c *Client) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// Connect opens the signalling socket. A call while the socket is already
// connecting or connected is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		c.emitDebug("connect ignored, socket already " + c.State().String())
		return nil
	}
	if c.conn != nil {
		// stale socket from an earlier generation
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	url := c.config.URL
	c.mu.Unlock()

	c.emitStatus("Connecting to server.")
	go c.dial(gen, url)
	return nil
}

// dial performs the opening handshake off the caller's goroutine.
func (c *Client) dial(gen uint64, url string) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)

	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.handleTransportError(fmt.Errorf("signalling dial: %w", err))
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.retryCount = 0
	c.connectedAt = time.Now()
	c.wasConnected = true
	peerID := c.config.PeerID
	res := c.config.Resolution
	scale := c.config.Scale
	c.mu.Unlock()

	meta, _ := json.Marshal(helloPayload{Res: res, Scale: scale})
	hello := fmt.Sprintf("HELLO %s %s", peerID, protocol.StringToBase64(string(meta)))
	if err := c.writeText(conn, []byte(hello)); err != nil {
		// the socket died before the read pump existed; tear it down here so
		// the retry machinery sees a down socket instead of a healthy link
		conn.Close()
		c.mu.Lock()
		if c.gen == gen {
			c.conn = nil
			c.state = StateDisconnected
			c.wasConnected = false
		}
		c.mu.Unlock()
		c.handleTransportError(fmt.Errorf("send handshake: %w", err))
		return
	}

	go c.readPump(gen, conn)
}

// readPump drains the socket until it dies.
func (c *Client) readPump(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage routes one inbound signalling frame.
func (c *Client) handleMessage(data []byte) {
	msg := string(data)

	if msg == "HELLO" {
		c.emitStatus("Registered with server.")
		return
	}
	if strings.HasPrefix(msg, "ERROR") {
		c.emitError(fmt.Errorf("%w: %s", ErrServerError, msg))
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.emitError(fmt.Errorf("%w: %v", ErrInvalidMessage, err))
		return
	}
	switch {
	case env.SDP != nil:
		c.emitDebug("received remote SDP " + env.SDP.Type.String())
		c.emitSDP(*env.SDP)
	case env.ICE != nil:
		c.emitDebug("received remote ICE candidate")
		c.emitICE(*env.ICE)
	default:
		c.emitError(fmt.Errorf("%w: %s", ErrInvalidMessage, msg))
	}
}

// handleReadError classifies the death of the socket. A close frame drives
// the disconnect-suppression rules; anything else is transport noise fed
// into the retry machinery.
func (c *Client) handleReadError(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		return
	}
	wasState := c.state
	wasConnected := c.wasConnected
	connectedAt := c.connectedAt
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if closeErr, ok := err.(*websocket.CloseError); ok {
		c.handleClose(closeErr.Code, wasState, wasConnected, connectedAt)
		return
	}
	if wasState == StateConnecting {
		// handshake noise, the dial path owns retries
		c.emitDebug("ignoring socket error during handshake")
		return
	}
	c.handleTransportError(fmt.Errorf("signalling read: %w", err))
}

// handleClose applies the close-code suppression rules.
func (c *Client) handleClose(code int, wasState State, wasConnected bool, connectedAt time.Time) {
	switch {
	case wasState == StateConnecting:
		// part of a failed handshake, not a disconnect of a session
		c.emitDebug("ignoring close during handshake")
	case code == websocket.CloseNormalClosure:
		c.emitDebug("socket closed normally")
	case code == websocket.CloseProtocolError && wasConnected &&
		time.Since(connectedAt) < c.config.CloseGraceWindow:
		// reconnect-in-progress artifact; clear the connected flag so the
		// next error is allowed to drive retry
		c.mu.Lock()
		c.wasConnected = false
		c.mu.Unlock()
		c.emitDebug("suppressing protocol-error close shortly after connect")
	case wasConnected:
		c.emitStatus("Connection to server lost.")
		c.emitDisconnect()
	default:
		c.emitDebug(fmt.Sprintf("ignoring close with code %d on unestablished session", code))
	}
}

// handleTransportError counts qualifying socket errors and schedules a
// retry or, past the cap, signals the fatal condition exactly once.
func (c *Client) handleTransportError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// A spurious error on a link that connected recently and is still open
	// is treated as self-healing noise: reset the counter instead of
	// escalating, otherwise ordinary renegotiation hiccups cause storms.
	if c.conn != nil && c.state == StateConnected &&
		time.Since(c.connectedAt) < c.config.FlapWindow {
		c.retryCount = 0
		c.mu.Unlock()
		c.emitDebug("transient socket error on healthy link, suppressed")
		return
	}

	c.retryCount++
	count := c.retryCount
	socketDown := c.conn == nil
	fatal := count > c.config.MaxRetries && !c.fatalFired
	if fatal {
		c.fatalFired = true
	}
	c.mu.Unlock()

	c.emitError(err)

	if fatal {
		c.emitStatus("Signalling connection failed, giving up.")
		c.emitError(fmt.Errorf("%w after %d attempts", ErrRetriesExceeded, count))
		c.emitFatal()
		return
	}
	if socketDown {
		c.scheduleRetry()
	}
}

// scheduleRetry arms the reconnect timer; re-arming supersedes a pending
// attempt. The fire re-validates state since the condition that triggered
// scheduling may no longer hold.
func (c *Client) scheduleRetry() {
	delay := c.config.RetryDelay
	c.retryTimer.Arm(delay, func() {
		c.mu.Lock()
		if c.closed || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.emitDebug("retrying signalling connection")
		c.Connect()
	})
}

// SendSDP relays a local session description. The send is dropped when the
// socket is not open; the caller is never blocked on signalling state.
func (c *Client) SendSDP(desc webrtc.SessionDescription) error {
	data, err := json.Marshal(Envelope{SDP: &desc})
	if err != nil {
		return fmt.Errorf("marshal sdp: %w", err)
	}
	return c.sendEnvelope(data, "sdp")
}

// SendICE relays a local ICE candidate.
func (c *Client) SendICE(candidate webrtc.ICECandidateInit) error {
	data, err := json.Marshal(Envelope{ICE: &candidate})
	if err != nil {
		return fmt.Errorf("marshal ice: %w", err)
	}
	return c.sendEnvelope(data, "ice")
}

func (c *Client) sendEnvelope(data []byte, kind string) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateConnected
	c.mu.Unlock()

	if !open || conn == nil {
		c.emitDebug("dropping " + kind + ", socket not open")
		return nil
	}
	if err := c.writeText(conn, data); err != nil {
		c.handleTransportError(fmt.Errorf("send %s: %w", kind, err))
		return err
	}
	return nil
}

// writeText serializes writers on the shared socket.
func (c *Client) writeText(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Disconnect closes the socket with the normal-closure code if it is open
// or connecting; otherwise it is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.retryTimer.Cancel()
	conn := c.conn
	active := c.state != StateDisconnected
	c.conn = nil
	c.state = StateDisconnected
	c.wasConnected = false
	c.gen++
	c.mu.Unlock()

	if conn != nil && active {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage, msg)
		c.writeMu.Unlock()
		conn.Close()
	}
}

// Close disconnects and makes the client unusable.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
}

// emit helpers copy the callback under lock and invoke it outside.

func (c *Client) emitStatus(msg string) {
	c.mu.Lock()
	fn := c.onStatus
	c.mu.Unlock()
	c.logger.Info("%s", msg)
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) emitError(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	c.logger.Error("%v", err)
	if fn != nil {
		fn(err)
	}
}

func (c *Client) emitDebug(msg string) {
	c.mu.Lock()
	fn := c.onDebug
	c.mu.Unlock()
	c.logger.Debug("%s", msg)
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) emitSDP(desc webrtc.SessionDescription) {
	c.mu.Lock()
	fn := c.onSDP
	c.mu.Unlock()
	if fn != nil {
		fn(desc)
	}
}

func (c *Client) emitICE(candidate webrtc.ICECandidateInit) {
	c.mu.Lock()
	fn := c.onICE
	c.mu.Unlock()
	if fn != nil {
		fn(candidate)
	}
}

func (c *Client) emitDisconnect() {
	c.mu.Lock()
	fn := c.onDisconnect
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) emitFatal() {
	c.mu.Lock()
	fn := c.onFatal
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
