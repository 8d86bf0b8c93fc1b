// Package session owns one RTCPeerConnection and its remote-created data
// channel. It consumes signalling events to complete the SDP/ICE exchange,
// classifies connection-state transitions, routes server-pushed control
// messages to typed callbacks and exposes the outbound send hook used by
// the input encoder.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/maksgranko/selkies/pkg/protocol"
	"github.com/maksgranko/selkies/pkg/signaling"
	"github.com/maksgranko/selkies/pkg/utils"
)

// Config holds peer session configuration
type Config struct {
	// ICE servers for the peer connection
	ICEServers []webrtc.ICEServer
	// ForceRelay restricts transport to relay candidates only
	ForceRelay bool
	// MultichannelAudio disables the stereo Opus rewrite in the answer
	MultichannelAudio bool
	// Delay before reconnecting when signalling was mid-negotiation
	ReconnectDelay time.Duration
	// Stats sampling interval
	StatsInterval time.Duration
	// Cursor cache capacity
	CursorCacheSize int
	// WebRTCAPI overrides the internally built API. Tests use it to
	// inject a virtual network.
	WebRTCAPI *webrtc.API
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		ReconnectDelay:  3 * time.Second,
		StatsInterval:   time.Second,
		CursorCacheSize: 32,
	}
}

// Session wraps exactly one signalling client and one media sink. At most
// one RTCPeerConnection is open at a time; Connect closes any old one
// first. The data channel is created by the remote side and bound on
// arrival.
type Session struct {
	mu     sync.Mutex
	id     string
	config Config
	logger *utils.Logger

	signaling *signaling.Client
	sink      MediaSink

	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	cursors *cursorCache
	probe   *StatsProbe

	reconnectTimer *utils.Timer
	closed         bool

	onConnectionStateChange func(webrtc.PeerConnectionState)
	onDataChannelOpen       func()
	onDataChannelClose      func()
	onClipboard             func(text string)
	onCursor                func(CursorEvent)
	onSystemAction          func(protocol.SystemAction)
	onPipelineStatus        func(status string)
	onGPUStats              func(json.RawMessage)
	onSystemStats           func(json.RawMessage)
	onLatency               func(latencyMs float64)
	onPlayRequired          func()
	onStats                 func(ConnectionStats, webrtc.StatsReport)
	onError                 func(error)
}

// New creates a peer session over an owned signalling client and a media
// sink. The session installs itself as the client's SDP/ICE consumer.
func New(sig *signaling.Client, sink MediaSink, config Config, logger *utils.Logger) *Session {
	if logger == nil {
		logger = utils.GetLogger()
	}
	id := uuid.NewString()
	// the short id tags every log line so concurrent sessions (video,
	// audio) are separable in one sink
	logger = logger.WithPrefix(id[:8])
	s := &Session{
		id:             id,
		config:         config,
		logger:         logger,
		signaling:      sig,
		sink:           sink,
		cursors:        newCursorCache(config.CursorCacheSize),
		reconnectTimer: utils.NewTimer(),
	}
	sig.SetOnSDP(s.handleRemoteDescription)
	sig.SetOnICE(s.handleRemoteCandidate)
	return s
}

// ID returns the session identifier used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Signaling returns the owned signalling client.
func (s *Session) Signaling() *signaling.Client {
	return s.signaling
}

// SetOnConnectionStateChange sets the peer connection state callback
func (s *Session) SetOnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnectionStateChange = fn
}

// SetOnDataChannelOpen sets the data channel open callback
func (s *Session) SetOnDataChannelOpen(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDataChannelOpen = fn
}

// SetOnDataChannelClose sets the data channel close callback
func (s *Session) SetOnDataChannelClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDataChannelClose = fn
}

// SetOnClipboard sets the callback for remote clipboard contents
func (s *Session) SetOnClipboard(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClipboard = fn
}

// SetOnCursor sets the callback for cursor shape updates
func (s *Session) SetOnCursor(fn func(CursorEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCursor = fn
}

// SetOnSystemAction sets the callback for parsed system actions
func (s *Session) SetOnSystemAction(fn func(protocol.SystemAction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSystemAction = fn
}

// SetOnPipelineStatus sets the callback for pipeline status text
func (s *Session) SetOnPipelineStatus(fn func(status string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPipelineStatus = fn
}

// SetOnGPUStats sets the callback for GPU stats payloads
func (s *Session) SetOnGPUStats(fn func(json.RawMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGPUStats = fn
}

// SetOnSystemStats sets the callback for host system stats payloads
func (s *Session) SetOnSystemStats(fn func(json.RawMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSystemStats = fn
}

// SetOnLatency sets the callback for latency measurements
func (s *Session) SetOnLatency(fn func(latencyMs float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLatency = fn
}

// SetOnPlayRequired sets the callback raised when autoplay is rejected
// and a user gesture is needed to start playback
func (s *Session) SetOnPlayRequired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPlayRequired = fn
}

// SetOnStats sets the per-interval connection stats callback
func (s *Session) SetOnStats(fn func(ConnectionStats, webrtc.StatsReport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStats = fn
}

// SetOnError sets the error callback
func (s *Session) SetOnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Connect creates the peer connection, wires its event sinks and tells the
// owned signalling client to connect. Any previously open peer connection
// is closed first.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.probe != nil {
		s.probe.Stop()
		s.probe = nil
	}
	if s.pc != nil {
		s.pc.Close()
		s.pc = nil
	}
	s.dc = nil

	api := s.config.WebRTCAPI
	if api == nil {
		m := &webrtc.MediaEngine{}
		if err := m.RegisterDefaultCodecs(); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("register codecs: %w", err)
		}
		se := webrtc.SettingEngine{LoggerFactory: &utils.PionLoggerFactory{Logger: s.logger}}
		api = webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se))
	}

	cfg := webrtc.Configuration{ICEServers: s.config.ICEServers}
	if s.config.ForceRelay {
		cfg.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create peer connection: %w", err)
	}
	s.pc = pc
	s.probe = NewStatsProbe(pc, s.config.StatsInterval)
	probe := s.probe
	s.mu.Unlock()

	probe.SetOnStats(func(stats ConnectionStats, raw webrtc.StatsReport) {
		s.mu.Lock()
		fn := s.onStats
		s.mu.Unlock()
		if fn != nil {
			fn(stats, raw)
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.handleTrack(track)
	})
	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			s.logger.Debug("end of ICE candidates")
			return
		}
		s.signaling.SendICE(candidate.ToJSON())
	})
	pc.OnDataChannel(s.bindDataChannel)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.handleConnectionState(state)
	})

	return s.signaling.Connect()
}

// handleRemoteDescription applies a remote offer and relays the munged
// local answer. Any description type other than offer is a protocol error
// and the message is discarded.
func (s *Session) handleRemoteDescription(desc webrtc.SessionDescription) {
	if desc.Type != webrtc.SDPTypeOffer {
		s.emitError(fmt.Errorf("%w: got %s", ErrNotAnOffer, desc.Type))
		return
	}

	s.mu.Lock()
	pc := s.pc
	s.mu.Unlock()
	if pc == nil {
		s.emitError(ErrNoPeerConnection)
		return
	}

	if err := pc.SetRemoteDescription(desc); err != nil {
		s.emitError(fmt.Errorf("set remote description: %w", err))
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		s.emitError(fmt.Errorf("create answer: %w", err))
		return
	}
	answer.SDP = MungeAnswer(answer.SDP, s.config.MultichannelAudio)
	if err := pc.SetLocalDescription(answer); err != nil {
		s.emitError(fmt.Errorf("set local description: %w", err))
		return
	}
	s.signaling.SendSDP(answer)
}

// handleRemoteCandidate applies a relayed ICE candidate, rejecting
// non-relay candidates when relay-only transport is forced.
func (s *Session) handleRemoteCandidate(candidate webrtc.ICECandidateInit) {
	if s.config.ForceRelay && CandidateType(candidate.Candidate) != "relay" {
		s.logger.Debug("%v: %s", ErrCandidateRejected, candidate.Candidate)
		return
	}

	s.mu.Lock()
	pc := s.pc
	s.mu.Unlock()
	if pc == nil {
		s.emitError(ErrNoPeerConnection)
		return
	}
	if err := pc.AddICECandidate(candidate); err != nil {
		s.emitError(fmt.Errorf("add ice candidate: %w", err))
	}
}

// handleTrack attaches a remote track to the sink and starts playback.
func (s *Session) handleTrack(track *webrtc.TrackRemote) {
	s.logger.Info("remote track arrived: %s (%s)", track.ID(), track.Kind())
	if s.sink == nil {
		return
	}
	if err := s.sink.AttachTrack(track); err != nil {
		s.emitError(fmt.Errorf("attach track: %w", err))
		return
	}
	if err := s.sink.Play(); err != nil {
		// autoplay rejected; the caller surfaces a user gesture prompt
		s.logger.Warn("playback requires user gesture: %v", err)
		s.mu.Lock()
		fn := s.onPlayRequired
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

// bindDataChannel binds the remote-created channel as the session's sole
// outgoing channel and installs the message decoder.
func (s *Session) bindDataChannel(dc *webrtc.DataChannel) {
	s.logger.Info("data channel arrived: %s", dc.Label())

	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.mu.Lock()
		fn := s.onDataChannelOpen
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	dc.OnClose(func() {
		s.mu.Lock()
		fn := s.onDataChannelClose
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.handleChannelMessage(msg.Data)
	})
}

// handleChannelMessage decodes one server-pushed control message and
// routes it to the typed callback. Protocol violations are reported to the
// error sink and the message discarded; the session keeps running.
func (s *Session) handleChannelMessage(payload []byte) {
	msg, err := protocol.DecodeServerMessage(payload)
	if err != nil {
		s.emitError(err)
		return
	}

	switch msg.Type {
	case protocol.ServerMessagePipeline:
		var data protocol.PipelineStatus
		if err := msg.DecodeData(&data); err != nil {
			s.emitError(err)
			return
		}
		s.mu.Lock()
		fn := s.onPipelineStatus
		s.mu.Unlock()
		if fn != nil {
			fn(data.Status)
		}

	case protocol.ServerMessageGPUStats:
		s.mu.Lock()
		fn := s.onGPUStats
		s.mu.Unlock()
		if fn != nil {
			fn(msg.Data)
		}

	case protocol.ServerMessageClipboard:
		var data protocol.ClipboardData
		if err := msg.DecodeData(&data); err != nil {
			s.emitError(err)
			return
		}
		text, err := data.Text()
		if err != nil {
			s.emitError(fmt.Errorf("clipboard payload: %w", err))
			return
		}
		s.mu.Lock()
		fn := s.onClipboard
		s.mu.Unlock()
		if fn != nil {
			fn(text)
		}

	case protocol.ServerMessageCursor:
		var data protocol.CursorData
		if err := msg.DecodeData(&data); err != nil {
			s.emitError(err)
			return
		}
		event, ok := s.cursors.Resolve(data)
		if !ok {
			s.logger.Debug("cursor handle %d not cached and no image data", data.Handle)
		}
		s.mu.Lock()
		fn := s.onCursor
		s.mu.Unlock()
		if fn != nil {
			fn(event)
		}

	case protocol.ServerMessageSystem:
		var data protocol.SystemData
		if err := msg.DecodeData(&data); err != nil {
			s.emitError(err)
			return
		}
		action, err := protocol.ParseSystemAction(data.Action)
		if err != nil {
			s.emitError(err)
			return
		}
		s.mu.Lock()
		fn := s.onSystemAction
		s.mu.Unlock()
		if fn != nil {
			fn(action)
		}

	case protocol.ServerMessagePing:
		// answered immediately, before any queued work
		if err := s.SendMessage(protocol.EncodePong(time.Now().Unix())); err != nil {
			s.emitError(fmt.Errorf("answer ping: %w", err))
		}

	case protocol.ServerMessageSystemStats:
		s.mu.Lock()
		fn := s.onSystemStats
		s.mu.Unlock()
		if fn != nil {
			fn(msg.Data)
		}

	case protocol.ServerMessageLatency:
		var data protocol.LatencyData
		if err := msg.DecodeData(&data); err != nil {
			s.emitError(err)
			return
		}
		s.mu.Lock()
		fn := s.onLatency
		s.mu.Unlock()
		if fn != nil {
			fn(data.LatencyMs)
		}

	default:
		s.emitError(fmt.Errorf("%w: %q", protocol.ErrUnknownMessageType, msg.Type))
	}
}

// handleConnectionState classifies peer connection state transitions.
// Connected marks the session usable for outbound sends; disconnected and
// failed close the channel, reload the sink and surface the transition for
// the caller's reconnect policy.
func (s *Session) handleConnectionState(state webrtc.PeerConnectionState) {
	s.logger.Info("connection state: %s", state)

	switch state {
	case webrtc.PeerConnectionStateConnected:
		s.mu.Lock()
		probe := s.probe
		s.mu.Unlock()
		if probe != nil {
			probe.Start()
		}

	case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
		s.mu.Lock()
		dc := s.dc
		s.dc = nil
		probe := s.probe
		s.mu.Unlock()
		if probe != nil {
			probe.Stop()
		}
		if dc != nil {
			dc.Close()
		}
		if s.sink != nil {
			s.sink.Load()
		}
	}

	s.mu.Lock()
	fn := s.onConnectionStateChange
	s.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

// SendMessage sends one wire-protocol message on the data channel. A send
// before the channel is open is a caller bug and returns an error rather
// than queueing.
func (s *Session) SendMessage(msg string) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrDataChannelNotOpen
	}
	return dc.SendText(msg)
}

// GetConnectionStats samples the statistics API once, returning the
// reduced summary and the raw report for telemetry forwarding.
func (s *Session) GetConnectionStats() (ConnectionStats, webrtc.StatsReport) {
	s.mu.Lock()
	probe := s.probe
	s.mu.Unlock()
	if probe == nil {
		return ConnectionStats{}, nil
	}
	return probe.Collect()
}

// CursorCacheLen reports the number of cached cursor shapes.
func (s *Session) CursorCacheLen() int {
	return s.cursors.Len()
}

// Reset clears the cursor cache, tears down the peer connection and
// reconnects. When signalling was mid-negotiation the reconnect is delayed
// briefly to let the in-flight exchange unwind; the delayed fire
// re-validates state before acting.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cursors.Clear()
	dc := s.dc
	s.dc = nil
	pc := s.pc
	s.pc = nil
	probe := s.probe
	s.probe = nil
	s.mu.Unlock()

	if probe != nil {
		probe.Stop()
	}
	if dc != nil {
		dc.Close()
	}
	if pc != nil {
		pc.Close()
	}

	settled := s.signaling.State() != signaling.StateConnecting
	s.signaling.Disconnect()

	if settled {
		s.Connect()
		return
	}
	s.reconnectTimer.Arm(s.config.ReconnectDelay, func() {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.Connect()
		}
	})
}

// Close tears down the session, its peer connection and its signalling
// client. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.reconnectTimer.Cancel()
	dc := s.dc
	s.dc = nil
	pc := s.pc
	s.pc = nil
	probe := s.probe
	s.probe = nil
	s.mu.Unlock()

	if probe != nil {
		probe.Stop()
	}
	if dc != nil {
		dc.Close()
	}
	s.signaling.Close()
	if pc != nil {
		return pc.Close()
	}
	return nil
}

func (s *Session) emitError(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	s.logger.Error("%v", err)
	if fn != nil {
		fn(err)
	}
}
