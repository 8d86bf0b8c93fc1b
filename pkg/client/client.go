// Package client wires the signalling clients, peer sessions, input
// encoder and gamepad sampler into one remote desktop client. Video and
// audio each run over their own signalling connection and peer session;
// a hiccup on one transport never cascades into tearing down the other.
package client

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/maksgranko/selkies/pkg/gamepad"
	"github.com/maksgranko/selkies/pkg/input"
	"github.com/maksgranko/selkies/pkg/protocol"
	"github.com/maksgranko/selkies/pkg/session"
	"github.com/maksgranko/selkies/pkg/signaling"
	"github.com/maksgranko/selkies/pkg/utils"
)

// Client is the top level remote desktop client.
type Client struct {
	mu     sync.Mutex
	config Config
	logger *utils.Logger

	video *session.Session
	audio *session.Session

	encoder  *input.Encoder
	sampler  *gamepad.Sampler
	settings SettingsStore

	// outbound hooks; default to the sessions' send methods, replaced
	// under test
	sendVideo func(msg string) error
	sendAudio func(msg string) error

	// one reload signal per lifetime, regardless of which transport
	// exhausted its retries
	reloadInProgress bool

	// per-transport recheck flags; set while a reset is in flight and
	// cleared on the next connected transition
	videoRechecking bool
	audioRechecking bool

	closed bool

	onReload func()
	onStatus func(string)
	onError  func(error)
}

// New creates a client over the given media sinks and settings store.
// Either sink may be shared by tests; the settings store falls back to an
// in-memory one when nil.
func New(config Config, videoSink, audioSink session.MediaSink, settings SettingsStore, logger *utils.Logger) *Client {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if settings == nil {
		settings = NewMemoryStore(config.AppName)
	}

	c := &Client{
		config:   config,
		logger:   logger,
		settings: settings,
	}

	url := config.SignallingURL()
	c.video = c.buildSession(url, config.VideoPeerID, videoSink, logger.WithPrefix("video"))
	c.audio = c.buildSession(url, config.AudioPeerID, audioSink, logger.WithPrefix("audio"))

	c.sendVideo = c.video.SendMessage
	c.sendAudio = c.audio.SendMessage

	c.encoder = input.NewEncoder(c.video, input.DefaultConfig(), logger.WithPrefix("input"))

	c.wireVideo()
	c.wireAudio()
	return c
}

// buildSession assembles one signalling client plus peer session pair.
func (c *Client) buildSession(url, peerID string, sink session.MediaSink, logger *utils.Logger) *session.Session {
	sigConfig := signaling.DefaultConfig(url, peerID)
	sigConfig.Resolution = c.config.Resolution
	sigConfig.Scale = c.config.Scale
	sig := signaling.NewClient(sigConfig, logger)

	return session.New(sig, sink, c.sessionConfig(), logger)
}

// sessionConfig maps the client configuration onto one session's.
func (c *Client) sessionConfig() session.Config {
	sesConfig := session.DefaultConfig()
	if len(c.config.ICEServers) > 0 {
		sesConfig.ICEServers = c.config.ICEServers
	}
	sesConfig.ForceRelay = c.config.ForceRelay
	sesConfig.MultichannelAudio = c.config.MultichannelAudio
	if c.config.StatsReportInterval > 0 {
		sesConfig.StatsInterval = c.config.StatsReportInterval
	}
	return sesConfig
}

func (c *Client) wireVideo() {
	sig := c.video.Signaling()
	sig.SetOnStatus(c.emitStatus)
	sig.SetOnError(c.emitError)
	sig.SetOnFatal(c.handleFatal)
	sig.SetOnDisconnect(func() {
		c.recheckTransport(c.video, &c.videoRechecking)
	})

	c.video.SetOnError(c.emitError)
	c.video.SetOnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.handleTransportState(c.video, &c.videoRechecking, state)
	})
	c.video.SetOnDataChannelOpen(c.replayVideoSettings)
	c.video.SetOnSystemAction(c.handleSystemAction)
	c.video.SetOnStats(func(stats session.ConnectionStats, raw webrtc.StatsReport) {
		// observational; failure to forward is not an error
		c.sendVideo(protocol.EncodeVideoStats(stats.ToJSON()))
	})
	c.video.SetOnLatency(func(latencyMs float64) {
		c.sendVideo(protocol.EncodeClientLatency(int(latencyMs)))
	})
}

func (c *Client) wireAudio() {
	sig := c.audio.Signaling()
	sig.SetOnStatus(c.emitStatus)
	sig.SetOnError(c.emitError)
	sig.SetOnFatal(c.handleFatal)
	sig.SetOnDisconnect(func() {
		c.recheckTransport(c.audio, &c.audioRechecking)
	})

	c.audio.SetOnError(c.emitError)
	c.audio.SetOnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.handleTransportState(c.audio, &c.audioRechecking, state)
	})
	c.audio.SetOnDataChannelOpen(c.replayAudioSettings)
	c.audio.SetOnStats(func(stats session.ConnectionStats, raw webrtc.StatsReport) {
		c.sendAudio(protocol.EncodeAudioStats(stats.ToJSON()))
	})
}

// SetOnReload sets the callback fired once when signalling retries are
// exhausted and the whole client should restart from zero.
func (c *Client) SetOnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = fn
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

// Connect starts both transports.
func (c *Client) Connect() error {
	if err := c.video.Connect(); err != nil {
		return err
	}
	return c.audio.Connect()
}

// Video returns the video peer session.
func (c *Client) Video() *session.Session {
	return c.video
}

// Audio returns the audio peer session.
func (c *Client) Audio() *session.Session {
	return c.audio
}

// Encoder returns the input encoder bound to the video data channel.
func (c *Client) Encoder() *input.Encoder {
	return c.encoder
}

// Settings returns the settings store.
func (c *Client) Settings() SettingsStore {
	return c.settings
}

// AttachGamepads starts sampling the given provider, forwarding connect,
// disconnect, button and axis deltas over the video data channel.
func (c *Client) AttachGamepads(provider gamepad.Provider) {
	c.mu.Lock()
	if c.sampler != nil {
		c.mu.Unlock()
		return
	}
	sampler := gamepad.NewSampler(provider, gamepad.DefaultConfig())
	c.sampler = sampler
	c.mu.Unlock()

	sampler.SetOnConnect(c.encoder.GamepadConnected)
	sampler.SetOnDisconnect(c.encoder.GamepadDisconnected)
	sampler.SetOnButton(c.encoder.GamepadButton)
	sampler.SetOnAxis(c.encoder.GamepadAxis)
	sampler.Start()
}

// DetachGamepads stops the sampler.
func (c *Client) DetachGamepads() {
	c.mu.Lock()
	sampler := c.sampler
	c.sampler = nil
	c.mu.Unlock()
	if sampler != nil {
		sampler.Stop()
	}
}

// SetVideoBitrate persists and applies a video bitrate in kbps.
func (c *Client) SetVideoBitrate(kbps int) {
	c.settings.SetInt(SettingVideoBitrate, kbps)
	c.sendVideo(protocol.EncodeVideoBitrate(kbps))
}

// SetVideoFPS persists and applies a video frame rate.
func (c *Client) SetVideoFPS(fps int) {
	c.settings.SetInt(SettingVideoFPS, fps)
	c.sendVideo(protocol.EncodeFPSArg(fps))
}

// SetAudioBitrate persists and applies an audio bitrate in bps.
func (c *Client) SetAudioBitrate(bps int) {
	c.settings.SetInt(SettingAudioBitrate, bps)
	c.sendAudio(protocol.EncodeAudioBitrate(bps))
}

// SetResizeRemote persists and applies the remote-resize behavior with
// the client's current resolution.
func (c *Client) SetResizeRemote(enabled bool) {
	c.settings.SetBool(SettingResizeRemote, enabled)
	c.sendVideo(protocol.EncodeResizeArg(enabled, c.config.Resolution))
}

// SendClipboard pushes local clipboard text to the remote.
func (c *Client) SendClipboard(text string) {
	c.sendVideo(protocol.EncodeClipboardWrite(text))
}

// RequestClipboard asks the remote for its clipboard contents; the
// response arrives through the video session's clipboard callback.
func (c *Client) RequestClipboard() {
	c.sendVideo(protocol.EncodeClipboardRead())
}

// ReportFPS forwards the sink's measured frame rate to the server.
func (c *Client) ReportFPS(fps int) {
	c.sendVideo(protocol.EncodeClientFPS(fps))
}

// replayVideoSettings pushes the persisted video settings to a freshly
// opened data channel so a reconnected remote matches local state.
func (c *Client) replayVideoSettings() {
	c.sendVideo(protocol.EncodeVideoBitrate(
		c.settings.GetInt(SettingVideoBitrate, c.config.DefaultVideoBitrateKbps)))
	c.sendVideo(protocol.EncodeFPSArg(
		c.settings.GetInt(SettingVideoFPS, c.config.DefaultVideoFPS)))
	c.sendVideo(protocol.EncodeResizeArg(
		c.settings.GetBool(SettingResizeRemote, c.config.DefaultResizeRemote),
		c.config.Resolution))
	c.encoder.SendPointerVisible(
		c.settings.GetBool(SettingPointerVisible, true))
}

func (c *Client) replayAudioSettings() {
	c.sendAudio(protocol.EncodeAudioBitrate(
		c.settings.GetInt(SettingAudioBitrate, c.config.DefaultAudioBitrateBps)))
}

// handleSystemAction applies remote-initiated setting changes locally so
// the persisted state tracks what the server actually runs.
func (c *Client) handleSystemAction(action protocol.SystemAction) {
	switch action.Kind {
	case protocol.SystemActionFramerate:
		if fps, err := action.IntArg(); err == nil {
			c.settings.SetInt(SettingVideoFPS, fps)
		}
	case protocol.SystemActionVideoBitrate:
		if kbps, err := action.IntArg(); err == nil {
			c.settings.SetInt(SettingVideoBitrate, kbps)
		}
	case protocol.SystemActionAudioBitrate:
		if bps, err := action.IntArg(); err == nil {
			c.settings.SetInt(SettingAudioBitrate, bps)
		}
	case protocol.SystemActionLocalScaling:
		if enabled, err := action.BoolArg(); err == nil {
			c.settings.SetBool(SettingLocalScaling, enabled)
		}
	case protocol.SystemActionReload:
		c.handleFatal()
	}
}

// handleTransportState reacts to one transport's peer connection state.
// A down transition triggers that transport's own reset only; the other
// transport is left alone.
func (c *Client) handleTransportState(s *session.Session, rechecking *bool, state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateConnected:
		c.mu.Lock()
		*rechecking = false
		c.mu.Unlock()
	case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
		c.recheckTransport(s, rechecking)
	}
}

// recheckTransport resets one transport unless a reset is already in
// flight for it. The guard keeps a signalling disconnect and a peer
// connection failure for the same outage from stacking resets.
func (c *Client) recheckTransport(s *session.Session, rechecking *bool) {
	c.mu.Lock()
	if c.closed || c.reloadInProgress || *rechecking {
		c.mu.Unlock()
		return
	}
	*rechecking = true
	c.mu.Unlock()

	s.Reset()
}

// handleFatal fires the reload callback exactly once.
func (c *Client) handleFatal() {
	c.mu.Lock()
	if c.reloadInProgress {
		c.mu.Unlock()
		return
	}
	c.reloadInProgress = true
	fn := c.onReload
	c.mu.Unlock()

	c.logger.Error("signalling retries exhausted, requesting client reload")
	if fn != nil {
		fn()
	}
}

// Close tears down both transports and the sampler. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sampler := c.sampler
	c.sampler = nil
	c.mu.Unlock()

	if sampler != nil {
		sampler.Stop()
	}
	c.encoder.Close()
	c.video.Close()
	return c.audio.Close()
}

func (c *Client) emitStatus(msg string) {
	c.mu.Lock()
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) emitError(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
