package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

// Config holds remote desktop client configuration
type Config struct {
	// Signalling server host
	Host string
	// Optional port; zero means the scheme default
	Port int
	// Secure selects wss over ws
	Secure bool
	// Application name, also the settings namespace
	AppName string
	// Optional URL base path
	BasePath string

	// Peer identifiers announced in the signalling handshake
	VideoPeerID string
	AudioPeerID string

	// Client output resolution as "WxH" and device pixel ratio
	Resolution string
	Scale      float64

	// ICE servers handed to both peer sessions
	ICEServers []webrtc.ICEServer
	// ForceRelay restricts both transports to relay candidates
	ForceRelay bool
	// MultichannelAudio disables the stereo Opus answer rewrite
	MultichannelAudio bool

	// Defaults replayed on data-channel open when the store is empty
	DefaultVideoBitrateKbps int
	DefaultVideoFPS         int
	DefaultAudioBitrateBps  int
	DefaultResizeRemote     bool

	// Interval for forwarding stats dumps to the remote
	StatsReportInterval time.Duration
}

// DefaultConfig returns default client configuration for a host
func DefaultConfig(host string) Config {
	return Config{
		Host:                    host,
		Secure:                  true,
		AppName:                 "webrtc",
		BasePath:                "/",
		VideoPeerID:             "1",
		AudioPeerID:             "3",
		Resolution:              "1920x1080",
		Scale:                   1,
		DefaultVideoBitrateKbps: 8000,
		DefaultVideoFPS:         60,
		DefaultAudioBitrateBps:  128000,
		DefaultResizeRemote:     true,
		StatsReportInterval:     time.Second,
	}
}

// SignallingURL resolves the configured endpoint into the signalling
// WebSocket URL: {ws|wss}://host[:port]{basePath}{appName}/signalling/
func (c Config) SignallingURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	host := c.Host
	if c.Port != 0 {
		host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	base := c.BasePath
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s://%s%s%s/signalling/", scheme, host, base, c.AppName)
}
