package session

import "github.com/pion/webrtc/v4"

// MediaSink is the rendering element that receives remote media. The
// browser video element is one implementation; tests use an in-memory one.
type MediaSink interface {
	// AttachTrack hands a newly arrived remote track to the sink.
	AttachTrack(track *webrtc.TrackRemote) error
	// Play starts playback. An error means a user gesture is required and
	// the session raises its play-required signal.
	Play() error
	// Load resets the element after a connection loss.
	Load()
	// IntrinsicSize returns the remote frame dimensions in pixels.
	IntrinsicSize() (width, height int)
	// LayoutSize returns the element's layout dimensions in client pixels.
	LayoutSize() (width, height int)
	// Paused reports whether playback is currently paused.
	Paused() bool
}
