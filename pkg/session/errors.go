package session

import "errors"

var (
	// ErrSessionClosed indicates the session has been closed
	ErrSessionClosed = errors.New("session is closed")

	// ErrNoPeerConnection indicates no peer connection is active
	ErrNoPeerConnection = errors.New("no peer connection")

	// ErrDataChannelNotOpen indicates a send before the remote data channel
	// reached the open state; a caller bug, not a transient condition
	ErrDataChannelNotOpen = errors.New("data channel is not open")

	// ErrNotAnOffer indicates a remote description that is not an SDP offer
	ErrNotAnOffer = errors.New("remote description is not an offer")

	// ErrCandidateRejected indicates a non-relay candidate was rejected
	// while relay-only transport is forced
	ErrCandidateRejected = errors.New("non-relay candidate rejected")
)
