package signaling

import (
	"github.com/pion/webrtc/v4"
)

// helloPayload is the base64-encoded JSON blob appended to the HELLO
// handshake, carrying the client's output resolution and pixel scale.
type helloPayload struct {
	Res   string  `json:"res"`
	Scale float64 `json:"scale"`
}

// Envelope is the bidirectional negotiation payload relayed by the
// signalling server. Exactly one of the fields is set per message.
type Envelope struct {
	SDP *webrtc.SessionDescription `json:"sdp,omitempty"`
	ICE *webrtc.ICECandidateInit   `json:"ice,omitempty"`
}
