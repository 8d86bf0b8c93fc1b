package session

import (
	"strings"
)

// MungeAnswer rewrites specific attribute lines of a local answer before
// it is applied and relayed:
//
//   - H.264 packetization gets sps-pps-idr-in-keyframe=1 so every
//     keyframe request yields a decodable IDR.
//   - Unless a multi-channel audio codec is in use, Opus is forced to
//     stereo with a 10ms minimum packet time for low latency.
//
// Already-rewritten SDP passes through unchanged.
func MungeAnswer(sdp string, multichannelAudio bool) string {
	if strings.Contains(sdp, "packetization-mode=") &&
		!strings.Contains(sdp, "sps-pps-idr-in-keyframe=") {
		sdp = strings.Replace(sdp,
			"packetization-mode=1",
			"sps-pps-idr-in-keyframe=1;packetization-mode=1", 1)
	}

	if !multichannelAudio {
		if strings.Contains(sdp, "useinbandfec=") && !strings.Contains(sdp, "stereo=") {
			sdp = strings.Replace(sdp,
				"useinbandfec=1",
				"stereo=1;useinbandfec=1", 1)
		}
		if strings.Contains(sdp, "useinbandfec=") && !strings.Contains(sdp, "minptime=") {
			sdp = strings.Replace(sdp,
				"useinbandfec=1",
				"useinbandfec=1;minptime=10", 1)
		}
	}

	return sdp
}

// CandidateType extracts the typ token from a serialized ICE candidate
// ("host", "srflx", "prflx", "relay"). It parses the structured attribute
// instead of substring-matching the whole candidate line; an empty string
// means the candidate carries no typ token.
func CandidateType(candidate string) string {
	fields := strings.Fields(candidate)
	for i, f := range fields {
		if f == "typ" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}
