package session

import (
	"strings"
	"testing"
)

const sampleAnswer = "v=0\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"a=fmtp:96 level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"a=fmtp:111 useinbandfec=1\r\n"

func TestMungeAnswerRewrites(t *testing.T) {
	out := MungeAnswer(sampleAnswer, false)

	if !strings.Contains(out, "sps-pps-idr-in-keyframe=1;packetization-mode=1") {
		t.Error("Expected IDR-on-keyframe rewrite")
	}
	if !strings.Contains(out, "stereo=1;useinbandfec=1") {
		t.Error("Expected stereo rewrite")
	}
	if !strings.Contains(out, "useinbandfec=1;minptime=10") {
		t.Error("Expected minptime rewrite")
	}
}

func TestMungeAnswerIdempotent(t *testing.T) {
	once := MungeAnswer(sampleAnswer, false)
	twice := MungeAnswer(once, false)
	if once != twice {
		t.Error("Munging an already-munged answer must be a no-op")
	}
}

func TestMungeAnswerMultichannelSkipsOpus(t *testing.T) {
	out := MungeAnswer(sampleAnswer, true)

	if strings.Contains(out, "stereo=1") {
		t.Error("Multichannel audio must not force stereo")
	}
	if strings.Contains(out, "minptime=10") {
		t.Error("Multichannel audio must not force minptime")
	}
	if !strings.Contains(out, "sps-pps-idr-in-keyframe=1;packetization-mode=1") {
		t.Error("Video rewrite must still apply")
	}
}

func TestMungeAnswerNoTargets(t *testing.T) {
	plain := "v=0\r\nm=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n"
	if MungeAnswer(plain, false) != plain {
		t.Error("SDP without target attributes must pass through unchanged")
	}
}

func TestCandidateType(t *testing.T) {
	cases := map[string]string{
		"candidate:1 1 udp 2130706431 10.0.0.1 54321 typ host":                        "host",
		"candidate:2 1 udp 1694498815 203.0.113.5 60000 typ srflx raddr 10.0.0.1":     "srflx",
		"candidate:3 1 udp 41885695 198.51.100.7 3478 typ relay raddr 203.0.113.5":    "relay",
		"candidate:4 1 tcp 1518280447 10.0.0.2 9 typ prflx tcptype active":            "prflx",
		"malformed candidate with no type token":                                      "",
		"trailing typ":                                                                "",
	}
	for candidate, expected := range cases {
		if got := CandidateType(candidate); got != expected {
			t.Errorf("CandidateType(%q): expected %q, got %q", candidate, expected, got)
		}
	}
}
