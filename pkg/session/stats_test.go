package session

import (
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func TestQualityScorePerfect(t *testing.T) {
	s := ConnectionStats{RTT: 10 * time.Millisecond, Jitter: 5 * time.Millisecond}
	if score := qualityScore(s); score != 100 {
		t.Errorf("Expected 100 for a clean sample, got %v", score)
	}
}

func TestQualityScoreDegrades(t *testing.T) {
	clean := qualityScore(ConnectionStats{RTT: 10 * time.Millisecond})
	slow := qualityScore(ConnectionStats{RTT: 400 * time.Millisecond})
	if slow >= clean {
		t.Errorf("High RTT should lower the score: %v >= %v", slow, clean)
	}

	lossy := qualityScore(ConnectionStats{
		RTT:             10 * time.Millisecond,
		PacketsReceived: 900,
		PacketsLost:     100,
	})
	if lossy >= clean {
		t.Errorf("Packet loss should lower the score: %v >= %v", lossy, clean)
	}

	jittery := qualityScore(ConnectionStats{
		RTT:    10 * time.Millisecond,
		Jitter: 200 * time.Millisecond,
	})
	if jittery >= clean {
		t.Errorf("Jitter should lower the score: %v >= %v", jittery, clean)
	}
}

func TestQualityScoreFloor(t *testing.T) {
	s := ConnectionStats{
		RTT:             2 * time.Second,
		Jitter:          time.Second,
		PacketsReceived: 100,
		PacketsLost:     100,
	}
	if score := qualityScore(s); score < 0 {
		t.Errorf("Score must not go negative, got %v", score)
	}
}

func TestStatsProbeRestart(t *testing.T) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	p := NewStatsProbe(pc, 10*time.Millisecond)
	samples := make(chan ConnectionStats, 16)
	p.SetOnStats(func(stats ConnectionStats, raw webrtc.StatsReport) {
		select {
		case samples <- stats:
		default:
		}
	})

	p.Start()
	select {
	case <-samples:
	case <-time.After(2 * time.Second):
		t.Fatal("No sample from the first run")
	}
	p.Stop()

	// let in-flight samples land, then empty the channel
	time.Sleep(50 * time.Millisecond)
	for len(samples) > 0 {
		<-samples
	}

	// a disconnected/connected cycle stops and restarts the same probe;
	// the restarted loop must sample again
	p.Start()
	select {
	case <-samples:
	case <-time.After(2 * time.Second):
		t.Fatal("No sample after restart")
	}
	p.Stop()
}

func TestConnectionStatsToJSON(t *testing.T) {
	s := ConnectionStats{
		BytesReceived: 1024,
		CandidateType: "relay",
		VideoCodec:    "video/H264",
		QualityScore:  87.5,
	}
	out := s.ToJSON()
	for _, want := range []string{`"bytes_received":1024`, `"candidate_type":"relay"`, `"quality_score":87.5`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in JSON, got %s", want, out)
		}
	}
}
