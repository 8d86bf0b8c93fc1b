package session

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

// ConnectionStats is the reduced per-interval summary of the WebRTC stats
// report. Byte and packet counters are cumulative with deltas since the
// previous sample; pion's report set does not expose the browser's
// cumulative jitter-buffer delay, so Jitter from inbound RTP stats stands
// in for playout-delay estimation.
type ConnectionStats struct {
	BytesReceived      uint64        `json:"bytes_received"`
	BytesSent          uint64        `json:"bytes_sent"`
	BytesReceivedDelta uint64        `json:"bytes_received_delta"`
	BytesSentDelta     uint64        `json:"bytes_sent_delta"`
	PacketsReceived    uint64        `json:"packets_received"`
	PacketsSent        uint64        `json:"packets_sent"`
	PacketsLost        int64         `json:"packets_lost"`
	RTT                time.Duration `json:"rtt_ms"`
	Jitter             time.Duration `json:"jitter_ms"`
	AvailableBandwidth int64         `json:"available_bw"`
	CandidateType      string        `json:"candidate_type"`
	VideoCodec         string        `json:"video_codec,omitempty"`
	AudioCodec         string        `json:"audio_codec,omitempty"`
	QualityScore       float64       `json:"quality_score"`
	Timestamp          time.Time     `json:"timestamp"`
}

// qualityScore grades a sample 0-100, penalizing RTT, loss and jitter.
func qualityScore(s ConnectionStats) float64 {
	score := 100.0

	rttMs := s.RTT.Milliseconds()
	switch {
	case rttMs > 300:
		score -= 30
	case rttMs > 100:
		score -= float64(rttMs-100) / 200 * 20
	case rttMs > 50:
		score -= float64(rttMs-50) / 50 * 10
	}

	var loss float64
	if total := float64(s.PacketsLost) + float64(s.PacketsReceived); total > 0 {
		loss = float64(s.PacketsLost) / total
	}
	switch {
	case loss > 0.05:
		score -= 30
	case loss > 0.02:
		score -= (loss - 0.02) / 0.03 * 20
	case loss > 0:
		score -= loss / 0.02 * 10
	}

	jitterMs := s.Jitter.Milliseconds()
	switch {
	case jitterMs > 100:
		score -= 20
	case jitterMs > 50:
		score -= float64(jitterMs-50) / 50 * 15
	case jitterMs > 20:
		score -= float64(jitterMs-20) / 30 * 10
	}

	if score < 0 {
		score = 0
	}
	return score
}

// ToJSON serializes the summary for telemetry forwarding.
func (s ConnectionStats) ToJSON() string {
	data, _ := json.Marshal(s)
	return string(data)
}

// StatsProbe periodically reduces the peer connection's stats report into
// a ConnectionStats summary. Purely observational; never authoritative.
type StatsProbe struct {
	mu sync.RWMutex

	pc *webrtc.PeerConnection

	latest  ConnectionStats
	lastRaw webrtc.StatsReport

	// previous cumulative counters for delta computation
	prevBytesReceived uint64
	prevBytesSent     uint64

	onStats func(stats ConnectionStats, raw webrtc.StatsReport)

	interval time.Duration
	stopCh   chan struct{}
	running  bool
}

// NewStatsProbe creates a probe over the given peer connection.
func NewStatsProbe(pc *webrtc.PeerConnection, interval time.Duration) *StatsProbe {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatsProbe{
		pc:       pc,
		interval: interval,
	}
}

// SetOnStats sets the per-interval callback.
func (p *StatsProbe) SetOnStats(fn func(stats ConnectionStats, raw webrtc.StatsReport)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStats = fn
}

// Start begins the sampling loop. Restartable: a probe stopped on a
// connection drop resumes sampling when the connection recovers.
func (p *StatsProbe) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.probeLoop(stopCh)
}

func (p *StatsProbe) probeLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.probe()
		}
	}
}

func (p *StatsProbe) probe() {
	if p.pc == nil {
		return
	}

	raw := p.pc.GetStats()
	stats := p.reduce(raw)

	p.mu.Lock()
	p.latest = stats
	p.lastRaw = raw
	callback := p.onStats
	p.mu.Unlock()

	if callback != nil {
		callback(stats, raw)
	}
}

// reduce extracts the summary from a raw stats report.
func (p *StatsProbe) reduce(report webrtc.StatsReport) ConnectionStats {
	stats := ConnectionStats{Timestamp: time.Now()}

	var localCandidateID string
	for _, stat := range report {
		switch s := stat.(type) {
		case webrtc.ICECandidatePairStats:
			stats.RTT = time.Duration(s.CurrentRoundTripTime * float64(time.Second))
			stats.AvailableBandwidth = int64(s.AvailableOutgoingBitrate)
			stats.BytesSent = s.BytesSent
			stats.BytesReceived = s.BytesReceived
			if s.Nominated {
				localCandidateID = s.LocalCandidateID
			}

		case webrtc.InboundRTPStreamStats:
			stats.PacketsReceived += uint64(s.PacketsReceived)
			stats.PacketsLost += int64(s.PacketsLost)
			stats.Jitter = time.Duration(s.Jitter * float64(time.Second))

		case webrtc.OutboundRTPStreamStats:
			stats.PacketsSent += uint64(s.PacketsSent)

		case webrtc.CodecStats:
			switch {
			case strings.HasPrefix(s.MimeType, "video/"):
				stats.VideoCodec = s.MimeType
			case strings.HasPrefix(s.MimeType, "audio/"):
				stats.AudioCodec = s.MimeType
			}
		}
	}

	if localCandidateID != "" {
		if cand, ok := report[localCandidateID].(webrtc.ICECandidateStats); ok {
			stats.CandidateType = cand.CandidateType.String()
		}
	}

	p.mu.RLock()
	prevReceived := p.prevBytesReceived
	prevSent := p.prevBytesSent
	p.mu.RUnlock()
	if stats.BytesReceived >= prevReceived {
		stats.BytesReceivedDelta = stats.BytesReceived - prevReceived
	}
	if stats.BytesSent >= prevSent {
		stats.BytesSentDelta = stats.BytesSent - prevSent
	}
	p.mu.Lock()
	p.prevBytesReceived = stats.BytesReceived
	p.prevBytesSent = stats.BytesSent
	p.mu.Unlock()

	stats.QualityScore = qualityScore(stats)
	return stats
}

// Collect performs one immediate sample and returns both the reduced
// summary and the raw report list for optional telemetry forwarding.
func (p *StatsProbe) Collect() (ConnectionStats, webrtc.StatsReport) {
	if p.pc == nil {
		return ConnectionStats{}, nil
	}
	raw := p.pc.GetStats()
	stats := p.reduce(raw)

	p.mu.Lock()
	p.latest = stats
	p.lastRaw = raw
	p.mu.Unlock()

	return stats, raw
}

// GetLatest returns the most recent summary.
func (p *StatsProbe) GetLatest() ConnectionStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Stop halts the sampling loop.
func (p *StatsProbe) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh := p.stopCh
	p.mu.Unlock()

	close(stopCh)
}
