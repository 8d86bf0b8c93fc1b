package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"github.com/pion/rtp"
	"github.com/pion/transport/v3/vnet"
	"github.com/pion/webrtc/v4"

	"github.com/maksgranko/selkies/pkg/signaling"
)

var integrationUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// remoteHost plays the rendering host: it owns the server end of the
// signalling socket, creates the peer connection, the data channel and
// the offer, and relays ICE both ways.
type remoteHost struct {
	t   *testing.T
	api *webrtc.API

	mu   sync.Mutex
	conn *websocket.Conn
	pc   *webrtc.PeerConnection

	track    *webrtc.TrackLocalStaticRTP
	received chan string
	dcOpen   chan struct{}
}

func newRemoteHost(t *testing.T, api *webrtc.API, withTrack bool) *remoteHost {
	h := &remoteHost{
		t:        t,
		api:      api,
		received: make(chan string, 32),
		dcOpen:   make(chan struct{}, 1),
	}
	if withTrack {
		track, err := webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "desktop")
		if err != nil {
			t.Fatalf("create track: %v", err)
		}
		h.track = track
	}
	return h
}

func (h *remoteHost) writeJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.t.Errorf("marshal: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		h.conn.WriteMessage(websocket.TextMessage, data)
	}
}

// serve handles one signalling connection end to end.
func (h *remoteHost) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := integrationUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()

	// HELLO handshake
	_, data, err := conn.ReadMessage()
	if err != nil || !strings.HasPrefix(string(data), "HELLO ") {
		h.t.Errorf("expected HELLO handshake, got %q (%v)", data, err)
		return
	}
	conn.WriteMessage(websocket.TextMessage, []byte("HELLO"))

	var newPC func(webrtc.Configuration) (*webrtc.PeerConnection, error)
	if h.api != nil {
		newPC = h.api.NewPeerConnection
	} else {
		newPC = webrtc.NewPeerConnection
	}
	pc, err := newPC(webrtc.Configuration{})
	if err != nil {
		h.t.Errorf("remote peer connection: %v", err)
		return
	}
	h.mu.Lock()
	h.pc = pc
	h.mu.Unlock()

	if h.track != nil {
		if _, err := pc.AddTrack(h.track); err != nil {
			h.t.Errorf("add track: %v", err)
			return
		}
	}

	dc, err := pc.CreateDataChannel("input", nil)
	if err != nil {
		h.t.Errorf("create data channel: %v", err)
		return
	}
	dc.OnOpen(func() {
		select {
		case h.dcOpen <- struct{}{}:
		default:
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		h.received <- string(msg.Data)
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		init := candidate.ToJSON()
		h.writeJSON(signaling.Envelope{ICE: &init})
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		h.t.Errorf("create offer: %v", err)
		return
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		h.t.Errorf("set local description: %v", err)
		return
	}
	h.writeJSON(signaling.Envelope{SDP: &offer})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env signaling.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch {
		case env.SDP != nil:
			if err := pc.SetRemoteDescription(*env.SDP); err != nil {
				h.t.Errorf("remote set answer: %v", err)
			}
		case env.ICE != nil:
			if err := pc.AddICECandidate(*env.ICE); err != nil {
				h.t.Errorf("remote add candidate: %v", err)
			}
		}
	}
}

func (h *remoteHost) close() {
	h.mu.Lock()
	conn := h.conn
	pc := h.pc
	h.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if pc != nil {
		pc.Close()
	}
}

func TestSessionLoopbackExchange(t *testing.T) {
	if testing.Short() {
		t.Skip("loopback integration test")
	}

	host := newRemoteHost(t, nil, true)
	srv := httptest.NewServer(http.HandlerFunc(host.serve))
	defer srv.Close()
	defer host.close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sig := signaling.NewClient(signaling.DefaultConfig(url, "1"), nil)

	sink := &memorySink{}
	config := DefaultConfig()
	config.ICEServers = nil // loopback host candidates only
	s := New(sig, sink, config, nil)
	defer s.Close()

	connected := make(chan struct{}, 1)
	s.SetOnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	channelOpen := make(chan struct{}, 1)
	s.SetOnDataChannelOpen(func() {
		select {
		case channelOpen <- struct{}{}:
		default:
		}
	})

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-connected:
	case <-time.After(15 * time.Second):
		t.Fatal("Peer connection never connected")
	}
	select {
	case <-channelOpen:
	case <-time.After(15 * time.Second):
		t.Fatal("Data channel never opened")
	}

	// outbound input reaches the remote
	if err := s.SendMessage("m,100,200,0,0"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	select {
	case msg := <-host.received:
		if msg != "m,100,200,0,0" {
			t.Errorf("Remote received %q", msg)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Remote never received the input message")
	}

	// media flows: RTP packets on the remote track reach the sink
	deadline := time.After(10 * time.Second)
	seq := uint16(0)
	for sink.attachCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Track never attached to the sink")
		default:
		}
		seq++
		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				SequenceNumber: seq,
				Timestamp:      uint32(seq) * 3000,
			},
			Payload: []byte{0x65, 0x00, 0x01},
		}
		if err := host.track.WriteRTP(packet); err != nil {
			t.Fatalf("WriteRTP failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if sink.playCount() == 0 {
		t.Error("Playback never started")
	}
}

func TestSessionOverVirtualNetwork(t *testing.T) {
	if testing.Short() {
		t.Skip("vnet integration test")
	}

	wan, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "1.2.3.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatal(err)
	}

	clientNet, err := vnet.NewNet(&vnet.NetConfig{StaticIP: "1.2.3.4"})
	if err != nil {
		t.Fatal(err)
	}
	if err := wan.AddNet(clientNet); err != nil {
		t.Fatal(err)
	}
	hostNet, err := vnet.NewNet(&vnet.NetConfig{StaticIP: "1.2.3.5"})
	if err != nil {
		t.Fatal(err)
	}
	if err := wan.AddNet(hostNet); err != nil {
		t.Fatal(err)
	}
	if err := wan.Start(); err != nil {
		t.Fatal(err)
	}
	defer wan.Stop()

	clientAPI := buildVNetAPI(t, clientNet)
	hostAPI := buildVNetAPI(t, hostNet)

	host := newRemoteHost(t, hostAPI, false)
	srv := httptest.NewServer(http.HandlerFunc(host.serve))
	defer srv.Close()
	defer host.close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sig := signaling.NewClient(signaling.DefaultConfig(url, "1"), nil)

	config := DefaultConfig()
	config.ICEServers = nil
	config.WebRTCAPI = clientAPI
	s := New(sig, &memorySink{}, config, nil)
	defer s.Close()

	channelOpen := make(chan struct{}, 1)
	s.SetOnDataChannelOpen(func() {
		select {
		case channelOpen <- struct{}{}:
		default:
		}
	})

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-channelOpen:
	case <-time.After(20 * time.Second):
		t.Fatal("Data channel never opened over virtual network")
	}

	if err := s.SendMessage("kd,65293"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	select {
	case msg := <-host.received:
		if msg != "kd,65293" {
			t.Errorf("Remote received %q", msg)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Remote never received the key message")
	}
}

func buildVNetAPI(t *testing.T, net *vnet.Net) *webrtc.API {
	t.Helper()
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		t.Fatal(err)
	}
	se := webrtc.SettingEngine{}
	se.SetNet(net)
	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se))
}
