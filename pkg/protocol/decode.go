package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ServerMessageType tags a server-pushed data-channel message
type ServerMessageType string

const (
	// ServerMessagePipeline carries pipeline status text
	ServerMessagePipeline ServerMessageType = "pipeline"
	// ServerMessageGPUStats carries GPU utilization stats
	ServerMessageGPUStats ServerMessageType = "gpu_stats"
	// ServerMessageClipboard carries base64 clipboard contents
	ServerMessageClipboard ServerMessageType = "clipboard"
	// ServerMessageCursor carries a cursor shape update
	ServerMessageCursor ServerMessageType = "cursor"
	// ServerMessageSystem carries a system action string
	ServerMessageSystem ServerMessageType = "system"
	// ServerMessagePing must be answered immediately with a pong
	ServerMessagePing ServerMessageType = "ping"
	// ServerMessageSystemStats carries host system stats
	ServerMessageSystemStats ServerMessageType = "system_stats"
	// ServerMessageLatency carries a latency measurement
	ServerMessageLatency ServerMessageType = "latency_measurement"
)

// ServerMessage is the inbound JSON envelope {type, data}
type ServerMessage struct {
	Type ServerMessageType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

// DecodeServerMessage parses a raw data-channel payload into the envelope.
// A payload that is not valid JSON is a protocol error, never a crash.
func DecodeServerMessage(payload []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &msg, nil
}

// DecodeData unmarshals the envelope's data field into a typed payload.
func (m *ServerMessage) DecodeData(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// PipelineStatus is the payload of a pipeline message
type PipelineStatus struct {
	Status string `json:"status"`
}

// ClipboardData is the payload of a clipboard message
type ClipboardData struct {
	Content string `json:"content"` // base64 UTF-8
}

// Text decodes the base64 clipboard content.
func (c ClipboardData) Text() (string, error) {
	return Base64ToString(c.Content)
}

// CursorHotspot is the click point inside a cursor image
type CursorHotspot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CursorData is the payload of a cursor shape update
type CursorData struct {
	Handle   int           `json:"handle"`
	Curdata  string        `json:"curdata"` // base64 PNG
	Hotspot  CursorHotspot `json:"hotspot"`
	Override string        `json:"override,omitempty"` // CSS cursor override
}

// SystemData is the payload of a system message
type SystemData struct {
	Action string `json:"action"`
}

// LatencyData is the payload of a latency measurement
type LatencyData struct {
	LatencyMs float64 `json:"latency_ms"`
}

// SystemActionKind identifies a recognized system action prefix
type SystemActionKind string

const (
	SystemActionFramerate    SystemActionKind = "framerate"
	SystemActionVideoBitrate SystemActionKind = "video_bitrate"
	SystemActionAudioBitrate SystemActionKind = "audio_bitrate"
	SystemActionResize       SystemActionKind = "resize"
	SystemActionResolution   SystemActionKind = "resolution"
	SystemActionLocalScaling SystemActionKind = "local_scaling"
	SystemActionEncoder      SystemActionKind = "encoder"
	SystemActionReload       SystemActionKind = "reload"
)

// SystemAction is a parsed system action with its arguments
type SystemAction struct {
	Kind SystemActionKind
	Args []string
	Raw  string
}

// IntArg parses the action's first argument as an integer.
func (a SystemAction) IntArg() (int, error) {
	if len(a.Args) == 0 {
		return 0, fmt.Errorf("%w: %q has no argument", ErrUnknownSystemAction, a.Raw)
	}
	return strconv.Atoi(a.Args[0])
}

// BoolArg parses the action's first argument as a boolean.
func (a SystemAction) BoolArg() (bool, error) {
	if len(a.Args) == 0 {
		return false, fmt.Errorf("%w: %q has no argument", ErrUnknownSystemAction, a.Raw)
	}
	return strconv.ParseBool(a.Args[0])
}

// ParseSystemAction splits an action string on commas and matches the
// leading token against the recognized prefixes.
func ParseSystemAction(action string) (SystemAction, error) {
	if action == "" {
		return SystemAction{}, ErrEmptyAction
	}

	parts := strings.Split(action, ",")
	kind := SystemActionKind(parts[0])
	switch kind {
	case SystemActionFramerate, SystemActionVideoBitrate, SystemActionAudioBitrate,
		SystemActionResize, SystemActionResolution, SystemActionLocalScaling,
		SystemActionEncoder, SystemActionReload:
		return SystemAction{Kind: kind, Args: parts[1:], Raw: action}, nil
	default:
		return SystemAction{Raw: action}, fmt.Errorf("%w: %q", ErrUnknownSystemAction, parts[0])
	}
}
