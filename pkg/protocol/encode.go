// Package protocol implements the compact text protocol carried over the
// remote-desktop data channel and the JSON envelope pushed by the server.
// All encode/decode functions are stateless and deterministic.
package protocol

import (
	"fmt"
	"math"
	"strconv"
)

// AxisDeadZone is the magnitude below which an analog axis sample is
// clamped to center before normalization.
const AxisDeadZone = 0.05

// EncodePointerAbsolute encodes an absolute pointer sample. Coordinates
// are in remote-frame pixel space, mask is the accumulated button bitmask
// and magnitude the wheel magnitude for synthetic scroll buttons.
func EncodePointerAbsolute(x, y int, mask uint8, magnitude int) string {
	return fmt.Sprintf("m,%d,%d,%d,%d", x, y, mask, magnitude)
}

// EncodePointerRelative encodes a pointer-locked relative motion sample.
func EncodePointerRelative(dx, dy int, mask uint8, magnitude int) string {
	return fmt.Sprintf("m2,%d,%d,%d,%d", dx, dy, mask, magnitude)
}

// EncodeKeyDown encodes a key press for an X11-style keysym.
func EncodeKeyDown(keysym uint32) string {
	return fmt.Sprintf("kd,%d", keysym)
}

// EncodeKeyUp encodes a key release.
func EncodeKeyUp(keysym uint32) string {
	return fmt.Sprintf("ku,%d", keysym)
}

// EncodeKeyReset encodes a release-all message clearing stuck keys.
func EncodeKeyReset() string {
	return "kr"
}

// EncodePointerVisible tells the remote whether to render its own cursor.
func EncodePointerVisible(visible bool) string {
	if visible {
		return "p,1"
	}
	return "p,0"
}

// EncodeJoystickConnect announces an attached gamepad. The id travels
// base64-encoded since vendor strings may contain commas.
func EncodeJoystickConnect(index int, id string, numAxes, numButtons int) string {
	return fmt.Sprintf("js,c,%d,%s,%d,%d", index, StringToBase64(id), numAxes, numButtons)
}

// EncodeJoystickDisconnect announces a detached gamepad.
func EncodeJoystickDisconnect(index int) string {
	return fmt.Sprintf("js,d,%d", index)
}

// EncodeJoystickButton encodes an analog/digital button sample in [0,1].
func EncodeJoystickButton(index, button int, value float64) string {
	return fmt.Sprintf("js,b,%d,%d,%s", index, button, strconv.FormatFloat(value, 'f', -1, 64))
}

// EncodeJoystickAxis encodes a normalized axis sample in [0,255].
func EncodeJoystickAxis(index, axis, value int) string {
	return fmt.Sprintf("js,a,%d,%d,%d", index, axis, value)
}

// EncodeVideoBitrate requests a video encode bitrate in kbps.
func EncodeVideoBitrate(kbps int) string {
	return fmt.Sprintf("vb,%d", kbps)
}

// EncodeAudioBitrate requests an audio bitrate in bps.
func EncodeAudioBitrate(bps int) string {
	return fmt.Sprintf("ab,%d", bps)
}

// EncodeResizeArg requests remote-side resize behavior with the client's
// current resolution as "WxH".
func EncodeResizeArg(enabled bool, resolution string) string {
	return fmt.Sprintf("_arg_resize,%t,%s", enabled, resolution)
}

// EncodeFPSArg requests a remote frame rate.
func EncodeFPSArg(fps int) string {
	return fmt.Sprintf("_arg_fps,%d", fps)
}

// EncodeClipboardRead asks the remote for its clipboard contents.
func EncodeClipboardRead() string {
	return "cr"
}

// EncodeClipboardWrite pushes local clipboard text to the remote.
func EncodeClipboardWrite(text string) string {
	return "cw," + StringToBase64(text)
}

// EncodeVideoStats forwards a raw video stats dump for telemetry.
func EncodeVideoStats(statsJSON string) string {
	return "_stats_video," + statsJSON
}

// EncodeAudioStats forwards a raw audio stats dump for telemetry.
func EncodeAudioStats(statsJSON string) string {
	return "_stats_audio," + statsJSON
}

// EncodeClientFPS reports the client's measured frame rate.
func EncodeClientFPS(fps int) string {
	return fmt.Sprintf("_f,%d", fps)
}

// EncodeClientLatency reports the client's measured latency in ms.
func EncodeClientLatency(latencyMs int) string {
	return fmt.Sprintf("_l,%d", latencyMs)
}

// EncodePong answers a server ping with a unix-seconds timestamp.
func EncodePong(unixSeconds int64) string {
	return fmt.Sprintf("pong,%d", unixSeconds)
}

// NormalizeAxis clamps a raw analog value to center inside the dead zone,
// then maps [-1,1] linearly onto [0,255].
func NormalizeAxis(value float64) int {
	if math.Abs(value) < AxisDeadZone {
		value = 0
	}
	n := int(math.Round((value + 1) / 2 * 255))
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}
