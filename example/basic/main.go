/*
 * Example: Basic Client Usage
 *
 * Standalone demo walking through the client building blocks without a
 * signalling server: wire codec, frame mapping, wheel discrimination,
 * gamepad sampling and headless client wiring.
 *
 * Build: go build -o selkies_example example/basic/main.go
 */
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/maksgranko/selkies/pkg/client"
	"github.com/maksgranko/selkies/pkg/gamepad"
	"github.com/maksgranko/selkies/pkg/input"
	"github.com/maksgranko/selkies/pkg/protocol"
)

func main() {
	fmt.Println("=== Selkies Client Basic Example ===")
	fmt.Println()

	// 1. Wire codec
	fmt.Println("1. Encoding wire messages...")
	fmt.Printf("   pointer:   %s\n", protocol.EncodePointerAbsolute(640, 360, 1, 0))
	fmt.Printf("   key down:  %s\n", protocol.EncodeKeyDown(0xff0d))
	fmt.Printf("   clipboard: %s\n", protocol.EncodeClipboardWrite("hello"))
	fmt.Printf("   axis 0.5:  normalized to %d\n", protocol.NormalizeAxis(0.5))

	// 2. Window-to-frame mapping
	fmt.Println("\n2. Frame Mapping...")
	mapping := input.ComputeMapping(1920, 1080, 1280, 800, 0, 0)
	x, y := mapping.ClientToFrame(640, 400)
	fmt.Printf("   client (640,400) -> frame (%d,%d)\n", x, y)

	// 3. Wheel discrimination
	fmt.Println("\n3. Wheel Discrimination...")
	wheel := input.NewWheelFilter()
	now := time.Now()
	for _, d := range []float64{90, 90, 90, 90} {
		wheel.Sample(d, now)
	}
	fmt.Printf("   [90,90,90,90] classified as mouse: %t\n", wheel.IsMouse())

	// 4. Gamepad sampling with a scripted provider
	fmt.Println("\n4. Gamepad Sampling...")
	provider := &scriptedPads{}
	sampler := gamepad.NewSampler(provider, gamepad.DefaultConfig())
	sampler.SetOnConnect(func(index int, id string, numAxes, numButtons int) {
		fmt.Printf("   + pad %d connected: %s (%d axes, %d buttons)\n", index, id, numAxes, numButtons)
	})
	sampler.SetOnAxis(func(index, axis, value int) {
		fmt.Printf("   → pad %d axis %d = %d\n", index, axis, value)
	})
	sampler.Sample()
	provider.tilt = 0.75
	sampler.Sample()
	sampler.Stop()

	// 5. Headless client wiring
	fmt.Println("\n5. Client Wiring...")
	config := client.DefaultConfig("desktop.example.com")
	config.AppName = "demo"
	fmt.Printf("   signalling URL: %s\n", config.SignallingURL())

	c := client.New(config, &nullSink{}, &nullSink{}, nil, nil)
	defer c.Close()
	c.SetOnStatus(func(msg string) {
		fmt.Printf("   status: %s\n", msg)
	})
	c.SetOnReload(func() {
		fmt.Println("   reload requested")
	})

	c.Settings().SetInt(client.SettingVideoFPS, 120)
	fmt.Printf("   stored fps: %d\n", c.Settings().GetInt(client.SettingVideoFPS, 60))

	if host := os.Getenv("SELKIES_HOST"); host != "" {
		fmt.Printf("\n6. Connecting to %s...\n", host)
		live := client.New(client.DefaultConfig(host), &nullSink{}, &nullSink{}, nil, nil)
		defer live.Close()
		if err := live.Connect(); err != nil {
			fmt.Printf("   Error: %v\n", err)
		} else {
			time.Sleep(5 * time.Second)
		}
	}

	fmt.Println("\n=== Example Complete ===")
}

// scriptedPads is a Provider with one pad whose first axis is scripted.
type scriptedPads struct {
	tilt float64
}

func (p *scriptedPads) Poll() []*gamepad.State {
	return []*gamepad.State{
		{ID: "Example Pad", Buttons: make([]float64, 12), Axes: []float64{p.tilt, 0, 0, 0}},
	}
}

// nullSink discards media; it stands in for a video element headlessly.
type nullSink struct{}

func (*nullSink) AttachTrack(*webrtc.TrackRemote) error { return nil }
func (*nullSink) Play() error                           { return nil }
func (*nullSink) Load()                                 {}
func (*nullSink) IntrinsicSize() (int, int)             { return 1920, 1080 }
func (*nullSink) LayoutSize() (int, int)                { return 1920, 1080 }
func (*nullSink) Paused() bool                          { return false }
