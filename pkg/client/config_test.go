package client

import "testing"

func TestSignallingURL(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name:     "defaults",
			mutate:   func(c *Config) {},
			expected: "wss://desktop.example.com/webrtc/signalling/",
		},
		{
			name: "insecure with port",
			mutate: func(c *Config) {
				c.Secure = false
				c.Port = 8080
			},
			expected: "ws://desktop.example.com:8080/webrtc/signalling/",
		},
		{
			name: "base path",
			mutate: func(c *Config) {
				c.BasePath = "/apps"
			},
			expected: "wss://desktop.example.com/apps/webrtc/signalling/",
		},
		{
			name: "base path with trailing slash",
			mutate: func(c *Config) {
				c.BasePath = "/apps/"
			},
			expected: "wss://desktop.example.com/apps/webrtc/signalling/",
		},
		{
			name: "app name",
			mutate: func(c *Config) {
				c.AppName = "desktop"
			},
			expected: "wss://desktop.example.com/desktop/signalling/",
		},
	}

	for _, tc := range cases {
		config := DefaultConfig("desktop.example.com")
		tc.mutate(&config)
		if got := config.SignallingURL(); got != tc.expected {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}
