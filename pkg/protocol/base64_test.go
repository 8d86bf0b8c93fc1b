package protocol

import "testing"

func TestBase64RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"with,commas,inside",
		"héllo wörld",
		"日本語のテキスト",
		"emoji 🎮🖱️",
	}
	for _, s := range inputs {
		decoded, err := Base64ToString(StringToBase64(s))
		if err != nil {
			t.Fatalf("Round trip of %q failed: %v", s, err)
		}
		if decoded != s {
			t.Errorf("Round trip of %q produced %q", s, decoded)
		}
	}
}

func TestBase64ToStringInvalid(t *testing.T) {
	if _, err := Base64ToString("!!not base64!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}
