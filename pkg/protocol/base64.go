package protocol

import (
	"encoding/base64"
	"fmt"
)

// StringToBase64 encodes a UTF-8 string as standard base64.
func StringToBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Base64ToString decodes standard base64 back into a UTF-8 string.
// Multi-byte characters round-trip unchanged.
func Base64ToString(s string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return string(data), nil
}
