package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexToFixedString converts a 0x-prefixed (or bare) hex string into the raw
// bytes of a ClickHouse FixedString(size) value. Shorter input is left padded
// with zeros; longer input is rejected.
func HexToFixedString(hexStr string, size int) (string, error) {
	hexStr = strings.TrimPrefix(strings.TrimPrefix(hexStr, "0x"), "0X")
	if len(hexStr) > 2*size {
		return "", fmt.Errorf("hex value has %d digits, want at most %d", len(hexStr), 2*size)
	}
	if len(hexStr)%2 == 1 {
		hexStr = "0" + hexStr
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", fmt.Errorf("decode hex: %w", err)
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return string(out), nil
}

// FixedStringToHex renders raw FixedString bytes as lowercase 0x-prefixed hex.
func FixedStringToHex(raw string) string {
	return "0x" + hex.EncodeToString([]byte(raw))
}
