package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// FuzzHexToFixedString checks that accepted input always yields size bytes and
// round-trips through FixedStringToHex.
// Run with: go test -fuzz=FuzzHexToFixedString -fuzztime=30s ./pkg/utils/
func FuzzHexToFixedString(f *testing.F) {
	f.Add("")
	f.Add("0x")
	f.Add("0x0")
	f.Add("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")
	f.Add("0xGGGG")
	f.Add("0x" + string(make([]byte, 1000)))

	f.Fuzz(func(t *testing.T, input string) {
		raw, err := HexToFixedString(input, 32)
		if err != nil {
			return
		}
		require.Len(t, raw, 32)

		digits := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X"))
		want := strings.Repeat("0", 64-len(digits)) + digits
		require.Equal(t, "0x"+want, FixedStringToHex(raw))
	})
}
