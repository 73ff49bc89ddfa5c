package chainlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	t.Parallel()
	entry := Entry{
		Address: "0xAbC0000000000000000000000000000000000001",
		Topics:  []string{"0xsig", "0xID", "0xsigner"},
	}
	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{name: "empty filter", f: Filter{}, want: true},
		{name: "address case-insensitive", f: Filter{Address: "0xabc0000000000000000000000000000000000001"}, want: true},
		{name: "address mismatch", f: Filter{Address: "0xdef0000000000000000000000000000000000001"}, want: false},
		{name: "wildcard then value", f: Filter{Topics: [][]string{nil, {"0xid"}}}, want: true},
		{name: "any of values", f: Filter{Topics: [][]string{{"0xother", "0xSIG"}}}, want: true},
		{name: "value mismatch", f: Filter{Topics: [][]string{nil, {"0xnope"}}}, want: false},
		{name: "position beyond entry topics", f: Filter{Topics: [][]string{nil, nil, nil, {"0x1"}}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.f.Matches(entry))
		})
	}
}
