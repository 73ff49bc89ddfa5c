// Package chainlog defines the read-only log query capability consumed by the
// signer resolver. Implementations live next to their transport: JSON-RPC in
// internal/chainclient/evm and ClickHouse in pkg/data/clickhouse/evmlogs.
package chainlog

import (
	"context"
	"strings"
)

// Block tags accepted in Filter.FromBlock and Filter.ToBlock. Numeric bounds
// are 0x-prefixed hex quantities.
const (
	BlockEarliest = "earliest"
	BlockLatest   = "latest"
)

// Filter selects log entries. Topics is positional: a nil or empty position
// matches any value, a non-empty position matches any of its values.
type Filter struct {
	Address   string
	Topics    [][]string
	FromBlock string
	ToBlock   string
}

// Entry is a raw log entry. Topics are 0x-prefixed 32-byte hex words as
// returned by the provider; they are not validated here.
type Entry struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	BlockNumber uint64   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	LogIndex    uint64   `json:"logIndex"`
}

// Querier answers a log filter with every matching entry in a single call.
type Querier interface {
	FilterLogs(ctx context.Context, f Filter) ([]Entry, error)
}

// Matches reports whether e satisfies the address and topic constraints of f.
// Block bounds are not checked. Comparison is case-insensitive.
func (f Filter) Matches(e Entry) bool {
	if f.Address != "" && !strings.EqualFold(f.Address, e.Address) {
		return false
	}
	for i, want := range f.Topics {
		if len(want) == 0 {
			continue
		}
		if i >= len(e.Topics) {
			return false
		}
		ok := false
		for _, w := range want {
			if strings.EqualFold(w, e.Topics[i]) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
