package chainclient

import (
	"context"

	"github.com/ava-labs/libevm/common"

	"github.com/civicchain/petition-discovery/pkg/chainlog"
)

// ChainClient is the read-only view of an EVM chain used by the service:
// log queries for signer resolution and eth_call for contract reads.
type ChainClient interface {
	chainlog.Querier
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (uint64, error)
	Close()
}
