package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	corethrpc "github.com/ava-labs/coreth/rpc"
	subnetrpc "github.com/ava-labs/subnet-evm/rpc"

	"github.com/civicchain/petition-discovery/internal/chainclient"
	"github.com/civicchain/petition-discovery/pkg/chainlog"
	"github.com/civicchain/petition-discovery/pkg/metrics"
)

// Supported JSON-RPC client implementations.
const (
	ClientTypeCoreth    = "coreth"
	ClientTypeSubnetEVM = "subnet-evm"
)

const (
	methodGetLogs     = "eth_getLogs"
	methodCall        = "eth_call"
	methodBlockNumber = "eth_blockNumber"
	methodChainID     = "eth_chainId"
)

// rpcConn is the subset of the coreth and subnet-evm RPC clients in use.
type rpcConn interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// Client wraps a JSON-RPC connection to an EVM node.
type Client struct {
	rpc     rpcConn
	log     *zap.SugaredLogger
	metrics *metrics.Metrics // nil if metrics disabled

	// Caps concurrent requests to the node; nil means unbounded.
	inflight *semaphore.Weighted
}

var _ chainclient.ChainClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithMetrics enables metrics collection for the client.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithMaxInFlight caps the number of concurrent RPC requests. n <= 0 leaves
// requests unbounded.
func WithMaxInFlight(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.inflight = semaphore.NewWeighted(n)
		}
	}
}

// WithLogger sets the logger used for per-entry decode diagnostics.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Dial connects to url with the RPC implementation named by clientType.
func Dial(ctx context.Context, clientType, url string, opts ...Option) (*Client, error) {
	var conn rpcConn
	switch clientType {
	case ClientTypeCoreth:
		c, err := corethrpc.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial coreth rpc: %w", err)
		}
		conn = c
	case ClientTypeSubnetEVM:
		c, err := subnetrpc.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial subnet-evm rpc: %w", err)
		}
		conn = c
	default:
		return nil, fmt.Errorf("invalid client type: %s", clientType)
	}
	return newClient(conn, opts...), nil
}

func newClient(conn rpcConn, opts ...Option) *Client {
	client := &Client{
		rpc: conn,
		log: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// rpcLog is the eth_getLogs wire format. Block number and log index are
// pointers because pending logs report them as null.
type rpcLog struct {
	Address     string          `json:"address"`
	Topics      []string        `json:"topics"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	TxHash      string          `json:"transactionHash"`
	LogIndex    *hexutil.Uint64 `json:"logIndex"`
	Removed     bool            `json:"removed"`
}

// FilterLogs runs eth_getLogs. Entries are decoded one by one; a malformed or
// removed entry is skipped without failing the whole response.
func (c *Client) FilterLogs(ctx context.Context, f chainlog.Filter) ([]chainlog.Entry, error) {
	var raw []json.RawMessage
	if err := c.call(ctx, &raw, methodGetLogs, toFilterArg(f)); err != nil {
		return nil, err
	}

	entries := make([]chainlog.Entry, 0, len(raw))
	var malformed int
	for i, msg := range raw {
		var l rpcLog
		if err := json.Unmarshal(msg, &l); err != nil {
			malformed++
			c.log.Debugw("skipping malformed log entry",
				"index", i,
				"error", err,
			)
			continue
		}
		if l.Removed {
			continue
		}
		entry := chainlog.Entry{
			Address: l.Address,
			Topics:  l.Topics,
			TxHash:  l.TxHash,
		}
		if l.BlockNumber != nil {
			entry.BlockNumber = uint64(*l.BlockNumber)
		}
		if l.LogIndex != nil {
			entry.LogIndex = uint64(*l.LogIndex)
		}
		entries = append(entries, entry)
	}
	c.metrics.AddLogsSkipped(metrics.SkipMalformedLog, malformed)

	return entries, nil
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]any{
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	var out hexutil.Bytes
	if err := c.call(ctx, &out, methodCall, msg, chainlog.BlockLatest); err != nil {
		return nil, err
	}
	return out, nil
}

// BlockNumber returns the height of the latest block.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, methodBlockNumber); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// ChainID returns the chain ID reported by the node.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.call(ctx, &id, methodChainID); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if c.inflight != nil {
		if err := c.inflight.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		defer c.inflight.Release(1)
	}

	start := time.Now()
	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	err := c.rpc.CallContext(ctx, result, method, args...)
	c.metrics.RecordRPCCall(method, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func toFilterArg(f chainlog.Filter) map[string]any {
	arg := map[string]any{
		"fromBlock": blockTag(f.FromBlock, chainlog.BlockEarliest),
		"toBlock":   blockTag(f.ToBlock, chainlog.BlockLatest),
	}
	if f.Address != "" {
		arg["address"] = f.Address
	}
	if len(f.Topics) > 0 {
		topics := make([]any, len(f.Topics))
		for i, t := range f.Topics {
			switch len(t) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = t[0]
			default:
				topics[i] = t
			}
		}
		arg["topics"] = topics
	}
	return arg
}

func blockTag(tag, fallback string) string {
	if tag == "" {
		return fallback
	}
	return tag
}
