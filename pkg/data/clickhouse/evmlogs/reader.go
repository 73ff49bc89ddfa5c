// Package evmlogs answers log filters from the raw_logs table written by an
// EVM block indexer. It never creates or writes tables.
package evmlogs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ava-labs/libevm/common/hexutil"
	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/pkg/chainlog"
	"github.com/civicchain/petition-discovery/pkg/clickhouse"
	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/utils"
)

const (
	addressSize = 20
	wordSize    = 32
)

// Reader implements chainlog.Querier over ClickHouse.
type Reader struct {
	client  clickhouse.Client
	table   string
	chainID uint64
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

var _ chainlog.Querier = (*Reader)(nil)

// NewReader creates a Reader for table, restricted to rows of chainID.
func NewReader(client clickhouse.Client, table string, chainID uint64, log *zap.SugaredLogger, m *metrics.Metrics) *Reader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reader{
		client:  client,
		table:   table,
		chainID: chainID,
		log:     log,
		metrics: m,
	}
}

// FilterLogs selects non-removed logs matching f in block and log index order.
func (r *Reader) FilterLogs(ctx context.Context, f chainlog.Filter) (entries []chainlog.Entry, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordClickHouseQuery(err, time.Since(start).Seconds())
	}()

	query, args, err := r.buildQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries = []chainlog.Entry{}
	for rows.Next() {
		var (
			address  string
			topics   []string
			block    uint64
			txHash   string
			logIndex uint32
		)
		if err := rows.Scan(&address, &topics, &block, &txHash, &logIndex); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entry := chainlog.Entry{
			Address:     utils.FixedStringToHex(address),
			Topics:      make([]string, len(topics)),
			BlockNumber: block,
			TxHash:      utils.FixedStringToHex(txHash),
			LogIndex:    uint64(logIndex),
		}
		for i, t := range topics {
			entry.Topics[i] = utils.FixedStringToHex(t)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log rows: %w", err)
	}

	r.log.Debugw("queried logs",
		"table", r.table,
		"address", f.Address,
		"count", len(entries),
	)
	return entries, nil
}

func (r *Reader) buildQuery(f chainlog.Filter) (string, []any, error) {
	var (
		where = []string{"evm_chain_id = toUInt256(?)", "removed = 0"}
		args  = []any{strconv.FormatUint(r.chainID, 10)}
	)

	if f.Address != "" {
		addr, err := utils.HexToFixedString(f.Address, addressSize)
		if err != nil {
			return "", nil, fmt.Errorf("invalid address %q: %w", f.Address, err)
		}
		where = append(where, "address = ?")
		args = append(args, addr)
	}

	for i, alternatives := range f.Topics {
		if len(alternatives) == 0 {
			continue
		}
		words := make([]string, len(alternatives))
		for j, topic := range alternatives {
			word, err := utils.HexToFixedString(topic, wordSize)
			if err != nil {
				return "", nil, fmt.Errorf("invalid topic %d %q: %w", i, topic, err)
			}
			words[j] = word
		}
		// ClickHouse arrays are 1-indexed.
		where = append(where, fmt.Sprintf("length(topics) > %d AND has(?, topics[%d])", i, i+1))
		args = append(args, words)
	}

	from, err := blockBound(f.FromBlock)
	if err != nil {
		return "", nil, fmt.Errorf("invalid fromBlock: %w", err)
	}
	if from != nil {
		where = append(where, "block_number >= ?")
		args = append(args, *from)
	}
	to, err := blockBound(f.ToBlock)
	if err != nil {
		return "", nil, fmt.Errorf("invalid toBlock: %w", err)
	}
	if to != nil {
		where = append(where, "block_number <= ?")
		args = append(args, *to)
	}

	query := fmt.Sprintf(`
		SELECT address, topics, block_number, tx_hash, log_index
		FROM %s
		WHERE %s
		ORDER BY block_number, log_index`, r.table, strings.Join(where, "\n\t\t  AND "))
	return query, args, nil
}

// blockBound returns nil for an open bound. The table only holds indexed
// blocks, so "latest" is open as well.
func blockBound(tag string) (*uint64, error) {
	switch tag {
	case "", chainlog.BlockEarliest, chainlog.BlockLatest:
		return nil, nil
	}
	n, err := hexutil.DecodeUint64(tag)
	if err != nil {
		return nil, fmt.Errorf("unsupported block %q: %w", tag, err)
	}
	return &n, nil
}
