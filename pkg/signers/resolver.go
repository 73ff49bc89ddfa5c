// Package signers resolves the set of addresses that signed a petition by
// scanning PetitionSigned event logs. Every call is a full rescan of the log
// source; nothing is cached between calls.
package signers

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ava-labs/libevm/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/civicchain/petition-discovery/pkg/chainlog"
	"github.com/civicchain/petition-discovery/pkg/metrics"
)

// DefaultTimeout bounds a single resolution when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Topic positions of PetitionSigned(uint256 indexed petitionId, address indexed signer, uint256).
const (
	signerTopic = 2
	minTopics   = 3
)

// Result is the outcome of Resolve. A failed lookup has an empty Signers list
// and a non-nil Err, which tells "could not load" apart from "no signers".
type Result struct {
	PetitionID uint64
	Signers    []string
	Err        error
}

// Failed reports whether the signer list could not be loaded.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Resolver looks up petition signers for one contract.
type Resolver struct {
	querier  chainlog.Querier
	contract string
	timeout  time.Duration
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics

	flights singleflight.Group
}

// NewResolver creates a Resolver for the petition contract at address. A
// non-positive timeout selects DefaultTimeout. m may be nil.
func NewResolver(
	querier chainlog.Querier,
	address string,
	timeout time.Duration,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) (*Resolver, error) {
	if querier == nil {
		return nil, errors.New("log querier is required")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{
		querier:  querier,
		contract: strings.ToLower(common.HexToAddress(address).Hex()),
		timeout:  timeout,
		log:      log,
		metrics:  m,
	}, nil
}

// Filter returns the log filter used to find the signatures of petition id.
func (r *Resolver) Filter(id uint64) chainlog.Filter {
	return chainlog.Filter{
		Address:   r.contract,
		Topics:    [][]string{nil, {EncodePetitionID(id)}},
		FromBlock: chainlog.BlockEarliest,
		ToBlock:   chainlog.BlockLatest,
	}
}

// Lookup returns the sorted, deduplicated signers of petition id. Any failure
// of the log source, including the resolver timeout or ctx cancellation, is
// returned wrapped in ErrLogQuery. The wait is bounded by the resolver timeout
// even when the log source ignores its context.
func (r *Resolver) Lookup(ctx context.Context, id uint64) ([]string, error) {
	ch := r.flights.DoChan(strconv.FormatUint(id, 10), func() (any, error) {
		// The scan outlives any single caller; it is bounded by the resolver timeout.
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.scan(scanCtx, id)
	})

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Shared {
			r.metrics.IncResolutionShared()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]string)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: petition %d: %w", ErrLogQuery, id, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: petition %d: %w", ErrLogQuery, id, context.DeadlineExceeded)
	}
}

// Resolve is the degrading form of Lookup: failures are reported in
// Result.Err with an empty signer list instead of being returned.
func (r *Resolver) Resolve(ctx context.Context, id uint64) Result {
	signers, err := r.Lookup(ctx, id)
	if err != nil {
		r.log.Warnw("signer lookup failed",
			"petitionID", id,
			"error", err,
		)
		return Result{PetitionID: id, Signers: []string{}, Err: err}
	}
	return Result{PetitionID: id, Signers: signers}
}

func (r *Resolver) scan(ctx context.Context, id uint64) (signers []string, err error) {
	start := time.Now()
	var scanned int
	defer func() {
		if p := recover(); p != nil {
			signers, err = nil, fmt.Errorf("%w: petition %d: log source panicked: %v", ErrLogQuery, id, p)
		}
		r.metrics.RecordResolution(err, time.Since(start).Seconds(), scanned, len(signers))
	}()

	entries, err := r.querier.FilterLogs(ctx, r.Filter(id))
	if err != nil {
		return nil, fmt.Errorf("%w: petition %d: %w", ErrLogQuery, id, err)
	}
	scanned = len(entries)

	set := make(map[string]struct{}, len(entries))
	var short, invalid int
	for _, e := range entries {
		if len(e.Topics) < minTopics {
			short++
			continue
		}
		addr, decodeErr := SignerFromTopic(e.Topics[signerTopic])
		if decodeErr != nil {
			invalid++
			r.log.Debugw("skipping log entry",
				"petitionID", id,
				"txHash", e.TxHash,
				"logIndex", e.LogIndex,
				"error", decodeErr,
			)
			continue
		}
		set[addr] = struct{}{}
	}
	r.metrics.AddLogsSkipped(metrics.SkipShortTopics, short)
	r.metrics.AddLogsSkipped(metrics.SkipInvalidSigner, invalid)
	if short > 0 {
		r.log.Debugw("skipped log entries with too few topics",
			"petitionID", id,
			"count", short,
		)
	}

	signers = slices.Sorted(maps.Keys(set))
	if signers == nil {
		signers = []string{}
	}
	return signers, nil
}
