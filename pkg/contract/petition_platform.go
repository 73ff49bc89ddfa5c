// Package contract reads petition data from the PetitionPlatform contract
// through eth_call. Decoded tuples are normalized once, at this boundary.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/accounts/abi"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/crypto"
	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/petition"
)

//go:embed abi/petition_platform.json
var petitionPlatformABI []byte

const (
	methodAllPetitions    = "getAllPetitions"
	methodActiveBoosted   = "getActiveBoostedPetitions"
	methodPetition        = "getPetition"
	methodTotalPetitions  = "getTotalPetitions"
	methodHasUserSigned   = "hasUserSigned"
	petitionSignedEventID = "PetitionSigned(uint256,address,uint256)"
)

// PetitionSignedTopic is topic 0 of PetitionSigned logs.
var PetitionSignedTopic = crypto.Keccak256Hash([]byte(petitionSignedEventID)).Hex()

// ErrNotFound is returned for a petition id the contract has no record of.
var ErrNotFound = errors.New("petition not found")

// Caller executes a read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// petitionTuple mirrors the Petition struct returned by the contract. Field
// names match the ABI component names so abi.ConvertType can fill it.
type petitionTuple struct {
	Id             *big.Int //nolint:revive // must match the ABI component name
	Title          string
	Description    string
	ImageHash      string
	Creator        common.Address
	CreatedAt      *big.Int
	BoostEndTime   *big.Int
	BoostPriority  *big.Int
	SignatureCount *big.Int
}

func (t petitionTuple) raw() petition.RawRecord {
	return petition.RawRecord{
		ID:             t.Id,
		Title:          t.Title,
		Description:    t.Description,
		ImageHash:      t.ImageHash,
		Creator:        t.Creator,
		CreatedAt:      t.CreatedAt,
		BoostEndTime:   t.BoostEndTime,
		BoostPriority:  t.BoostPriority,
		SignatureCount: t.SignatureCount,
	}
}

// PetitionPlatform is a read-only binding to a deployed PetitionPlatform contract.
type PetitionPlatform struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewPetitionPlatform binds the contract at address. m may be nil.
func NewPetitionPlatform(caller Caller, address string, log *zap.SugaredLogger, m *metrics.Metrics) (*PetitionPlatform, error) {
	if caller == nil {
		return nil, errors.New("contract caller is required")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := abi.JSON(bytes.NewReader(petitionPlatformABI))
	if err != nil {
		return nil, fmt.Errorf("parse petition platform abi: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PetitionPlatform{
		caller:  caller,
		address: common.HexToAddress(address),
		abi:     parsed,
		log:     log,
		metrics: m,
	}, nil
}

// Address returns the bound contract address.
func (p *PetitionPlatform) Address() common.Address {
	return p.address
}

// AllPetitions returns every petition in contract order.
func (p *PetitionPlatform) AllPetitions(ctx context.Context) ([]petition.Record, error) {
	return p.petitionList(ctx, methodAllPetitions)
}

// ActiveBoostedPetitions returns the petitions the contract reports as boosted.
func (p *PetitionPlatform) ActiveBoostedPetitions(ctx context.Context) ([]petition.Record, error) {
	return p.petitionList(ctx, methodActiveBoosted)
}

// Petition returns a single petition, or ErrNotFound when the contract returns
// the zero record for id.
func (p *PetitionPlatform) Petition(ctx context.Context, id uint64) (petition.Record, error) {
	out, err := p.call(ctx, methodPetition, new(big.Int).SetUint64(id))
	if err != nil {
		return petition.Record{}, err
	}
	tuple := *abi.ConvertType(out[0], new(petitionTuple)).(*petitionTuple)
	if tuple.Creator == (common.Address{}) {
		return petition.Record{}, fmt.Errorf("petition %d: %w", id, ErrNotFound)
	}
	rec, err := petition.Normalize(tuple.raw())
	if err != nil {
		p.metrics.IncInvalidRecord()
		return petition.Record{}, err
	}
	return rec, nil
}

// TotalPetitions returns the number of petitions created so far.
func (p *PetitionPlatform) TotalPetitions(ctx context.Context) (uint64, error) {
	out, err := p.call(ctx, methodTotalPetitions)
	if err != nil {
		return 0, err
	}
	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !total.IsUint64() {
		return 0, fmt.Errorf("%s: total %s out of range", methodTotalPetitions, total)
	}
	return total.Uint64(), nil
}

// HasSigned reports whether signer has signed petition id.
func (p *PetitionPlatform) HasSigned(ctx context.Context, id uint64, signer string) (bool, error) {
	if !common.IsHexAddress(signer) {
		return false, fmt.Errorf("invalid signer address %q", signer)
	}
	out, err := p.call(ctx, methodHasUserSigned, new(big.Int).SetUint64(id), common.HexToAddress(signer))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (p *PetitionPlatform) petitionList(ctx context.Context, method string) ([]petition.Record, error) {
	out, err := p.call(ctx, method)
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(out[0], new([]petitionTuple)).(*[]petitionTuple)

	raws := make([]petition.RawRecord, len(tuples))
	for i, t := range tuples {
		raws[i] = t.raw()
	}
	records, err := petition.NormalizeAll(raws)
	if err != nil {
		p.metrics.IncInvalidRecord()
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	p.log.Debugw("fetched petitions",
		"method", method,
		"count", len(records),
	)
	return records, nil
}

func (p *PetitionPlatform) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	ret, err := p.caller.CallContract(ctx, p.address, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := p.abi.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return out, nil
}
