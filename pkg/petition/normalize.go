package petition

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ava-labs/libevm/common"
)

// UntitledPlaceholder replaces an empty or blank title.
const UntitledPlaceholder = "Untitled"

// ErrInvalidField marks a record with a missing id or an integer field that is
// negative or out of range for its typed counterpart.
var ErrInvalidField = errors.New("invalid petition field")

// RawRecord is a petition as decoded from the contract. Any field may be
// missing; integers are unbounded.
type RawRecord struct {
	ID             *big.Int
	Title          string
	Description    string
	ImageHash      string
	Creator        common.Address
	CreatedAt      *big.Int
	BoostEndTime   *big.Int
	BoostPriority  *big.Int
	SignatureCount *big.Int
}

// Normalize maps raw into a Record, applying defaults for absent text and
// counters. Integers that are negative or do not fit the target type fail with
// ErrInvalidField rather than being coerced. A missing ID is also an error.
func Normalize(raw RawRecord) (Record, error) {
	if raw.ID == nil {
		return Record{}, fmt.Errorf("%w: id is missing", ErrInvalidField)
	}
	id, err := toUint64("id", raw.ID)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:          id,
		Title:       raw.Title,
		Description: raw.Description,
		ImageHash:   raw.ImageHash,
		Creator:     strings.ToLower(raw.Creator.Hex()),
	}
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = UntitledPlaceholder
	}

	if rec.CreatedAt, err = toInt64("createdAt", raw.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("petition %d: %w", id, err)
	}
	if rec.BoostEndTime, err = toInt64("boostEndTime", raw.BoostEndTime); err != nil {
		return Record{}, fmt.Errorf("petition %d: %w", id, err)
	}
	if rec.BoostPriority, err = toUint64("boostPriority", raw.BoostPriority); err != nil {
		return Record{}, fmt.Errorf("petition %d: %w", id, err)
	}
	if rec.SignatureCount, err = toUint64("signatureCount", raw.SignatureCount); err != nil {
		return Record{}, fmt.Errorf("petition %d: %w", id, err)
	}
	return rec, nil
}

// NormalizeAll normalizes every record and stops at the first invalid one.
func NormalizeAll(raws []RawRecord) ([]Record, error) {
	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func toUint64(field string, v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s=%s", ErrInvalidField, field, v)
	}
	return v.Uint64(), nil
}

func toInt64(field string, v *big.Int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s=%s", ErrInvalidField, field, v)
	}
	return v.Int64(), nil
}
