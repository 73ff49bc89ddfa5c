package petition

import (
	"cmp"
	"slices"
	"time"
)

// Rank returns a copy of records ordered for mode at the reference instant now.
// The input slice is not modified. Unrecognised modes keep input order.
func Rank(records []Record, now time.Time, mode Mode) []Record {
	out := slices.Clone(records)
	if out == nil {
		out = []Record{}
	}

	if mode == "" {
		mode = DefaultMode
	}

	var compare func(a, b Record) int
	switch mode {
	case ModeTrending:
		ts := now.Unix()
		compare = func(a, b Record) int {
			return boostFirst(a, b, ts, func(a, b Record) int {
				return cmp.Compare(b.SignatureCount, a.SignatureCount)
			})
		}
	case ModeFeatured:
		ts := now.Unix()
		compare = func(a, b Record) int {
			return boostFirst(a, b, ts, byCreatedDesc)
		}
	case ModeNewest:
		compare = byCreatedDesc
	default:
		return out
	}

	slices.SortStableFunc(out, compare)
	return out
}

// boostFirst places boosted records ahead of the rest and orders two boosted
// records by priority. Two unboosted records are handed to rest.
func boostFirst(a, b Record, now int64, rest func(a, b Record) int) int {
	aBoosted, bBoosted := a.BoostEndTime > now, b.BoostEndTime > now
	switch {
	case aBoosted && bBoosted:
		return cmp.Compare(b.BoostPriority, a.BoostPriority)
	case aBoosted:
		return -1
	case bBoosted:
		return 1
	default:
		return rest(a, b)
	}
}

func byCreatedDesc(a, b Record) int {
	return cmp.Compare(b.CreatedAt, a.CreatedAt)
}
