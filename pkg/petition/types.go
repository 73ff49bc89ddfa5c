package petition

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects the ordering applied by Rank.
type Mode string

const (
	ModeTrending Mode = "trending"
	ModeNewest   Mode = "newest"
	ModeFeatured Mode = "featured"
)

// DefaultMode is used when no mode is given.
const DefaultMode = ModeTrending

// ErrUnknownMode is returned by ParseMode for a mode it does not recognise.
var ErrUnknownMode = errors.New("unknown ranking mode")

// ParseMode validates a user supplied mode. The empty string maps to DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultMode, nil
	case ModeTrending, ModeNewest, ModeFeatured:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Record is a fully typed petition snapshot.
type Record struct {
	ID             uint64 `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ImageHash      string `json:"imageHash,omitempty"`
	Creator        string `json:"creator"`
	CreatedAt      int64  `json:"createdAt"`
	SignatureCount uint64 `json:"signatureCount"`
	BoostEndTime   int64  `json:"boostEndTime"`
	BoostPriority  uint64 `json:"boostPriority"`
}

// IsBoosted reports whether the boost window is still open at now.
func (r Record) IsBoosted(now time.Time) bool {
	return r.BoostEndTime > now.Unix()
}

// CreatedTime returns CreatedAt as a UTC time.
func (r Record) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}
