package signers

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ava-labs/libevm/common"
)

const addressHexLen = 2 * common.AddressLength

// EncodePetitionID returns id as a 32-byte big-endian topic word: "0x" followed
// by 64 lowercase hex digits, left padded with zeros.
func EncodePetitionID(id uint64) string {
	return common.BigToHash(new(big.Int).SetUint64(id)).Hex()
}

// SignerFromTopic decodes an indexed address topic. The address is the last 40
// hex digits of the word, returned lowercased.
func SignerFromTopic(topic string) (string, error) {
	if !strings.HasPrefix(topic, "0x") && !strings.HasPrefix(topic, "0X") {
		return "", fmt.Errorf("%w: topic %q lacks 0x prefix", ErrDecode, topic)
	}
	body := topic[2:]
	if len(body) < addressHexLen {
		return "", fmt.Errorf("%w: topic %q shorter than an address", ErrDecode, topic)
	}
	addr := "0x" + strings.ToLower(body[len(body)-addressHexLen:])
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: topic %q is not hex", ErrDecode, topic)
	}
	return addr, nil
}
