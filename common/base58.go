package common

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

const checksumLen = 4

// EncodeCheck encodes version||payload with a 4-byte double SHA-256 checksum in base58.
func EncodeCheck(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+checksumLen)
	buf = append(buf, version)
	buf = append(buf, payload...)
	sum := DoubleSHA256(buf)
	buf = append(buf, sum[:checksumLen]...)
	return base58.Encode(buf)
}

// DecodeCheck reverses EncodeCheck and validates the checksum.
func DecodeCheck(s string) (byte, []byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	if len(raw) < 1+checksumLen {
		return 0, nil, fmt.Errorf("base58check string too short: %d bytes", len(raw))
	}
	body := raw[:len(raw)-checksumLen]
	sum := DoubleSHA256(body)
	if !bytes.Equal(sum[:checksumLen], raw[len(raw)-checksumLen:]) {
		return 0, nil, fmt.Errorf("base58check checksum mismatch")
	}
	return body[0], body[1:], nil
}

// IsValidBase58 checks if a string is valid base58
func IsValidBase58(str string) bool {
	decoded, err := base58.Decode(str)
	return err == nil && len(decoded) > 0
}
