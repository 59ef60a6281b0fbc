package block

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/mnlight/common"
)

// CompactToTarget decodes the compact "bits" form of a target.
func CompactToTarget(bits uint32) (target *uint256.Int, negative bool, overflow bool) {
	size := bits >> 24
	word := uint64(bits & 0x007fffff)

	target = new(uint256.Int)
	if size <= 3 {
		word >>= 8 * (3 - size)
		target.SetUint64(word)
	} else {
		if size <= 34 {
			target.SetUint64(word)
			target.Lsh(target, uint(8*(size-3)))
		}
	}
	negative = word != 0 && bits&0x00800000 != 0
	overflow = word != 0 && (size > 34 || (word > 0xff && size > 33) || (word > 0xffff && size > 32))
	return target, negative, overflow
}

// TargetToCompact encodes a target in compact form, rounding down.
func TargetToCompact(target *uint256.Int) uint32 {
	size := uint32((target.BitLen() + 7) / 8)
	var compact uint64
	if size <= 3 {
		compact = target.Uint64() << (8 * (3 - size))
	} else {
		compact = new(uint256.Int).Rsh(target, uint(8*(size-3))).Uint64()
	}
	if compact&0x00800000 != 0 {
		compact >>= 8
		size++
	}
	return uint32(compact) | size<<24
}

// TargetFromBits decodes bits and rejects negative, overflowing or zero targets.
func TargetFromBits(bits uint32) (*uint256.Int, error) {
	target, negative, overflow := CompactToTarget(bits)
	switch {
	case negative:
		return nil, fmt.Errorf("target %08x is negative", bits)
	case overflow:
		return nil, fmt.Errorf("target %08x overflows", bits)
	case target.IsZero():
		return nil, fmt.Errorf("target %08x is zero", bits)
	}
	return target, nil
}

// HashToInt reads a block hash as a little-endian 256-bit integer.
func HashToInt(h common.Hash) *uint256.Int {
	var be [common.HashSize]byte
	for i := 0; i < common.HashSize; i++ {
		be[i] = h[common.HashSize-1-i]
	}
	return new(uint256.Int).SetBytes32(be[:])
}

// CalcWork returns the expected number of hashes to meet the target encoded by bits,
// computed as 2^256 / (target+1).
func CalcWork(bits uint32) *uint256.Int {
	target, negative, overflow := CompactToTarget(bits)
	if negative || overflow || target.IsZero() {
		return new(uint256.Int)
	}
	// (~target / (target+1)) + 1 == 2^256 / (target+1) without a 257-bit intermediate
	denom := new(uint256.Int).AddUint64(target, 1)
	work := new(uint256.Int).Not(target)
	work.Div(work, denom)
	return work.AddUint64(work, 1)
}

// CheckProofOfWork verifies that bits encode a valid target not above powLimit and
// that the header hash meets it.
func CheckProofOfWork(h *Header, powLimit *uint256.Int) error {
	target, err := TargetFromBits(h.Bits)
	if err != nil {
		return err
	}
	if target.Gt(powLimit) {
		return fmt.Errorf("target %08x is above the proof of work limit", h.Bits)
	}
	hash := h.BlockHash()
	if HashToInt(hash).Gt(target) {
		return fmt.Errorf("hash %s is above target %08x", hash, h.Bits)
	}
	return nil
}

// CalcRetarget scales the previous target by actual/expected timespan. The actual
// timespan is clamped to [expected/4, expected*4] and the result capped at powLimit.
func CalcRetarget(prevBits uint32, actualTimespan, targetTimespan int64, powLimit *uint256.Int) (uint32, error) {
	if targetTimespan <= 0 {
		return 0, fmt.Errorf("invalid target timespan %d", targetTimespan)
	}
	minSpan := targetTimespan / 4
	maxSpan := targetTimespan * 4
	if actualTimespan < minSpan {
		actualTimespan = minSpan
	}
	if actualTimespan > maxSpan {
		actualTimespan = maxSpan
	}

	prev, err := TargetFromBits(prevBits)
	if err != nil {
		return 0, err
	}
	next, overflow := new(uint256.Int).MulDivOverflow(
		prev,
		uint256.NewInt(uint64(actualTimespan)),
		uint256.NewInt(uint64(targetTimespan)),
	)
	if overflow || next.Gt(powLimit) {
		next = powLimit
	}
	return TargetToCompact(next), nil
}
