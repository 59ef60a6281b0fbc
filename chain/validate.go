package chain

import (
	"fmt"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	mnerrors "github.com/mezonai/mnlight/errors"
)

// checkHeaderSanity runs the checks that need no chain context: the target decodes
// and is within the pow limit, the hash meets it, and the timestamp is not too far ahead.
func (c *ChainState) checkHeaderSanity(h *block.Header, hash common.Hash) error {
	target, err := block.TargetFromBits(h.Bits)
	if err != nil {
		return newVerificationError(mnerrors.ErrCodeBadTarget, hash, "%s: %v", mnerrors.ErrMsgTargetOutOfRange, err)
	}
	if target.Gt(c.params.PowLimit()) {
		return newVerificationError(mnerrors.ErrCodeBadTarget, hash, "%s: bits %08x", mnerrors.ErrMsgTargetOutOfRange, h.Bits)
	}
	if block.HashToInt(hash).Gt(target) {
		return newVerificationError(mnerrors.ErrCodeBadProofOfWork, hash, "%s: %s above bits %08x", mnerrors.ErrMsgHashAboveTarget, hash, h.Bits)
	}

	limit := c.now().Unix() + c.params.MaxFutureBlockTime
	if int64(h.Time) > limit {
		return newVerificationError(mnerrors.ErrCodeTimeTooNew, hash, "%s: %d > %d", mnerrors.ErrMsgTimeTooNew, h.Time, limit)
	}
	return nil
}

// checkDifficulty verifies the difficulty transition from parent. Without retargeting
// every block keeps the parent's bits. Otherwise a block at a multiple of the retarget
// interval must carry the target recomputed from the interval ending at its parent.
func (c *ChainState) checkDifficulty(parent *block.StoredHeader, h *block.Header, hash common.Hash) error {
	want, err := c.expectedBits(parent)
	if err != nil {
		return err
	}
	if h.Bits != want {
		return newVerificationError(mnerrors.ErrCodeBadDifficulty, hash,
			"%s: got %08x, want %08x at height %d", mnerrors.ErrMsgWrongDifficulty, h.Bits, want, parent.Height+1)
	}
	return nil
}

func (c *ChainState) expectedBits(parent *block.StoredHeader) (uint32, error) {
	if c.params.NoRetargeting {
		return parent.Header.Bits, nil
	}
	interval := c.params.RetargetInterval()
	height := parent.Height + 1
	if interval == 0 || height%interval != 0 || parent.Height < interval {
		return parent.Header.Bits, nil
	}

	first, err := c.ancestor(parent, parent.Height-interval)
	if err != nil {
		return 0, fmt.Errorf("failed to load retarget window start: %w", err)
	}
	actual := int64(parent.Header.Time) - int64(first.Header.Time)
	bits, err := block.CalcRetarget(parent.Header.Bits, actual, c.params.TargetTimespan, c.params.PowLimit())
	if err != nil {
		return 0, newVerificationError(mnerrors.ErrCodeBadDifficulty, parent.Hash(), "%s: %v", mnerrors.ErrMsgWrongDifficulty, err)
	}
	return bits, nil
}
