package chain

import (
	"fmt"

	"github.com/mezonai/mnlight/common"
	mnerrors "github.com/mezonai/mnlight/errors"
	"github.com/mezonai/mnlight/monitoring"
)

// VerificationError is returned when a header fails a consensus rule.
type VerificationError struct {
	mnerrors.CodedError
	Hash common.Hash
}

func newVerificationError(code mnerrors.ErrorCode, hash common.Hash, format string, args ...interface{}) *VerificationError {
	return &VerificationError{
		CodedError: mnerrors.CodedError{Code: code, Message: fmt.Sprintf(format, args...)},
		Hash:       hash,
	}
}

// CheckpointViolationError is returned for a header that conflicts with a checkpoint,
// either directly at the checkpointed height or by forking below one.
type CheckpointViolationError struct {
	mnerrors.CodedError
	Height   uint32
	Expected common.Hash
	Actual   common.Hash
}

func newCheckpointViolationError(height uint32, expected, actual common.Hash) *CheckpointViolationError {
	return &CheckpointViolationError{
		CodedError: mnerrors.CodedError{
			Code: mnerrors.ErrCodeCheckpoint,
			Message: fmt.Sprintf("%s at height %d: expected %s, got %s",
				mnerrors.ErrMsgCheckpointMismatch, height, expected, actual),
		},
		Height:   height,
		Expected: expected,
		Actual:   actual,
	}
}

// OrphanError is returned under the reject policy for a header whose parent is unknown.
type OrphanError struct {
	mnerrors.CodedError
	Hash   common.Hash
	Parent common.Hash
}

func newOrphanError(hash, parent common.Hash) *OrphanError {
	return &OrphanError{
		CodedError: mnerrors.CodedError{
			Code:    mnerrors.ErrCodeOrphan,
			Message: fmt.Sprintf("%s: header %s, parent %s", mnerrors.ErrMsgUnknownParent, hash, parent),
		},
		Hash:   hash,
		Parent: parent,
	}
}

// rejectReason maps a rejection to its metric label.
func rejectReason(err error) monitoring.HeaderRejectedReason {
	switch e := err.(type) {
	case *VerificationError:
		switch e.Code {
		case mnerrors.ErrCodeMalformed:
			return monitoring.HeaderMalformed
		case mnerrors.ErrCodeBadTarget:
			return monitoring.HeaderBadTarget
		case mnerrors.ErrCodeBadProofOfWork:
			return monitoring.HeaderBadProofOfWork
		case mnerrors.ErrCodeTimeTooNew:
			return monitoring.HeaderTimeTooNew
		case mnerrors.ErrCodeBadDifficulty:
			return monitoring.HeaderBadDifficulty
		case mnerrors.ErrCodeBadGenesis:
			return monitoring.HeaderBadGenesis
		}
	case *CheckpointViolationError:
		return monitoring.HeaderCheckpoint
	case *OrphanError:
		return monitoring.HeaderOrphan
	}
	return monitoring.HeaderRejectedUnknown
}
