package masternode

import (
	"fmt"

	"github.com/mezonai/mnlight/common"
	mnerrors "github.com/mezonai/mnlight/errors"
)

// DuplicateEntryError is returned when a registration txid appears twice in a list
// or a diff adds an id already present.
type DuplicateEntryError struct {
	mnerrors.CodedError
	ID common.Hash
}

func newDuplicateEntryError(id common.Hash) *DuplicateEntryError {
	return &DuplicateEntryError{
		CodedError: mnerrors.CodedError{
			Code:    mnerrors.ErrCodeDuplicateEntry,
			Message: fmt.Sprintf("masternode %s is already registered", id),
		},
		ID: id,
	}
}

// VerificationError is returned when a diff does not apply to the current list.
type VerificationError struct {
	mnerrors.CodedError
}

func newVerificationError(code mnerrors.ErrorCode, format string, args ...interface{}) *VerificationError {
	return &VerificationError{
		CodedError: mnerrors.CodedError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// CommitmentMismatchError is returned when a rebuilt list does not hash to the root
// committed in the block header.
type CommitmentMismatchError struct {
	mnerrors.CodedError
	Height   uint32
	Expected common.Hash
	Actual   common.Hash
}

func newCommitmentMismatchError(height uint32, expected, actual common.Hash) *CommitmentMismatchError {
	return &CommitmentMismatchError{
		CodedError: mnerrors.CodedError{
			Code: mnerrors.ErrCodeCommitmentMismatch,
			Message: fmt.Sprintf("%s at height %d: expected %s, computed %s",
				mnerrors.ErrMsgCommitmentMismatch, height, expected, actual),
		},
		Height:   height,
		Expected: expected,
		Actual:   actual,
	}
}

// RollbackUnavailableError is returned when no retained list exists for a height.
type RollbackUnavailableError struct {
	mnerrors.CodedError
	Height uint32
}

func newRollbackUnavailableError(height uint32) *RollbackUnavailableError {
	return &RollbackUnavailableError{
		CodedError: mnerrors.CodedError{
			Code:    mnerrors.ErrCodeRollbackUnavailable,
			Message: fmt.Sprintf("no masternode list retained for height %d", height),
		},
		Height: height,
	}
}
