package errors

import (
	"github.com/mezonai/mnlight/jsonx"
)

// ErrorCode represents standardized error codes for chain and masternode list operations
type ErrorCode string

const (
	// General errors
	ErrCodeInternal ErrorCode = "internal_error"

	// Header validation errors
	ErrCodeMalformed      ErrorCode = "malformed"
	ErrCodeBadTarget      ErrorCode = "bad_target"
	ErrCodeBadProofOfWork ErrorCode = "bad_proof_of_work"
	ErrCodeTimeTooNew     ErrorCode = "time_too_new"
	ErrCodeBadDifficulty  ErrorCode = "bad_difficulty"
	ErrCodeBadGenesis     ErrorCode = "bad_genesis"
	ErrCodeCheckpoint     ErrorCode = "checkpoint_violation"
	ErrCodeOrphan         ErrorCode = "orphan"

	// Masternode list errors
	ErrCodeDuplicateEntry      ErrorCode = "duplicate_entry"
	ErrCodeUnknownEntry        ErrorCode = "unknown_entry"
	ErrCodeBaseMismatch        ErrorCode = "base_mismatch"
	ErrCodeCommitmentMismatch  ErrorCode = "commitment_mismatch"
	ErrCodeRollbackUnavailable ErrorCode = "rollback_unavailable"
	ErrCodeInvalidSignature    ErrorCode = "invalid_signature"
)

// CodedError is the common shape of every typed error: a stable code and a message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e CodedError) Error() string {
	out, err := jsonx.Marshal(struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{e.Code, e.Message})
	if err != nil {
		return string(e.Code) + ": " + e.Message
	}
	return string(out)
}

// NewError creates a new CodedError and returns it as error interface
func NewError(code ErrorCode, message string) error {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Error message constants
const (
	ErrMsgMalformedHeader    = "Header could not be decoded"
	ErrMsgTargetOutOfRange   = "Header target is invalid or above the proof of work limit"
	ErrMsgHashAboveTarget    = "Header hash does not meet its target"
	ErrMsgTimeTooNew         = "Header timestamp is too far in the future"
	ErrMsgWrongDifficulty    = "Header difficulty does not match the expected value"
	ErrMsgNotGenesis         = "Chain is empty and the header is not the network genesis"
	ErrMsgCheckpointMismatch = "Header conflicts with a checkpoint"
	ErrMsgUnknownParent      = "Header parent is unknown"
	ErrMsgCommitmentMismatch = "Masternode list root does not match the block commitment"
)
