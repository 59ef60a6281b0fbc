package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodedErrorFormat(t *testing.T) {
	err := NewError(ErrCodeBadProofOfWork, ErrMsgHashAboveTarget)
	assert.Equal(t, `{"code":"bad_proof_of_work","message":"Header hash does not meet its target"}`, err.Error())
}

func TestCodedErrorUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", NewError(ErrCodeOrphan, ErrMsgUnknownParent))

	var coded *CodedError
	require.True(t, stderrors.As(wrapped, &coded))
	assert.Equal(t, ErrCodeOrphan, coded.Code)
}
