package migbatch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestNewBatchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBatchError(ErrCodeDbFail, "save step:%v failed", "Step A", cause)
	assert.Equal(t, ErrCodeDbFail, err.Code())
	assert.Equal(t, "save step:Step A failed", err.Message())
	assert.Equal(t, cause, err.Cause())
	assert.T(t, errors.Is(err, cause))
	assert.Equal(t, "BatchError[db_fail]: save step:Step A failed, cause: connection refused", err.Error())
	assert.T(t, strings.Contains(err.StackTrace(), "connection refused"))
}

func TestNewBatchErrorWithoutCause(t *testing.T) {
	err := NewBatchError(ErrCodeGeneral, "plain")
	assert.Equal(t, nil, err.Cause())
	assert.Equal(t, "BatchError[general]: plain", err.Error())

	var nilErr error
	err = NewBatchError(ErrCodeGeneral, "value:%v", 3, nilErr)
	assert.Equal(t, "value:3", err.Message())
	assert.Equal(t, nil, err.Cause())
}

func TestIsBatchError(t *testing.T) {
	err := NewBatchError(ErrCodeConcurrency, "conflict")
	assert.T(t, IsBatchError(err, ErrCodeConcurrency))
	assert.T(t, !IsBatchError(err, ErrCodeDbFail))
	assert.T(t, IsBatchError(fmt.Errorf("wrapped: %w", err), ErrCodeConcurrency))
	assert.T(t, !IsBatchError(errors.New("plain"), ErrCodeGeneral))
}
