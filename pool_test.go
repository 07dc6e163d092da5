package migbatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestTaskPoolSubmit(t *testing.T) {
	pool := newTaskPool(2)
	result, err := pool.Submit(context.Background(), func() (interface{}, error) {
		return 42, nil
	}).Get()
	assert.Equal(t, nil, err)
	assert.Equal(t, 42, result)

	boom := errors.New("boom")
	_, err = pool.Submit(context.Background(), func() (interface{}, error) {
		return nil, boom
	}).Get()
	assert.Equal(t, boom, err)
}

func TestTaskPoolRecoversPanic(t *testing.T) {
	pool := newTaskPool(1)
	_, err := pool.Submit(context.Background(), func() (interface{}, error) {
		panic("50% done")
	}).Get()
	assert.T(t, IsBatchError(err, ErrCodeGeneral))
	assert.T(t, strings.Contains(err.Error(), "panic in task: 50% done"))
}
