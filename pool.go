package migbatch

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

type taskPool struct {
	pool *ants.Pool
}

func newTaskPool(size int) *taskPool {
	pool, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		panic(fmt.Sprintf("create task pool with size:%v failed: %v", size, err))
	}
	return &taskPool{pool: pool}
}

// Future is the pending result of a task submitted to a taskPool
type Future interface {
	Get() (interface{}, error)
}

type future struct {
	done   chan struct{}
	result interface{}
	err    error
}

func (f *future) Get() (interface{}, error) {
	<-f.done
	return f.result, f.err
}

func (f *future) complete(result interface{}, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Submit run task in the pool, panics raised by the task are reported as errors by the returned Future
func (p *taskPool) Submit(ctx context.Context, task func() (interface{}, error)) Future {
	f := &future{done: make(chan struct{})}
	err := p.pool.Submit(func() {
		var result interface{}
		var er error
		defer func() {
			if r := recover(); r != nil {
				DefaultLogger.Error(ctx, "panic in task: %v", r)
				f.complete(nil, NewBatchError(ErrCodeGeneral, fmt.Sprintf("panic in task: %v", r)))
				return
			}
			f.complete(result, er)
		}()
		result, er = task()
	})
	if err != nil {
		DefaultLogger.Error(ctx, "submit task to pool failed, err:%v", err)
		f.complete(nil, NewBatchError(ErrCodeGeneral, "submit task to pool failed", err))
	}
	return f
}

func (p *taskPool) SetMaxSize(size int) {
	p.pool.Tune(size)
}

func (p *taskPool) Running() int {
	return p.pool.Running()
}
