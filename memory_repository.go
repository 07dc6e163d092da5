package migbatch

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu             sync.RWMutex
	instanceSeq    int64
	runSeq         int64
	stepSeq        int64
	instances      map[int64]*JobInstance
	runs           map[int64]*JobRun
	steps          map[int64]*StepRun
	stepsByRun     map[int64][]int64
	instanceRunIds map[int64][]int64
}

// NewMemoryRepository create a Repository keeping everything in memory. Stored records are copies, callers never
// share mutable state with the repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		instances:      map[int64]*JobInstance{},
		runs:           map[int64]*JobRun{},
		steps:          map[int64]*StepRun{},
		stepsByRun:     map[int64][]int64{},
		instanceRunIds: map[int64][]int64{},
	}
}

func (r *memoryRepository) CreateJobInstance(ctx context.Context, jobName string, jobType string, jobParams Parameters) (*JobInstance, BatchError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instanceSeq++
	instance := &JobInstance{
		JobInstanceId: r.instanceSeq,
		JobName:       jobName,
		JobType:       jobType,
		JobKey:        jobParams.Footprint(),
		JobParams:     jobParams.Clone(),
		CreateTime:    time.Now(),
	}
	r.instances[instance.JobInstanceId] = instance
	return cloneInstance(instance), nil
}

func (r *memoryRepository) UpdateJobInstance(ctx context.Context, instance *JobInstance) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[instance.JobInstanceId]; !ok {
		return NewBatchError(ErrCodeDbFail, "job instance:%v not found", instance.JobInstanceId)
	}
	stored := cloneInstance(instance)
	stored.JobKey = instance.JobParams.Footprint()
	r.instances[instance.JobInstanceId] = stored
	instance.JobKey = stored.JobKey
	return nil
}

func (r *memoryRepository) FindJobInstance(ctx context.Context, jobName string, jobParams Parameters) (*JobInstance, BatchError) {
	key := jobParams.Footprint()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, instance := range r.instances {
		if instance.JobName == jobName && instance.JobKey == key {
			return cloneInstance(instance), nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) FindLastJobInstanceByName(ctx context.Context, jobName string) (*JobInstance, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last *JobInstance
	for _, instance := range r.instances {
		if instance.JobName == jobName && (last == nil || instance.JobInstanceId > last.JobInstanceId) {
			last = instance
		}
	}
	if last == nil {
		return nil, nil
	}
	return cloneInstance(last), nil
}

func (r *memoryRepository) SaveJobRun(ctx context.Context, run *JobRun) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if run.JobRunId == 0 {
		r.runSeq++
		run.JobRunId = r.runSeq
		if run.CreateTime.IsZero() {
			run.CreateTime = now
		}
		r.instanceRunIds[run.JobInstanceId] = append(r.instanceRunIds[run.JobInstanceId], run.JobRunId)
	} else if stored, ok := r.runs[run.JobRunId]; !ok {
		return NewBatchError(ErrCodeDbFail, "job run:%v not found", run.JobRunId)
	} else if stored.Version != run.Version {
		return NewBatchError(ErrCodeConcurrency, "job run:%v was updated concurrently, expected version:%v actual:%v", run.JobRunId, run.Version, stored.Version)
	}
	run.Version++
	run.LastUpdated = now
	stored := run.Clone()
	stored.StepRuns = nil
	r.runs[run.JobRunId] = stored
	return nil
}

func (r *memoryRepository) FindJobRun(ctx context.Context, jobRunId int64) (*JobRun, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.runs[jobRunId]
	if !ok {
		return nil, nil
	}
	run := stored.Clone()
	run.StepRuns = r.stepRunsOf(jobRunId)
	return run, nil
}

func (r *memoryRepository) FindLastJobRunByInstance(ctx context.Context, instance *JobInstance) (*JobRun, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.instanceRunIds[instance.JobInstanceId]
	if len(ids) == 0 {
		return nil, nil
	}
	return r.runs[ids[len(ids)-1]].Clone(), nil
}

func (r *memoryRepository) FindJobRunsByType(ctx context.Context, jobType string) ([]*JobRun, BatchError) {
	return r.findRuns(func(run *JobRun) bool {
		return run.JobType == jobType
	}), nil
}

func (r *memoryRepository) FindJobRunsByParameter(ctx context.Context, jobType string, key string, value string) ([]*JobRun, BatchError) {
	return r.findRuns(func(run *JobRun) bool {
		return run.JobType == jobType && run.JobParams.Matches(key, value)
	}), nil
}

func (r *memoryRepository) findRuns(match func(run *JobRun) bool) []*JobRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*JobRun, 0)
	for _, run := range r.runs {
		if match(run) {
			result = append(result, run.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreateTime.Equal(result[j].CreateTime) {
			return result[i].CreateTime.After(result[j].CreateTime)
		}
		return result[i].JobRunId > result[j].JobRunId
	})
	return result
}

func (r *memoryRepository) SaveStepRun(ctx context.Context, step *StepRun) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if step.StepRunId == 0 {
		if _, ok := r.runs[step.JobRunId]; !ok {
			return NewBatchError(ErrCodeDbFail, "job run:%v of step:%v not found", step.JobRunId, step.StepName)
		}
		r.stepSeq++
		step.StepRunId = r.stepSeq
		if step.CreateTime.IsZero() {
			step.CreateTime = now
		}
		r.stepsByRun[step.JobRunId] = append(r.stepsByRun[step.JobRunId], step.StepRunId)
	} else if _, ok := r.steps[step.StepRunId]; !ok {
		return NewBatchError(ErrCodeDbFail, "step run:%v not found", step.StepRunId)
	}
	step.Version++
	step.LastUpdated = now
	stored := step.Clone()
	if previous, ok := r.steps[step.StepRunId]; ok {
		// warnings only grow through AddWarning
		stored.Warnings = previous.Warnings
	} else {
		stored.Warnings = append([]Warning(nil), step.Warnings...)
	}
	r.steps[step.StepRunId] = stored
	return nil
}

func (r *memoryRepository) AddWarning(ctx context.Context, step *StepRun, warning Warning) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.steps[step.StepRunId]
	if !ok {
		return NewBatchError(ErrCodeDbFail, "step run:%v not found", step.StepRunId)
	}
	stored.Warnings = append(stored.Warnings, warning)
	return nil
}

func (r *memoryRepository) FindStepRunsByJobRun(ctx context.Context, jobRunId int64) ([]*StepRun, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stepRunsOf(jobRunId), nil
}

func (r *memoryRepository) stepRunsOf(jobRunId int64) []*StepRun {
	ids := r.stepsByRun[jobRunId]
	steps := make([]*StepRun, 0, len(ids))
	for _, id := range ids {
		steps = append(steps, r.steps[id].Clone())
	}
	return steps
}

func cloneInstance(instance *JobInstance) *JobInstance {
	clone := *instance
	clone.JobParams = instance.JobParams.Clone()
	return &clone
}
