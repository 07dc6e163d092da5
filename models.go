package migbatch

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// JobTypeMigration is the job type of jobs running migrations, run history lookups are restricted to it
const JobTypeMigration = "migration"

type JobInstance struct {
	JobInstanceId int64
	JobName       string
	JobType       string
	JobKey        string
	JobParams     Parameters
	CreateTime    time.Time
}

// JobRun is one invocation of a job
type JobRun struct {
	JobRunId      int64
	JobInstanceId int64
	JobName       string
	JobType       string
	JobParams     Parameters
	Status        BatchStatus
	ExitStatus    ExitStatus
	StepRuns      []*StepRun
	CreateTime    time.Time
	StartTime     time.Time
	EndTime       time.Time
	LastUpdated   time.Time
	Version       int64
}

// LastStepRun returns the most recently opened step, nil if none was opened
func (run *JobRun) LastStepRun() *StepRun {
	if len(run.StepRuns) == 0 {
		return nil
	}
	return run.StepRuns[len(run.StepRuns)-1]
}

// UpgradeStatus copies status and exit status of step onto the run
func (run *JobRun) UpgradeStatus(step *StepRun) {
	run.Status = step.Status
	run.ExitStatus = step.ExitStatus
}

// RecencyTime is the time used to order runs: the end time, or the create time if the run has not ended
func (run *JobRun) RecencyTime() time.Time {
	if !run.EndTime.IsZero() {
		return run.EndTime
	}
	return run.CreateTime
}

// Clone returns a deep copy of the run and its step runs
func (run *JobRun) Clone() *JobRun {
	clone := *run
	clone.JobParams = run.JobParams.Clone()
	clone.StepRuns = make([]*StepRun, 0, len(run.StepRuns))
	for _, step := range run.StepRuns {
		clone.StepRuns = append(clone.StepRuns, step.Clone())
	}
	return &clone
}

// Warning is a message attached to a StepRun, Item is an empty payload kept for compatibility with stored records
type Warning struct {
	Reason     string
	Item       map[string]interface{}
	CreateTime time.Time
}

// StepRun is one tracked phase of a JobRun
type StepRun struct {
	StepRunId     int64
	JobRunId      int64
	JobInstanceId int64
	JobName       string
	StepName      string
	Kind          StepKind
	Status        BatchStatus
	ExitStatus    ExitStatus
	Warnings      []Warning
	Failures      *multierror.Error
	CreateTime    time.Time
	StartTime     time.Time
	EndTime       time.Time
	LastUpdated   time.Time
	Version       int64
}

// AddFailure records a failure cause
func (step *StepRun) AddFailure(err error) {
	if err == nil {
		return
	}
	step.Failures = multierror.Append(step.Failures, err)
}

// FailureErrors returns the recorded failure causes
func (step *StepRun) FailureErrors() []error {
	if step.Failures == nil {
		return nil
	}
	return step.Failures.Errors
}

// WarningReasons returns the reason of each warning, in insertion order
func (step *StepRun) WarningReasons() []string {
	reasons := make([]string, 0, len(step.Warnings))
	for _, w := range step.Warnings {
		reasons = append(reasons, w.Reason)
	}
	return reasons
}

func (step *StepRun) Clone() *StepRun {
	clone := *step
	clone.Warnings = append([]Warning(nil), step.Warnings...)
	if step.Failures != nil {
		clone.Failures = &multierror.Error{Errors: append([]error(nil), step.Failures.Errors...)}
	}
	return &clone
}
