package migbatch

// BatchStatus status of a JobRun or a StepRun
type BatchStatus string

// batch statuses
const (
	PENDING   BatchStatus = "PENDING"
	STARTING  BatchStatus = "STARTING"
	RUNNING   BatchStatus = "RUNNING"
	COMPLETED BatchStatus = "COMPLETED"
	FAILED    BatchStatus = "FAILED"
	STOPPED   BatchStatus = "STOPPED"
)

// IsTerminal reports whether no further transition is expected from the status
func (s BatchStatus) IsTerminal() bool {
	return s == COMPLETED || s == FAILED || s == STOPPED
}

// IsRunning reports whether a run in this status is still considered executing
func (s BatchStatus) IsRunning() bool {
	return s == STARTING || s == RUNNING
}

// exit codes of ExitStatus
const (
	ExitUnknown   = "UNKNOWN"
	ExitExecuting = "EXECUTING"
	ExitCompleted = "COMPLETED"
	ExitNoop      = "NOOP"
	ExitFailed    = "FAILED"
	ExitStopped   = "STOPPED"
)

// ExitStatus exit descriptor of a JobRun or a StepRun
type ExitStatus struct {
	ExitCode        string
	ExitDescription string
}

// NewExitStatus create an ExitStatus with the given code and an empty description
func NewExitStatus(code string) ExitStatus {
	return ExitStatus{ExitCode: code}
}

// AddExitDescription appends a description line
func (es ExitStatus) AddExitDescription(desc string) ExitStatus {
	if desc == "" {
		return es
	}
	if es.ExitDescription == "" {
		es.ExitDescription = desc
	} else {
		es.ExitDescription = es.ExitDescription + "\n" + desc
	}
	return es
}
