package migbatch

import (
	"context"
)

// StepKind tells how a step came to exist in a JobRun
type StepKind int

const (
	// CheckStep validates job parameters before any work is done
	CheckStep StepKind = iota
	// MarkerStep was discovered from a marker line printed by a migration, it carries no work of its own
	MarkerStep
	// TaskStep runs its handler as a fixed unit of work
	TaskStep
)

var stepKindNames = map[StepKind]string{
	CheckStep:  "check",
	MarkerStep: "marker",
	TaskStep:   "task",
}

func (k StepKind) String() string {
	if name, ok := stepKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseStepKind is the inverse of StepKind.String, unknown names give TaskStep
func ParseStepKind(name string) StepKind {
	for kind, n := range stepKindNames {
		if n == name {
			return kind
		}
	}
	return TaskStep
}

// Handler does the work of a step. Warnings are reported through the StepContext, a returned error fails the step.
type Handler interface {
	Handle(ctx context.Context, stepCtx *StepContext) BatchError
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, stepCtx *StepContext) BatchError

func (f HandlerFunc) Handle(ctx context.Context, stepCtx *StepContext) BatchError {
	return f(ctx, stepCtx)
}

// StepContext gives a Handler access to the step being executed and the run owning it
type StepContext struct {
	JobRun  *JobRun
	StepRun *StepRun
	tracker *StepTracker
}

// AddWarning attaches a warning to the step being executed
func (c *StepContext) AddWarning(ctx context.Context, reason string) {
	c.tracker.AddWarning(ctx, c.StepRun, reason)
}

// Step is a named unit of a job
type Step interface {
	Name() string
	Kind() StepKind
	Handler() Handler
}

type step struct {
	name    string
	kind    StepKind
	handler Handler
}

func (s *step) Name() string {
	return s.name
}

func (s *step) Kind() StepKind {
	return s.kind
}

func (s *step) Handler() Handler {
	return s.handler
}

var noopHandler = HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
	return nil
})

// NewMarkerStep create the step announced by a marker line, it completes as soon as it is handled
func NewMarkerStep(label string) Step {
	return &step{name: label, kind: MarkerStep, handler: noopHandler}
}
