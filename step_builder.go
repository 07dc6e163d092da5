package migbatch

import (
	"context"
	"fmt"
)

type StepBuilderFactory interface {
	Get(name string) StepBuilder
}

func NewStepBuilderFactory(runner ProcessRunner, command CommandTemplate) StepBuilderFactory {
	return &stepBuilderFactory{
		runner:  runner,
		command: command,
	}
}

type stepBuilderFactory struct {
	runner  ProcessRunner
	command CommandTemplate
}

func (f *stepBuilderFactory) Get(name string) StepBuilder {
	if name == "" {
		panic("step name must not be empty")
	}
	return &stepBuilder{
		name:    name,
		kind:    TaskStep,
		runner:  f.runner,
		command: f.command,
	}
}

type StepBuilder interface {
	Handler(handler interface{}) StepBuilder
	Kind(kind StepKind) StepBuilder
	// Migration makes the step run the migration given by the migrationVersion job parameter
	Migration() StepBuilder
	// RequireMigrationVersion makes the step fail with warning when the migrationVersion job parameter is missing
	RequireMigrationVersion(warning string) StepBuilder
	Build() Step
}

type stepBuilder struct {
	name    string
	kind    StepKind
	handler Handler
	runner  ProcessRunner
	command CommandTemplate
}

func (builder *stepBuilder) Handler(handler interface{}) StepBuilder {
	switch val := handler.(type) {
	case Handler:
		builder.handler = val
	case func(ctx context.Context, stepCtx *StepContext) BatchError:
		builder.handler = HandlerFunc(val)
	case func(stepCtx *StepContext) BatchError:
		builder.handler = HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
			return val(stepCtx)
		})
	case func() error:
		builder.handler = HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
			if e := val(); e != nil {
				switch et := e.(type) {
				case BatchError:
					return et
				default:
					return NewBatchError(ErrCodeGeneral, "execute step:%v error", stepCtx.StepRun.StepName, e)
				}
			}
			return nil
		})
	case func():
		builder.handler = HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
			val()
			return nil
		})
	default:
		panic(fmt.Sprintf("invalid handler type:%T for step:%v", handler, builder.name))
	}
	return builder
}

func (builder *stepBuilder) Kind(kind StepKind) StepBuilder {
	builder.kind = kind
	return builder
}

func (builder *stepBuilder) Migration() StepBuilder {
	if builder.runner == nil {
		panic(fmt.Sprintf("you must specify a process runner before constructing migration step:%v", builder.name))
	}
	builder.kind = TaskStep
	builder.handler = &migrationStepHandler{runner: builder.runner, command: builder.command}
	return builder
}

func (builder *stepBuilder) RequireMigrationVersion(warning string) StepBuilder {
	builder.kind = CheckStep
	builder.handler = requireMigrationVersion(warning)
	return builder
}

func (builder *stepBuilder) Build() Step {
	handler := builder.handler
	if handler == nil {
		if builder.kind != MarkerStep {
			panic(fmt.Sprintf("no handler specified for step: %s", builder.name))
		}
		handler = noopHandler
	}
	return &step{
		name:    builder.name,
		kind:    builder.kind,
		handler: handler,
	}
}
