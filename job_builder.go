package migbatch

import "fmt"

// JobBuilderFactory builds jobs made of a fixed list of steps, all sharing one repository
type JobBuilderFactory interface {
	Get(name string) JobBuilder
}

func NewJobBuilderFactory(repository Repository) JobBuilderFactory {
	return &jobBuilderFactory{repository: repository}
}

type jobBuilderFactory struct {
	repository Repository
}

func (f *jobBuilderFactory) Get(name string) JobBuilder {
	return &jobBuilder{
		name:       name,
		jobType:    JobTypeMigration,
		repository: f.repository,
	}
}

type JobBuilder interface {
	// Type overrides the job type, JobTypeMigration by default
	Type(jobType string) JobBuilder
	Start(step Step) SimpleJobBuilder
}

type jobBuilder struct {
	name       string
	jobType    string
	repository Repository
}

func (builder *jobBuilder) Type(jobType string) JobBuilder {
	builder.jobType = jobType
	return builder
}

func (builder *jobBuilder) Start(step Step) SimpleJobBuilder {
	return &simpleJobBuilder{jobBuilder: *builder, steps: []Step{step}}
}

// SimpleJobBuilder appends steps in execution order
type SimpleJobBuilder interface {
	Next(step Step) SimpleJobBuilder
	Build() Job
}

type simpleJobBuilder struct {
	jobBuilder
	steps []Step
}

func (builder *simpleJobBuilder) Next(step Step) SimpleJobBuilder {
	builder.steps = append(builder.steps, step)
	return builder
}

// Build panics on a missing repository, a nil step or two steps with the same name
func (builder *simpleJobBuilder) Build() Job {
	if builder.repository == nil {
		panic(fmt.Sprintf("no repository for job:%v", builder.name))
	}
	names := make(map[string]struct{}, len(builder.steps))
	for i, s := range builder.steps {
		if s == nil {
			panic(fmt.Sprintf("step %d of job:%v is nil", i, builder.name))
		}
		if _, ok := names[s.Name()]; ok {
			panic(fmt.Sprintf("duplicated step:%v in job:%v", s.Name(), builder.name))
		}
		names[s.Name()] = struct{}{}
	}
	return newSimpleJob(builder.name, builder.jobType, builder.steps, builder.repository)
}
