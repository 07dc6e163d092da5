package migbatch

import (
	"context"
	"encoding/json"

	"github.com/karlseguin/typed"
)

// JobHelper reads and writes the parameters of the last instance of a job
type JobHelper struct {
	repository Repository
}

func NewJobHelper(repository Repository) *JobHelper {
	return &JobHelper{repository: repository}
}

// ParametersByJob returns the parameters of the last instance of job code, empty parameters if there is none
func (h *JobHelper) ParametersByJob(ctx context.Context, code string) (Parameters, BatchError) {
	instance, err := h.repository.FindLastJobInstanceByName(ctx, code)
	if err != nil {
		return Parameters{}, err
	}
	if instance == nil {
		return NewParameters(nil), nil
	}
	return instance.JobParams, nil
}

// SetParametersByJob replaces the parameters of the last instance of job code, false if the job has no instance
func (h *JobHelper) SetParametersByJob(ctx context.Context, code string, params Parameters) (bool, BatchError) {
	instance, err := h.repository.FindLastJobInstanceByName(ctx, code)
	if err != nil {
		return false, err
	}
	if instance == nil {
		return false, nil
	}
	instance.JobParams = params.Clone()
	if err = h.repository.UpdateJobInstance(ctx, instance); err != nil {
		return false, err
	}
	return true, nil
}

// MappingByJob decodes the JSON document stored in the mapping parameter of job code, nil if absent
func (h *JobHelper) MappingByJob(ctx context.Context, code string) (typed.Typed, BatchError) {
	params, err := h.ParametersByJob(ctx, code)
	if err != nil {
		return nil, err
	}
	raw, ok := params.Lookup(ParamMapping)
	if !ok {
		return nil, nil
	}
	mapping, e := typed.JsonString(raw)
	if e != nil {
		return nil, NewBatchError(ErrCodeGeneral, "decode mapping of job:%v", code, e)
	}
	return mapping, nil
}

// SetMappingByJob stores mapping as an indented JSON document in the mapping parameter of job code. The job must
// already have a mapping parameter, false otherwise.
func (h *JobHelper) SetMappingByJob(ctx context.Context, code string, mapping map[string]interface{}) (bool, BatchError) {
	params, err := h.ParametersByJob(ctx, code)
	if err != nil {
		return false, err
	}
	if _, ok := params.Typed[ParamMapping]; !ok {
		return false, nil
	}
	bs, e := json.MarshalIndent(mapping, "", "    ")
	if e != nil {
		return false, NewBatchError(ErrCodeGeneral, "encode mapping of job:%v", code, e)
	}
	params = params.Clone()
	params.Set(ParamMapping, string(bs))
	return h.SetParametersByJob(ctx, code, params)
}
