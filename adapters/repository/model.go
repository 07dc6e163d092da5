package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/chararch/migbatch"
)

// the following models are db models, converted from/to migbatch entities

type jobInstanceDBModel struct {
	JobInstanceId int64
	JobName       string
	JobType       string
	JobKey        string
	JobParams     string
	CreateTime    time.Time
}

type jobExecutionDBModel struct {
	JobExecutionId int64
	JobInstanceId  int64
	JobName        string
	JobType        string
	JobParams      string
	CreateTime     time.Time
	StartTime      sql.NullTime
	EndTime        sql.NullTime
	Status         string
	ExitCode       string
	ExitMessage    sql.NullString
	LastUpdated    time.Time
	Version        int64
}

type stepExecutionDBModel struct {
	StepExecutionId int64
	JobExecutionId  int64
	JobInstanceId   int64
	JobName         string
	StepName        string
	StepKind        string
	CreateTime      time.Time
	StartTime       sql.NullTime
	EndTime         sql.NullTime
	Status          string
	ExitCode        string
	ExitMessage     sql.NullString
	Failures        sql.NullString
	LastUpdated     time.Time
	Version         int64
}

type stepWarningDBModel struct {
	StepExecutionId int64
	Reason          string
	Item            sql.NullString
	CreateTime      time.Time
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (m *jobInstanceDBModel) toEntity() (*migbatch.JobInstance, error) {
	params, err := migbatch.ParseParameters(m.JobParams)
	if err != nil {
		return nil, errors.Wrapf(err, "parse params of job instance:%v", m.JobInstanceId)
	}
	return &migbatch.JobInstance{
		JobInstanceId: m.JobInstanceId,
		JobName:       m.JobName,
		JobType:       m.JobType,
		JobKey:        m.JobKey,
		JobParams:     params,
		CreateTime:    m.CreateTime,
	}, nil
}

func (m *jobExecutionDBModel) toEntity() (*migbatch.JobRun, error) {
	params, err := migbatch.ParseParameters(m.JobParams)
	if err != nil {
		return nil, errors.Wrapf(err, "parse params of job execution:%v", m.JobExecutionId)
	}
	return &migbatch.JobRun{
		JobRunId:      m.JobExecutionId,
		JobInstanceId: m.JobInstanceId,
		JobName:       m.JobName,
		JobType:       m.JobType,
		JobParams:     params,
		Status:        migbatch.BatchStatus(m.Status),
		ExitStatus:    migbatch.ExitStatus{ExitCode: m.ExitCode, ExitDescription: m.ExitMessage.String},
		StepRuns:      make([]*migbatch.StepRun, 0),
		CreateTime:    m.CreateTime,
		StartTime:     m.StartTime.Time,
		EndTime:       m.EndTime.Time,
		LastUpdated:   m.LastUpdated,
		Version:       m.Version,
	}, nil
}

func (m *stepExecutionDBModel) toEntity() (*migbatch.StepRun, error) {
	step := &migbatch.StepRun{
		StepRunId:     m.StepExecutionId,
		JobRunId:      m.JobExecutionId,
		JobInstanceId: m.JobInstanceId,
		JobName:       m.JobName,
		StepName:      m.StepName,
		Kind:          migbatch.ParseStepKind(m.StepKind),
		Status:        migbatch.BatchStatus(m.Status),
		ExitStatus:    migbatch.ExitStatus{ExitCode: m.ExitCode, ExitDescription: m.ExitMessage.String},
		Warnings:      make([]migbatch.Warning, 0),
		CreateTime:    m.CreateTime,
		StartTime:     m.StartTime.Time,
		EndTime:       m.EndTime.Time,
		LastUpdated:   m.LastUpdated,
		Version:       m.Version,
	}
	if m.Failures.Valid && m.Failures.String != "" {
		messages := make([]string, 0)
		if err := json.Unmarshal([]byte(m.Failures.String), &messages); err != nil {
			return nil, errors.Wrapf(err, "parse failures of step execution:%v", m.StepExecutionId)
		}
		for _, msg := range messages {
			step.Failures = multierror.Append(step.Failures, errors.New(msg))
		}
	}
	return step, nil
}

func encodeFailures(step *migbatch.StepRun) (sql.NullString, error) {
	errs := step.FailureErrors()
	if len(errs) == 0 {
		return sql.NullString{}, nil
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	bs, err := json.Marshal(messages)
	if err != nil {
		return sql.NullString{}, err
	}
	return nullString(string(bs)), nil
}

func (m *stepWarningDBModel) toEntity() (migbatch.Warning, error) {
	item := map[string]interface{}{}
	if m.Item.Valid && m.Item.String != "" {
		if err := json.Unmarshal([]byte(m.Item.String), &item); err != nil {
			return migbatch.Warning{}, errors.Wrap(err, "parse warning item")
		}
	}
	return migbatch.Warning{Reason: m.Reason, Item: item, CreateTime: m.CreateTime}, nil
}
