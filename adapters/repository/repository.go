package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/chararch/migbatch"
)

const (
	jobInstanceColumns  = "job_instance_id, job_name, job_type, job_key, job_params, create_time"
	jobExecutionColumns = "job_execution_id, job_instance_id, job_name, job_type, job_params, create_time, start_time, end_time, status, exit_code, exit_message, last_updated, version"
	stepExecColumns     = "step_execution_id, job_execution_id, job_instance_id, job_name, step_name, step_kind, create_time, start_time, end_time, status, exit_code, exit_message, failures, last_updated, version"
)

// mysql error numbers reported as concurrency failures
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

type mysqlRepository struct {
	db     *sql.DB
	txMgr  migbatch.TransactionManager
	logger migbatch.Logger
}

// New create a Repository storing job instances, job runs and step runs in mysql. The db must be opened with
// parseTime=true. A nil logger means migbatch.DefaultLogger.
func New(db *sql.DB, logger migbatch.Logger, txMgr migbatch.TransactionManager) migbatch.Repository {
	if logger == nil {
		logger = migbatch.DefaultLogger
	}
	return &mysqlRepository{db: db, txMgr: txMgr, logger: logger}
}

func dbError(err error, msg string, args ...interface{}) migbatch.BatchError {
	code := migbatch.ErrCodeDbFail
	if me, ok := err.(*mysql.MySQLError); ok && (me.Number == errDeadlock || me.Number == errLockWaitTimeout) {
		code = migbatch.ErrCodeConcurrency
	}
	return migbatch.NewBatchError(code, fmt.Sprintf(msg, args...), err)
}

func (r *mysqlRepository) CreateJobInstance(ctx context.Context, jobName string, jobType string, jobParams migbatch.Parameters) (*migbatch.JobInstance, migbatch.BatchError) {
	instance := &migbatch.JobInstance{
		JobName:    jobName,
		JobType:    jobType,
		JobKey:     jobParams.Footprint(),
		JobParams:  jobParams.Clone(),
		CreateTime: time.Now(),
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO batch_job_instance(job_name, job_type, job_key, job_params, create_time) VALUES (?, ?, ?, ?, ?)",
		instance.JobName, instance.JobType, instance.JobKey, instance.JobParams.ToString(), instance.CreateTime)
	if err != nil {
		r.logger.Error(ctx, "insert job instance failed, jobName:%v, err:%v", jobName, err)
		return nil, dbError(err, "insert job instance failed, jobName:%v", jobName)
	}
	if instance.JobInstanceId, err = res.LastInsertId(); err != nil {
		return nil, dbError(err, "get id of job instance failed, jobName:%v", jobName)
	}
	return instance, nil
}

func (r *mysqlRepository) UpdateJobInstance(ctx context.Context, instance *migbatch.JobInstance) migbatch.BatchError {
	key := instance.JobParams.Footprint()
	res, err := r.db.ExecContext(ctx, "UPDATE batch_job_instance SET job_key = ?, job_params = ? WHERE job_instance_id = ?",
		key, instance.JobParams.ToString(), instance.JobInstanceId)
	if err != nil {
		r.logger.Error(ctx, "update job instance failed, jobInstanceId:%v, err:%v", instance.JobInstanceId, err)
		return dbError(err, "update job instance failed, jobInstanceId:%v", instance.JobInstanceId)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "job instance:%v not found", instance.JobInstanceId)
	}
	instance.JobKey = key
	return nil
}

func (r *mysqlRepository) FindJobInstance(ctx context.Context, jobName string, jobParams migbatch.Parameters) (*migbatch.JobInstance, migbatch.BatchError) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobInstanceColumns+" FROM batch_job_instance WHERE job_name = ? AND job_key = ? ORDER BY job_instance_id DESC LIMIT 1",
		jobName, jobParams.Footprint())
	return r.scanJobInstance(ctx, row, jobName)
}

func (r *mysqlRepository) FindLastJobInstanceByName(ctx context.Context, jobName string) (*migbatch.JobInstance, migbatch.BatchError) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobInstanceColumns+" FROM batch_job_instance WHERE job_name = ? ORDER BY job_instance_id DESC LIMIT 1", jobName)
	return r.scanJobInstance(ctx, row, jobName)
}

func (r *mysqlRepository) scanJobInstance(ctx context.Context, row *sql.Row, jobName string) (*migbatch.JobInstance, migbatch.BatchError) {
	m := &jobInstanceDBModel{}
	err := row.Scan(&m.JobInstanceId, &m.JobName, &m.JobType, &m.JobKey, &m.JobParams, &m.CreateTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error(ctx, "query job instance failed, jobName:%v, err:%v", jobName, err)
		return nil, dbError(err, "query job instance failed, jobName:%v", jobName)
	}
	instance, err := m.toEntity()
	if err != nil {
		return nil, migbatch.NewBatchError(migbatch.ErrCodeDbFail, "convert job instance failed, jobName:%v", jobName, err)
	}
	return instance, nil
}

func (r *mysqlRepository) SaveJobRun(ctx context.Context, run *migbatch.JobRun) migbatch.BatchError {
	now := time.Now()
	if run.JobRunId == 0 {
		if run.CreateTime.IsZero() {
			run.CreateTime = now
		}
		res, err := r.db.ExecContext(ctx, "INSERT INTO batch_job_execution(job_instance_id, job_name, job_type, job_params, create_time, start_time, end_time, status, exit_code, exit_message, last_updated, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			run.JobInstanceId, run.JobName, run.JobType, run.JobParams.ToString(), run.CreateTime, nullTime(run.StartTime), nullTime(run.EndTime),
			string(run.Status), run.ExitStatus.ExitCode, nullString(run.ExitStatus.ExitDescription), now, run.Version+1)
		if err != nil {
			r.logger.Error(ctx, "insert job run failed, jobName:%v, err:%v", run.JobName, err)
			return dbError(err, "insert job run failed, jobName:%v", run.JobName)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return dbError(err, "get id of job run failed, jobName:%v", run.JobName)
		}
		run.JobRunId = id
	} else {
		res, err := r.db.ExecContext(ctx, "UPDATE batch_job_execution SET start_time = ?, end_time = ?, status = ?, exit_code = ?, exit_message = ?, last_updated = ?, version = ? WHERE job_execution_id = ? AND version = ?",
			nullTime(run.StartTime), nullTime(run.EndTime), string(run.Status), run.ExitStatus.ExitCode, nullString(run.ExitStatus.ExitDescription),
			now, run.Version+1, run.JobRunId, run.Version)
		if err != nil {
			r.logger.Error(ctx, "update job run failed, jobRunId:%v, err:%v", run.JobRunId, err)
			return dbError(err, "update job run failed, jobRunId:%v", run.JobRunId)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return migbatch.NewBatchError(migbatch.ErrCodeConcurrency, "job run:%v was updated concurrently or does not exist, expected version:%v", run.JobRunId, run.Version)
		}
	}
	run.Version++
	run.LastUpdated = now
	return nil
}

func (r *mysqlRepository) FindJobRun(ctx context.Context, jobRunId int64) (*migbatch.JobRun, migbatch.BatchError) {
	runs, err := r.queryJobRuns(ctx, "SELECT "+jobExecutionColumns+" FROM batch_job_execution WHERE job_execution_id = ?", jobRunId)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	run := runs[0]
	if run.StepRuns, err = r.FindStepRunsByJobRun(ctx, jobRunId); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *mysqlRepository) FindLastJobRunByInstance(ctx context.Context, instance *migbatch.JobInstance) (*migbatch.JobRun, migbatch.BatchError) {
	runs, err := r.queryJobRuns(ctx, "SELECT "+jobExecutionColumns+" FROM batch_job_execution WHERE job_instance_id = ? ORDER BY job_execution_id DESC LIMIT 1", instance.JobInstanceId)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (r *mysqlRepository) FindJobRunsByType(ctx context.Context, jobType string) ([]*migbatch.JobRun, migbatch.BatchError) {
	return r.queryJobRuns(ctx, "SELECT "+jobExecutionColumns+" FROM batch_job_execution WHERE job_type = ? ORDER BY create_time DESC, job_execution_id DESC", jobType)
}

// FindJobRunsByParameter narrows runs in the database on the unquoted JSON value, then keeps the runs whose value
// loosely equals value, so that 20230101120000 and "20230101120000" match
func (r *mysqlRepository) FindJobRunsByParameter(ctx context.Context, jobType string, key string, value string) ([]*migbatch.JobRun, migbatch.BatchError) {
	path := fmt.Sprintf(`$."%s"`, key)
	runs, err := r.queryJobRuns(ctx, "SELECT "+jobExecutionColumns+" FROM batch_job_execution WHERE job_type = ? AND JSON_UNQUOTE(JSON_EXTRACT(job_params, ?)) = ? ORDER BY create_time DESC, job_execution_id DESC",
		jobType, path, value)
	if err != nil {
		return nil, err
	}
	matched := make([]*migbatch.JobRun, 0, len(runs))
	for _, run := range runs {
		if run.JobParams.Matches(key, value) {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

func (r *mysqlRepository) queryJobRuns(ctx context.Context, query string, args ...interface{}) ([]*migbatch.JobRun, migbatch.BatchError) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error(ctx, "query job runs failed, args:%v, err:%v", args, err)
		return nil, dbError(err, "query job runs failed")
	}
	defer rows.Close()
	runs := make([]*migbatch.JobRun, 0)
	for rows.Next() {
		m := &jobExecutionDBModel{}
		if err = rows.Scan(&m.JobExecutionId, &m.JobInstanceId, &m.JobName, &m.JobType, &m.JobParams, &m.CreateTime, &m.StartTime, &m.EndTime,
			&m.Status, &m.ExitCode, &m.ExitMessage, &m.LastUpdated, &m.Version); err != nil {
			return nil, dbError(err, "scan job run failed")
		}
		run, e := m.toEntity()
		if e != nil {
			return nil, migbatch.NewBatchError(migbatch.ErrCodeDbFail, "convert job run failed", e)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, dbError(err, "iterate job runs failed")
	}
	return runs, nil
}

func (r *mysqlRepository) SaveStepRun(ctx context.Context, step *migbatch.StepRun) migbatch.BatchError {
	now := time.Now()
	failures, err := encodeFailures(step)
	if err != nil {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "encode failures of step:%v", step.StepName, err)
	}
	if step.StepRunId == 0 {
		if step.CreateTime.IsZero() {
			step.CreateTime = now
		}
		res, err := r.db.ExecContext(ctx, "INSERT INTO batch_step_execution(job_execution_id, job_instance_id, job_name, step_name, step_kind, create_time, start_time, end_time, status, exit_code, exit_message, failures, last_updated, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			step.JobRunId, step.JobInstanceId, step.JobName, step.StepName, step.Kind.String(), step.CreateTime, nullTime(step.StartTime), nullTime(step.EndTime),
			string(step.Status), step.ExitStatus.ExitCode, nullString(step.ExitStatus.ExitDescription), failures, now, step.Version+1)
		if err != nil {
			r.logger.Error(ctx, "insert step run failed, jobRunId:%v, stepName:%v, err:%v", step.JobRunId, step.StepName, err)
			return dbError(err, "insert step run failed, jobRunId:%v, stepName:%v", step.JobRunId, step.StepName)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return dbError(err, "get id of step run failed, stepName:%v", step.StepName)
		}
		step.StepRunId = id
	} else {
		res, err := r.db.ExecContext(ctx, "UPDATE batch_step_execution SET start_time = ?, end_time = ?, status = ?, exit_code = ?, exit_message = ?, failures = ?, last_updated = ?, version = ? WHERE step_execution_id = ?",
			nullTime(step.StartTime), nullTime(step.EndTime), string(step.Status), step.ExitStatus.ExitCode, nullString(step.ExitStatus.ExitDescription),
			failures, now, step.Version+1, step.StepRunId)
		if err != nil {
			r.logger.Error(ctx, "update step run failed, stepRunId:%v, err:%v", step.StepRunId, err)
			return dbError(err, "update step run failed, stepRunId:%v", step.StepRunId)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "step run:%v not found", step.StepRunId)
		}
	}
	step.Version++
	step.LastUpdated = now
	return nil
}

// AddWarning inserts the warning and bumps the warning count of its step in one transaction
func (r *mysqlRepository) AddWarning(ctx context.Context, step *migbatch.StepRun, warning migbatch.Warning) (be migbatch.BatchError) {
	item, err := json.Marshal(warning.Item)
	if err != nil {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "encode warning item of step:%v", step.StepName, err)
	}
	createTime := warning.CreateTime
	if createTime.IsZero() {
		createTime = time.Now()
	}
	t, be := r.txMgr.BeginTx(ctx)
	if be != nil {
		return be
	}
	tx := t.(*sql.Tx)
	defer func() {
		if be != nil {
			if er := r.txMgr.Rollback(tx); er != nil {
				r.logger.Error(ctx, "rollback add warning failed, stepRunId:%v, err:%v", step.StepRunId, er)
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, "INSERT INTO batch_step_warning(step_execution_id, job_execution_id, reason, item, create_time) VALUES (?, ?, ?, ?, ?)",
		step.StepRunId, step.JobRunId, warning.Reason, string(item), createTime); err != nil {
		r.logger.Error(ctx, "insert warning failed, stepRunId:%v, err:%v", step.StepRunId, err)
		return dbError(err, "insert warning failed, stepRunId:%v", step.StepRunId)
	}
	res, err := tx.ExecContext(ctx, "UPDATE batch_step_execution SET warning_count = warning_count + 1, last_updated = ? WHERE step_execution_id = ?",
		time.Now(), step.StepRunId)
	if err != nil {
		return dbError(err, "update warning count failed, stepRunId:%v", step.StepRunId)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "step run:%v not found", step.StepRunId)
	}
	return r.txMgr.Commit(tx)
}

func (r *mysqlRepository) FindStepRunsByJobRun(ctx context.Context, jobRunId int64) ([]*migbatch.StepRun, migbatch.BatchError) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+stepExecColumns+" FROM batch_step_execution WHERE job_execution_id = ? ORDER BY step_execution_id", jobRunId)
	if err != nil {
		r.logger.Error(ctx, "query step runs failed, jobRunId:%v, err:%v", jobRunId, err)
		return nil, dbError(err, "query step runs failed, jobRunId:%v", jobRunId)
	}
	defer rows.Close()
	steps := make([]*migbatch.StepRun, 0)
	byId := map[int64]*migbatch.StepRun{}
	for rows.Next() {
		m := &stepExecutionDBModel{}
		if err = rows.Scan(&m.StepExecutionId, &m.JobExecutionId, &m.JobInstanceId, &m.JobName, &m.StepName, &m.StepKind, &m.CreateTime, &m.StartTime,
			&m.EndTime, &m.Status, &m.ExitCode, &m.ExitMessage, &m.Failures, &m.LastUpdated, &m.Version); err != nil {
			return nil, dbError(err, "scan step run failed, jobRunId:%v", jobRunId)
		}
		step, e := m.toEntity()
		if e != nil {
			return nil, migbatch.NewBatchError(migbatch.ErrCodeDbFail, "convert step run failed, jobRunId:%v", jobRunId, e)
		}
		steps = append(steps, step)
		byId[step.StepRunId] = step
	}
	if err = rows.Err(); err != nil {
		return nil, dbError(err, "iterate step runs failed, jobRunId:%v", jobRunId)
	}
	if len(steps) == 0 {
		return steps, nil
	}
	if be := r.loadWarnings(ctx, jobRunId, byId); be != nil {
		return nil, be
	}
	return steps, nil
}

func (r *mysqlRepository) loadWarnings(ctx context.Context, jobRunId int64, byId map[int64]*migbatch.StepRun) migbatch.BatchError {
	rows, err := r.db.QueryContext(ctx, "SELECT step_execution_id, reason, item, create_time FROM batch_step_warning WHERE job_execution_id = ? ORDER BY warning_id", jobRunId)
	if err != nil {
		return dbError(err, "query warnings failed, jobRunId:%v", jobRunId)
	}
	defer rows.Close()
	for rows.Next() {
		m := &stepWarningDBModel{}
		if err = rows.Scan(&m.StepExecutionId, &m.Reason, &m.Item, &m.CreateTime); err != nil {
			return dbError(err, "scan warning failed, jobRunId:%v", jobRunId)
		}
		warning, e := m.toEntity()
		if e != nil {
			return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "convert warning failed, jobRunId:%v", jobRunId, e)
		}
		if step, ok := byId[m.StepExecutionId]; ok {
			step.Warnings = append(step.Warnings, warning)
		}
	}
	if err = rows.Err(); err != nil {
		return dbError(err, "iterate warnings failed, jobRunId:%v", jobRunId)
	}
	return nil
}
