package migbatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bmizerany/assert"
)

type staticCatalog struct {
	entries []CatalogEntry
	err     error
}

func (c *staticCatalog) Entries(ctx context.Context) ([]CatalogEntry, error) {
	return c.entries, c.err
}

func runOf(id int64, version interface{}, status BatchStatus, created time.Time, ended time.Time) *JobRun {
	return &JobRun{
		JobRunId:   id,
		JobType:    JobTypeMigration,
		JobParams:  NewParameters(map[string]interface{}{ParamMigrationVersion: version}),
		Status:     status,
		CreateTime: created,
		EndTime:    ended,
	}
}

func TestFindLastRunWithoutMatch(t *testing.T) {
	base := time.Now()
	runs := []*JobRun{runOf(1, "2", COMPLETED, base, base)}
	last := FindLastRun("1", runs)
	assert.T(t, last == nil)
	assert.Equal(t, Waiting, ClassifyRun(last))
	assert.T(t, FindLastRun("1", nil) == nil)
}

func TestFindLastRunPicksLatestEndTime(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	runs := []*JobRun{
		runOf(1, "7", FAILED, base, base.Add(30*time.Minute)),
		runOf(2, "7", COMPLETED, base.Add(time.Minute), base.Add(10*time.Minute)),
		runOf(3, "8", RUNNING, base.Add(50*time.Minute), time.Time{}),
	}
	last := FindLastRun("7", runs)
	assert.Equal(t, int64(1), last.JobRunId)
	assert.Equal(t, Failed, ClassifyRun(last))
}

func TestFindLastRunUnfinishedUsesCreateTime(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	runs := []*JobRun{
		runOf(1, "7", COMPLETED, base, base.Add(5*time.Minute)),
		runOf(2, "7", RUNNING, base.Add(20*time.Minute), time.Time{}),
	}
	last := FindLastRun("7", runs)
	assert.Equal(t, int64(2), last.JobRunId)
	assert.Equal(t, InProgress, ClassifyRun(last))
}

func TestFindLastRunLooseEquality(t *testing.T) {
	base := time.Now()
	runs := []*JobRun{runOf(1, float64(20230101120000), COMPLETED, base, base)}
	last := FindLastRun("20230101120000", runs)
	assert.Equal(t, int64(1), last.JobRunId)
	assert.Equal(t, Success, ClassifyRun(last))
}

func TestClassifyRun(t *testing.T) {
	assert.Equal(t, Success, ClassifyRun(&JobRun{Status: COMPLETED}))
	assert.Equal(t, Failed, ClassifyRun(&JobRun{Status: FAILED}))
	assert.Equal(t, InProgress, ClassifyRun(&JobRun{Status: STARTING}))
	assert.Equal(t, InProgress, ClassifyRun(&JobRun{Status: STOPPED}))
}

func saveRun(t *testing.T, repo Repository, version string, status BatchStatus, ended time.Time) *JobRun {
	run := newTestRun(t, repo, map[string]interface{}{ParamMigrationVersion: version})
	run.Status = status
	run.EndTime = ended
	if err := repo.SaveJobRun(context.Background(), run); err != nil {
		t.Fatalf("save job run: %v", err)
	}
	return run
}

func TestHistoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Now().Add(-time.Hour)
	entries := []CatalogEntry{{Version: "1"}, {Version: "2"}, {Version: "3"}, {Version: "4"}, {Version: "5"}, {Version: "6"}}
	saveRun(t, repo, "1", COMPLETED, base.Add(1*time.Minute))
	saveRun(t, repo, "3", FAILED, base.Add(3*time.Minute))
	saveRun(t, repo, "4", COMPLETED, base.Add(2*time.Minute))
	saveRun(t, repo, "4", FAILED, base.Add(4*time.Minute))
	saveRun(t, repo, "6", COMPLETED, base.Add(5*time.Minute))

	summaries, err := NewHistory(repo, &staticCatalog{entries: entries}, 2).List(ctx)
	assert.Equal(t, nil, err)
	versions := make([]string, 0)
	statuses := make([]RunStatus, 0)
	for _, s := range summaries {
		versions = append(versions, s.Entry.Version)
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []string{"2", "5", "6", "4"}, versions)
	assert.Equal(t, []RunStatus{Waiting, Waiting, Success, Failed}, statuses)
}

func TestHistoryDefaultLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Now().Add(-time.Hour)
	entries := make([]CatalogEntry, 0)
	for i, v := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		entries = append(entries, CatalogEntry{Version: v})
		saveRun(t, repo, v, COMPLETED, base.Add(time.Duration(i)*time.Minute))
	}
	summaries, err := NewHistory(repo, &staticCatalog{entries: entries}, 0).List(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, DefaultHistoryLimit, len(summaries))
	assert.Equal(t, "7", summaries[0].Entry.Version)
}

func TestHistoryIgnoresOtherJobTypes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	instance, _ := repo.CreateJobInstance(ctx, "export", "export", NewParameters(map[string]interface{}{ParamMigrationVersion: "1"}))
	other := &JobRun{JobInstanceId: instance.JobInstanceId, JobName: "export", JobType: "export", JobParams: instance.JobParams, Status: COMPLETED}
	_ = repo.SaveJobRun(ctx, other)

	h := NewHistory(repo, &staticCatalog{entries: []CatalogEntry{{Version: "1"}}}, 5)
	summary, err := h.Lookup(ctx, CatalogEntry{Version: "1"})
	assert.Equal(t, nil, err)
	assert.Equal(t, Waiting, summary.Status)
}

func TestHistoryCatalogFailure(t *testing.T) {
	_, err := NewHistory(NewMemoryRepository(), &staticCatalog{err: errors.New("no such dir")}, 5).List(context.Background())
	assert.NotEqual(t, nil, err)
}
