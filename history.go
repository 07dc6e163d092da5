package migbatch

import (
	"context"
	"sort"

	"github.com/samber/lo"
)

// RunStatus is the display status of a migration in the run history
type RunStatus string

const (
	Waiting    RunStatus = "waiting"
	Success    RunStatus = "success"
	Failed     RunStatus = "failed"
	InProgress RunStatus = "in_progress"
)

// CatalogEntry is a known migration
type CatalogEntry struct {
	Version string
	Label   string
}

// Catalog lists the migrations available to run
type Catalog interface {
	Entries(ctx context.Context) ([]CatalogEntry, error)
}

// MigrationSummary pairs a catalog entry with its last run
type MigrationSummary struct {
	Entry   CatalogEntry
	Status  RunStatus
	LastRun *JobRun
}

// FindLastRun returns the most recent run of runs whose migrationVersion parameter matches version, nil if none
// does. Runs are ordered by end time, or create time when they have not ended, then by create time and id.
func FindLastRun(version string, runs []*JobRun) *JobRun {
	var last *JobRun
	for _, run := range lo.Filter(runs, func(run *JobRun, _ int) bool {
		return run != nil && run.JobParams.Matches(ParamMigrationVersion, version)
	}) {
		if last == nil || moreRecent(run, last) {
			last = run
		}
	}
	return last
}

func moreRecent(a, b *JobRun) bool {
	ta, tb := a.RecencyTime(), b.RecencyTime()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	if !a.CreateTime.Equal(b.CreateTime) {
		return a.CreateTime.After(b.CreateTime)
	}
	return a.JobRunId > b.JobRunId
}

// ClassifyRun gives the display status of a migration whose last run is run
func ClassifyRun(run *JobRun) RunStatus {
	if run == nil {
		return Waiting
	}
	switch run.Status {
	case COMPLETED:
		return Success
	case FAILED:
		return Failed
	default:
		return InProgress
	}
}

// History answers run history queries about the migrations of a catalog
type History struct {
	repository Repository
	catalog    Catalog
	jobType    string
	limit      int
}

// NewHistory create a History listing at most limit executed migrations, a non-positive limit means DefaultHistoryLimit
func NewHistory(repository Repository, catalog Catalog, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		repository: repository,
		catalog:    catalog,
		jobType:    JobTypeMigration,
		limit:      limit,
	}
}

// Lookup returns the summary of one migration
func (h *History) Lookup(ctx context.Context, entry CatalogEntry) (MigrationSummary, error) {
	runs, err := h.repository.FindJobRunsByParameter(ctx, h.jobType, ParamMigrationVersion, entry.Version)
	if err != nil {
		return MigrationSummary{}, err
	}
	last := FindLastRun(entry.Version, runs)
	return MigrationSummary{Entry: entry, Status: ClassifyRun(last), LastRun: last}, nil
}

// List returns the migrations never run, in catalog order, followed by the most recently run ones, newest first
func (h *History) List(ctx context.Context) ([]MigrationSummary, error) {
	entries, err := h.catalog.Entries(ctx)
	if err != nil {
		DefaultLogger.Error(ctx, "list migration catalog failed, err:%v", err)
		return nil, err
	}
	runs, er := h.repository.FindJobRunsByType(ctx, h.jobType)
	if er != nil {
		DefaultLogger.Error(ctx, "find job runs failed, jobType:%v, err:%v", h.jobType, er)
		return nil, er
	}
	summaries := lo.Map(entries, func(entry CatalogEntry, _ int) MigrationSummary {
		last := FindLastRun(entry.Version, runs)
		return MigrationSummary{Entry: entry, Status: ClassifyRun(last), LastRun: last}
	})
	neverRun := lo.Filter(summaries, func(s MigrationSummary, _ int) bool {
		return s.LastRun == nil
	})
	executed := lo.Filter(summaries, func(s MigrationSummary, _ int) bool {
		return s.LastRun != nil
	})
	sort.SliceStable(executed, func(i, j int) bool {
		return moreRecent(executed[i].LastRun, executed[j].LastRun)
	})
	if len(executed) > h.limit {
		executed = executed[:h.limit]
	}
	return append(neverRun, executed...), nil
}
