package migbatch

import (
	"os"
	"time"
)

var DefaultLogger Logger

// SetLogger set a logger instance for migbatch
func SetLogger(logger Logger) {
	DefaultLogger = logger
}

func init() {
	DefaultLogger = NewLogger(os.Stdout, Info)
}

// task pool
const (
	DefaultJobPoolSize = 10
)

// timeouts of spawned processes
const (
	DefaultMigrationTimeout = time.Hour
	DefaultLaunchTimeout    = 2 * time.Hour
)

// DefaultHistoryLimit number of executed migrations listed by History
const DefaultHistoryLimit = 5

var jobPool = newTaskPool(DefaultJobPoolSize)

// SetMaxRunningJobs set max number of parallel jobs for migbatch
func SetMaxRunningJobs(size int) {
	jobPool.SetMaxSize(size)
}
