package migbatch

import (
	"context"
	"fmt"

	"github.com/chararch/migbatch/util"
)

// DefaultLaunchCommand runs a batch job by code through the application console, with a timeout and an idle
// timeout of two hours
func DefaultLaunchCommand() CommandTemplate {
	return CommandTemplate{
		Interpreter: "php",
		EntryPoint:  "bin/console",
		Subcommand:  "akeneo:batch:job",
		Timeout:     DefaultLaunchTimeout,
		IdleTimeout: DefaultLaunchTimeout,
	}
}

// Launcher starts batch jobs by code in a separate process, on behalf of a user
type Launcher struct {
	runner  ProcessRunner
	command CommandTemplate
}

func NewLauncher(runner ProcessRunner, command CommandTemplate) *Launcher {
	return &Launcher{runner: runner, command: command}
}

// Launch runs the job code with params and waits for it. Output of the job is logged at debug level.
func (l *Launcher) Launch(ctx context.Context, code string, params map[string]interface{}, username string) error {
	if username == "" {
		username = "admin"
	}
	extra := []string{fmt.Sprintf("--username=%s", username)}
	if len(params) > 0 {
		config, err := util.JsonString(params)
		if err != nil {
			return NewBatchError(ErrCodeGeneral, "encode params of job:%v", code, err)
		}
		extra = append(extra, fmt.Sprintf("--config=%s", config))
	}
	command := l.command.Build(code, extra...)
	DefaultLogger.Info(ctx, "launch job, code:%v, username:%v", code, username)
	err := l.runner.Run(ctx, command, func(kind StreamKind, line string) error {
		DefaultLogger.Debug(ctx, "job:%v %v: %s", code, kind, line)
		return nil
	})
	if err != nil {
		DefaultLogger.Error(ctx, "launch job failed, code:%v, err:%v", code, err)
		return err
	}
	return nil
}
