package migbatch

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// StreamKind tells which output stream of a process a line was read from
type StreamKind int

const (
	Stdout StreamKind = iota
	Stderr
)

func (k StreamKind) String() string {
	if k == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Command describes a process to spawn. A zero Timeout or IdleTimeout disables the corresponding limit.
type Command struct {
	Path        string
	Args        []string
	Dir         string
	Env         []string
	Timeout     time.Duration
	IdleTimeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// LineHandler receives process output one line at a time. Returning an error aborts the process.
type LineHandler func(kind StreamKind, line string) error

// ProcessRunner spawns a process and streams its output. Run blocks until the process is finished and returns a
// BatchError with code ErrCodeProcessFailed if the process could not start, exited with a non-zero code, exceeded a
// timeout, or if the handler returned an error.
type ProcessRunner interface {
	Run(ctx context.Context, command Command, onLine LineHandler) BatchError
}

// ExecRunner is the ProcessRunner spawning OS processes
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

type streamLine struct {
	kind StreamKind
	text string
}

func (r *ExecRunner) Run(ctx context.Context, command Command, onLine LineHandler) BatchError {
	if command.Path == "" {
		return NewBatchError(ErrCodeProcessFailed, "command path is required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command.Path, command.Args...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return NewBatchError(ErrCodeProcessFailed, "open stdout of command:%v failed", command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return NewBatchError(ErrCodeProcessFailed, "open stderr of command:%v failed", command, err)
	}
	if err = cmd.Start(); err != nil {
		return NewBatchError(ErrCodeProcessFailed, "start command:%v failed", command, err)
	}
	DefaultLogger.Debug(ctx, "process started, command:%v, pid:%v", command, cmd.Process.Pid)

	lines := make(chan streamLine)
	var wg sync.WaitGroup
	wg.Add(2)
	go readLines(runCtx.Done(), stdout, Stdout, lines, &wg)
	go readLines(runCtx.Done(), stderr, Stderr, lines, &wg)
	go func() {
		wg.Wait()
		close(lines)
	}()

	var timeoutC, idleC <-chan time.Time
	if command.Timeout > 0 {
		timer := time.NewTimer(command.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}
	var idleTimer *time.Timer
	if command.IdleTimeout > 0 {
		idleTimer = time.NewTimer(command.IdleTimeout)
		defer idleTimer.Stop()
		idleC = idleTimer.C
	}

	var failure error
	var waitC chan error
	var waitErr error
	waited := false
loop:
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				lines = nil
				waitC = make(chan error, 1)
				go func() {
					waitC <- cmd.Wait()
				}()
				continue
			}
			if idleTimer != nil {
				if !idleTimer.Stop() {
					<-idleTimer.C
				}
				idleTimer.Reset(command.IdleTimeout)
			}
			if er := onLine(l.kind, l.text); er != nil {
				failure = er
				break loop
			}
		case waitErr = <-waitC:
			waitC = nil
			waited = true
			break loop
		case <-timeoutC:
			failure = errors.Wrapf(ErrProcessTimeout, "timeout %v", command.Timeout)
			break loop
		case <-idleC:
			failure = errors.Wrapf(ErrProcessIdleTimeout, "idle timeout %v", command.IdleTimeout)
			break loop
		case <-ctx.Done():
			failure = ctx.Err()
			break loop
		}
	}

	if failure == nil && waitErr != nil && ctx.Err() != nil {
		// killed because ctx ended
		failure = ctx.Err()
	}
	if failure != nil {
		cancel()
		if waitC != nil {
			<-waitC
		} else if !waited {
			_ = cmd.Wait()
		}
		DefaultLogger.Warn(ctx, "process aborted, command:%v, cause:%v", command, failure)
		return NewBatchError(ErrCodeProcessFailed, "command:%v aborted", command, failure)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return NewBatchError(ErrCodeProcessFailed, "command:%v exited with code %d", command, exitErr.ExitCode(), waitErr)
		}
		return NewBatchError(ErrCodeProcessFailed, "wait for command:%v failed", command, waitErr)
	}
	DefaultLogger.Debug(ctx, "process finished, command:%v", command)
	return nil
}

// readLines forwards every line of r to lines, trailing line breaks removed
func readLines(done <-chan struct{}, r io.Reader, kind StreamKind, lines chan<- streamLine, wg *sync.WaitGroup) {
	defer wg.Done()
	reader := bufio.NewReader(r)
	for {
		text, err := reader.ReadString('\n')
		if text != "" {
			select {
			case lines <- streamLine{kind: kind, text: strings.TrimRight(text, "\r\n")}:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}
