package migbatch

import (
	"time"
)

// CommandTemplate builds the command line `<interpreter> <entrypoint> <subcommand> [args] <target>`
type CommandTemplate struct {
	Interpreter string
	EntryPoint  string
	Subcommand  string
	Args        []string
	Dir         string
	Env         []string
	Timeout     time.Duration
	IdleTimeout time.Duration
}

// DefaultMigrationCommand runs one doctrine migration quietly, with a timeout and an idle timeout of one hour
func DefaultMigrationCommand() CommandTemplate {
	return CommandTemplate{
		Interpreter: "php",
		EntryPoint:  "bin/console",
		Subcommand:  "doctrine:migrations:execute",
		Args:        []string{"-q"},
		Timeout:     DefaultMigrationTimeout,
		IdleTimeout: DefaultMigrationTimeout,
	}
}

// Build the command targeting target (a migration version, a job code...), extra are appended after it
func (t CommandTemplate) Build(target string, extra ...string) Command {
	path := t.Interpreter
	args := make([]string, 0, len(t.Args)+len(extra)+3)
	if path == "" {
		path = t.EntryPoint
	} else if t.EntryPoint != "" {
		args = append(args, t.EntryPoint)
	}
	if t.Subcommand != "" {
		args = append(args, t.Subcommand)
	}
	args = append(args, t.Args...)
	if target != "" {
		args = append(args, target)
	}
	args = append(args, extra...)
	return Command{
		Path:        path,
		Args:        args,
		Dir:         t.Dir,
		Env:         t.Env,
		Timeout:     t.Timeout,
		IdleTimeout: t.IdleTimeout,
	}
}
