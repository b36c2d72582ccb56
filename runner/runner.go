// Package runner is the single point of contact with external processes.
// Commands and tool detection go through an Executor so that tests can
// substitute a fake without touching the filesystem.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/logger"
)

// Options controls a single invocation.
type Options struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// Result holds the fully buffered output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Failed reports whether the process exited with a non-zero status.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Executor runs a binary to completion.
//
// A non-nil error means the process could not be launched (missing binary,
// permission denied, bad working directory). A process that starts and exits
// non-zero is not an error: the exit code is reported in Result.
type Executor interface {
	Execute(ctx context.Context, path string, argv []string, opts Options) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, path string, argv []string, opts Options) (Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, path string, argv []string, opts Options) (Result, error) {
	return f(ctx, path, argv, opts)
}

// OS runs real processes via os/exec.
type OS struct {
	Logger *zap.SugaredLogger
}

// NewOS returns an Executor backed by os/exec.
func NewOS(log *zap.SugaredLogger) *OS {
	if log == nil {
		log = logger.ComponentLogger("runner")
	}
	return &OS{Logger: log}
}

// Execute implements Executor. Output is captured in full and only returned
// once the process has exited.
func (o *OS) Execute(ctx context.Context, path string, argv []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, path, argv...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := logger.LoggerFromContext(ctx, o.Logger)
	log.Debugw("Executing",
		logger.FieldBinary, path,
		logger.FieldArgs, strings.Join(argv, " "),
		logger.FieldDir, opts.Dir)

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, errors.Wrapf(err, "failed to launch %s", path)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	log.Debugw("Process exited",
		logger.FieldBinary, path,
		logger.FieldExitCode, result.ExitCode,
		logger.FieldDurationMS, result.Duration.Milliseconds())

	return result, nil
}

// LookPath resolves name the way the OS executor would.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, "%s not found in PATH", name)
	}
	return path, nil
}
