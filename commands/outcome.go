package commands

import (
	"time"

	"github.com/teranos/bufkit/errors"
)

// Kind classifies the result of one command invocation.
type Kind int

const (
	KindSuccess Kind = iota
	KindToolNotFound
	KindExecutionFailed
	KindToolReportedError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindToolNotFound:
		return "tool-not-found"
	case KindExecutionFailed:
		return "execution-failed"
	case KindToolReportedError:
		return "tool-reported-error"
	default:
		return "unknown"
	}
}

// Outcome is what a single invocation produced. Message is exactly the text
// that was written to the Log sink.
type Outcome struct {
	Command      string
	InvocationID string
	Kind         Kind
	Message      string
	Stdout       string
	Err          error
	Duration     time.Duration
}

// OK reports whether the invocation succeeded.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

func success(stdout string) Outcome {
	return Outcome{Kind: KindSuccess, Message: stdout, Stdout: stdout}
}

func toolNotFound() Outcome {
	err := errors.WithHint(errors.ErrToolNotFound, "install buf or set buf.path in bufkit.toml")
	return Outcome{Kind: KindToolNotFound, Message: errors.ErrToolNotFound.Error(), Err: err}
}

func executionFailed(prefix string, cause error) Outcome {
	err := errors.Mark(errors.Wrap(cause, prefix), errors.ErrExecutionFailed)
	return Outcome{Kind: KindExecutionFailed, Message: prefix + ": " + cause.Error(), Err: err}
}

func toolReportedError(prefix, stderr string) Outcome {
	err := errors.Mark(errors.Newf("%s: %s", prefix, stderr), errors.ErrToolReportedError)
	return Outcome{Kind: KindToolReportedError, Message: prefix + ": " + stderr, Err: err}
}
