package runner

import (
	"context"
	"sync"
)

// Call records one invocation seen by a Fake.
type Call struct {
	Path string
	Argv []string
	Opts Options
}

// Fake is an in-memory Executor for tests. Responses are keyed by the first
// argument; Default answers everything else.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	Responses map[string]FakeResponse
	Default   FakeResponse
}

// FakeResponse is what a Fake returns for a call.
type FakeResponse struct {
	Result Result
	Err    error
}

// NewFake returns a Fake that answers every call with result.
func NewFake(result Result, err error) *Fake {
	return &Fake{Default: FakeResponse{Result: result, Err: err}}
}

// Execute implements Executor.
func (f *Fake) Execute(_ context.Context, path string, argv []string, opts Options) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Path: path, Argv: append([]string(nil), argv...), Opts: opts})
	if len(argv) > 0 {
		if resp, ok := f.Responses[argv[0]]; ok {
			return resp.Result, resp.Err
		}
	}
	return f.Default.Result, f.Default.Err
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
