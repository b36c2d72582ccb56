package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not available on windows")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestOSExecuteCapturesOutput(t *testing.T) {
	sh := requireShell(t)
	dir := t.TempDir()

	res, err := NewOS(nil).Execute(context.Background(), sh,
		[]string{"-c", "pwd; echo oops >&2"}, Options{Dir: dir})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, filepath.Base(resolved))
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Failed())
}

func TestOSExecuteNonZeroExitIsNotAnError(t *testing.T) {
	sh := requireShell(t)

	res, err := NewOS(nil).Execute(context.Background(), sh, []string{"-c", "exit 3"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.Failed())
	assert.Empty(t, res.Stderr)
}

func TestOSExecuteEnv(t *testing.T) {
	sh := requireShell(t)

	res, err := NewOS(nil).Execute(context.Background(), sh,
		[]string{"-c", "printf %s \"$BUFKIT_TEST\""}, Options{Env: []string{"BUFKIT_TEST=hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout)
}

func TestOSExecuteLaunchFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "buf")

	_, err := NewOS(nil).Execute(context.Background(), missing, []string{"generate"}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch")
}

func TestOSExecuteNotExecutable(t *testing.T) {
	requireShell(t)
	path := filepath.Join(t.TempDir(), "buf")
	require.NoError(t, os.WriteFile(path, []byte("not a binary"), 0o644))

	_, err := NewOS(nil).Execute(context.Background(), path, nil, Options{})
	assert.Error(t, err)
}

func TestFakeRecordsCalls(t *testing.T) {
	f := NewFake(Result{Stdout: "default"}, nil)
	f.Responses = map[string]FakeResponse{
		"--version": {Result: Result{Stdout: "1.47.2\n"}},
	}

	res, err := f.Execute(context.Background(), "/usr/bin/buf", []string{"--version"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1.47.2\n", res.Stdout)

	res, err = f.Execute(context.Background(), "/usr/bin/buf", []string{"generate"}, Options{Dir: "/ws"})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Stdout)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"generate"}, calls[1].Argv)
	assert.Equal(t, "/ws", calls[1].Opts.Dir)
}

func TestLookPathMissing(t *testing.T) {
	_, err := LookPath("definitely-not-a-real-binary-bufkit")
	assert.Error(t, err)
}
