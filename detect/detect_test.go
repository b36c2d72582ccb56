package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/runner"
)

func fakeBuf(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buf")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func notInPath(string) (string, error) {
	return "", errors.New("not found")
}

func newDetector(t *testing.T, cfg Config) *Detector {
	t.Helper()
	if cfg.LookPath == nil {
		cfg.LookPath = notInPath
	}
	if cfg.CommonPaths == nil {
		cfg.CommonPaths = []string{}
	}
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

func TestDetectConfiguredPath(t *testing.T) {
	path := fakeBuf(t)
	exec := runner.NewFake(runner.Result{Stdout: "1.47.2\n"}, nil)
	d := newDetector(t, Config{Path: path, Executor: exec})

	tool, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, tool.Path())
	assert.Equal(t, "1.47.2", tool.Version().String())
	assert.True(t, tool.Satisfied())

	calls := exec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"--version"}, calls[0].Argv)
}

func TestDetectConfiguredPathMissing(t *testing.T) {
	d := newDetector(t, Config{Path: filepath.Join(t.TempDir(), "buf"), Executor: runner.NewFake(runner.Result{}, nil)})

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsToolNotFound(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestDetectConfiguredPathIsDirectory(t *testing.T) {
	exec := runner.NewFake(runner.Result{Stdout: "1.47.2"}, nil)
	d := newDetector(t, Config{Path: t.TempDir(), Executor: exec})

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsToolNotFound(err))
	assert.Contains(t, err.Error(), "is a directory")
	assert.Empty(t, exec.Calls(), "a directory is never launched")
}

func TestDetectFromPath(t *testing.T) {
	path := fakeBuf(t)
	d := newDetector(t, Config{
		Executor: runner.NewFake(runner.Result{Stdout: "1.50.0"}, nil),
		LookPath: func(name string) (string, error) {
			assert.Equal(t, "buf", name)
			return path, nil
		},
	})

	tool, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, tool.Path())
}

func TestDetectFromCommonPaths(t *testing.T) {
	path := fakeBuf(t)
	d := newDetector(t, Config{
		Executor:    runner.NewFake(runner.Result{Stdout: "1.50.0"}, nil),
		CommonPaths: []string{filepath.Join(t.TempDir(), "buf"), path},
	})

	tool, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, tool.Path())
}

func TestDetectNotInstalled(t *testing.T) {
	d := newDetector(t, Config{Executor: runner.NewFake(runner.Result{}, nil)})

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsToolNotFound(err))
	assert.Contains(t, errors.FlattenDetails(err), "$PATH")
}

func TestDetectVersionOutOfRange(t *testing.T) {
	d := newDetector(t, Config{
		Path:     fakeBuf(t),
		Executor: runner.NewFake(runner.Result{Stdout: "1.28.1"}, nil),
	})

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsToolNotFound(err))
	assert.Contains(t, err.Error(), "does not satisfy >=1.40.0")
}

func TestDetectVersionCommandFails(t *testing.T) {
	d := newDetector(t, Config{
		Path:     fakeBuf(t),
		Executor: runner.NewFake(runner.Result{}, errors.New("exec format error")),
	})

	_, err := d.Detect(context.Background())
	assert.True(t, errors.IsToolNotFound(err))

	d = newDetector(t, Config{
		Path:     fakeBuf(t),
		Executor: runner.NewFake(runner.Result{ExitCode: 2, Stderr: "unknown flag"}, nil),
	})
	_, err = d.Detect(context.Background())
	assert.True(t, errors.IsToolNotFound(err))
}

func TestNewRejectsBadRange(t *testing.T) {
	_, err := New(Config{VersionRange: "not-a-range"})
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"1.47.2\n", "1.47.2"},
		{"v1.40.0", "1.40.0"},
		{"buf version 1.45.0-rc.1", "1.45.0-rc.1"},
	}
	for _, tt := range tests {
		v, err := ParseVersion(tt.output)
		require.NoError(t, err, tt.output)
		assert.Equal(t, tt.want, v.String())
	}

	_, err := ParseVersion("garbage")
	assert.Error(t, err)
}

func TestRefreshUpdatesContext(t *testing.T) {
	lc := lifecycle.New()
	defer lc.Close()
	var notified int
	lc.Subscribe(func() { notified++ })

	path := fakeBuf(t)
	d := newDetector(t, Config{Path: path, Executor: runner.NewFake(runner.Result{Stdout: "1.47.2"}, nil)})

	_, err := d.Refresh(context.Background(), lc)
	require.NoError(t, err)
	require.NotNil(t, lc.Tool())
	assert.Equal(t, 1, notified)

	// Same install again is silent
	_, err = d.Refresh(context.Background(), lc)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	require.NoError(t, os.Remove(path))
	_, err = d.Refresh(context.Background(), lc)
	assert.Error(t, err)
	assert.Nil(t, lc.Tool())
	assert.Equal(t, 2, notified)
}
