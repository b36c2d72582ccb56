package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/runner"
)

func TestParseCustom(t *testing.T) {
	cmds, err := ParseCustom(`
[[command]]
name = "breaking"
args = "buf breaking --against '.git#branch=main'"
error_prefix = "Breaking change detected"

[[command]]
name = "push"
args = "push --tag \"release candidate\""
busy = true
`)
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	breaking := cmds[0].(*ToolCommand)
	assert.Equal(t, "breaking", breaking.Name())
	assert.Equal(t, []string{"breaking", "--against", ".git#branch=main"}, breaking.Args)
	assert.Equal(t, "Breaking change detected", breaking.ErrorPrefix)
	assert.False(t, breaking.Busy)

	push := cmds[1].(*ToolCommand)
	assert.Equal(t, []string{"push", "--tag", "release candidate"}, push.Args)
	assert.Equal(t, "Error running buf push", push.ErrorPrefix)
	assert.True(t, push.Busy)
	assert.Contains(t, push.Description(), "buf push")
}

func TestParseCustomErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing name", "[[command]]\nargs = \"lint\"\n"},
		{"missing args", "[[command]]\nname = \"x\"\n"},
		{"only buf", "[[command]]\nname = \"x\"\nargs = \"buf\"\n"},
		{"unterminated quote", "[[command]]\nname = \"x\"\nargs = \"lint 'oops\"\n"},
		{"unknown key", "[[command]]\nname = \"x\"\nargs = \"lint\"\nshell = true\n"},
		{"bad toml", "[[command]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCustom(tt.text)
			assert.Error(t, err)
		})
	}

	_, err := ParseCustom("[[command]]\nname = \"x\"\nargs = \"lint\"\n[[command]]\nname = \"x\"\nargs = \"build\"\n")
	assert.True(t, errors.IsConflictError(err))
}

func TestCustomCommandRunsThroughDispatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[command]]\nname = \"ls-files\"\nargs = \"ls-files\"\n"), 0o644))

	cmds, err := LoadCustomFile(path)
	require.NoError(t, err)

	f := newFixture(t, runner.NewFake(runner.Result{Stderr: "no buf.yaml"}, nil))
	f.withTool(t)
	for _, cmd := range cmds {
		require.NoError(t, f.d.Register(cmd))
	}
	assert.True(t, f.d.Enabled("ls-files"))

	out, err := f.d.Execute(context.Background(), "ls-files")
	require.NoError(t, err)
	assert.Equal(t, KindToolReportedError, out.Kind)
	assert.Equal(t, "Error running buf ls-files: no buf.yaml", f.logs.All()[0].Message)
}

func TestLoadCustomFileMissing(t *testing.T) {
	_, err := LoadCustomFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
