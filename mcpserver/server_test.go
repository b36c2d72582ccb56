package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/commands"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/runner"
)

func newServer(t *testing.T, exec *runner.Fake) (*Server, *lifecycle.Context) {
	t.Helper()
	lc := lifecycle.New()
	t.Cleanup(func() { _ = lc.Close() })

	d, err := commands.NewDispatcher(commands.Config{
		Lifecycle: lc,
		Executor:  exec,
		Root:      "/path/to/workspace",
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	require.NoError(t, d.RegisterBuiltins())
	t.Cleanup(d.Close)

	s, err := New(Config{Dispatcher: d, Lifecycle: lc, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	return s, lc
}

func setTool(t *testing.T, lc *lifecycle.Context) {
	t.Helper()
	tool, err := lifecycle.ParseToolDescriptor("/path/to/buf", ">=1.40.0", "1.50.0")
	require.NoError(t, err)
	lc.SetTool(tool)
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "buf_generate", ToolName(commands.Generate))
	assert.Equal(t, "buf_dep_update", ToolName(commands.DepUpdate))
	assert.Equal(t, "buf_server_restart", ToolName(commands.ServerRestart))
}

func TestNew_RegistersOneToolPerCommand(t *testing.T) {
	s, _ := newServer(t, runner.NewFake(runner.Result{}, nil))

	names := s.ToolNames()
	assert.Contains(t, names, "buf_generate")
	assert.Contains(t, names, "buf_lint")
	assert.Contains(t, names, "buf_dep_update")
	assert.Contains(t, names, StatusToolName)
	assert.Contains(t, names, CommandsToolName)
	assert.Len(t, names, len(s.dispatcher.Commands())+2)
}

func TestNew_RequiresDispatcher(t *testing.T) {
	_, err := New(Config{Lifecycle: lifecycle.New()})
	assert.Error(t, err)
}

func TestCommandTool_Success(t *testing.T) {
	exec := runner.NewFake(runner.Result{Stdout: "Generated successfully"}, nil)
	s, lc := newServer(t, exec)
	setTool(t, lc)

	result, err := s.commandHandler(commands.Generate)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "Generated successfully", textOf(t, result))
	require.Len(t, exec.Calls(), 1)
	assert.Equal(t, []string{"generate"}, exec.Calls()[0].Argv)
}

func TestCommandTool_SilentSuccess(t *testing.T) {
	s, lc := newServer(t, runner.NewFake(runner.Result{}, nil))
	setTool(t, lc)

	result, err := s.commandHandler(commands.Lint)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "lint completed", textOf(t, result))
}

func TestCommandTool_ToolNotFound(t *testing.T) {
	exec := runner.NewFake(runner.Result{}, nil)
	s, _ := newServer(t, exec)

	result, err := s.commandHandler(commands.Generate)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "buf is not installed")
	assert.Empty(t, exec.Calls())
}

func TestCommandTool_ToolReportedError(t *testing.T) {
	s, lc := newServer(t, runner.NewFake(runner.Result{Stderr: "Error occurred", ExitCode: 1}, nil))
	setTool(t, lc)

	result, err := s.commandHandler(commands.Generate)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Error occurred")
}

func TestCommandTool_UnknownCommand(t *testing.T) {
	s, _ := newServer(t, runner.NewFake(runner.Result{}, nil))

	result, err := s.commandHandler("no-such-command")(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestStatusTool(t *testing.T) {
	s, lc := newServer(t, runner.NewFake(runner.Result{}, nil))
	setTool(t, lc)
	lc.SetStatus(lifecycle.StatusRunning)

	result, err := s.handleStatus(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &snap))
	assert.Equal(t, "running", snap["status"])
	assert.Equal(t, true, snap["installed"])
	assert.Equal(t, false, snap["busy"])
}

func TestCommandsTool_ReflectsGate(t *testing.T) {
	s, lc := newServer(t, runner.NewFake(runner.Result{}, nil))

	enabled := func() map[string]bool {
		result, err := s.handleCommands(context.Background(), mcp.CallToolRequest{})
		require.NoError(t, err)
		var infos []commandInfo
		require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &infos))
		out := make(map[string]bool)
		for _, info := range infos {
			out[info.Name] = info.Enabled
		}
		return out
	}

	assert.False(t, enabled()[commands.Generate])

	setTool(t, lc)
	assert.True(t, enabled()[commands.Generate])
}
