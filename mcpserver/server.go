// Package mcpserver exposes the command dispatcher over the Model Context
// Protocol so agents can run buf commands and read the language server state.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/commands"
	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/status"
	"github.com/teranos/bufkit/version"
)

const (
	// ServerName is advertised in the MCP initialize response
	ServerName = "bufkit"

	StatusToolName   = "buf_status"
	CommandsToolName = "buf_commands"
)

// Server wraps a Dispatcher and exposes each of its commands as an MCP tool
type Server struct {
	dispatcher *commands.Dispatcher
	lifecycle  *lifecycle.Context
	server     *server.MCPServer
	logger     *zap.SugaredLogger
	tools      []string
}

// Config configures a Server
type Config struct {
	Dispatcher *commands.Dispatcher
	Lifecycle  *lifecycle.Context
	Logger     *zap.SugaredLogger
}

// New creates an MCP server with one tool per registered command plus the
// status and command-listing tools. Commands registered after New are not exposed.
func New(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil || cfg.Lifecycle == nil {
		return nil, errors.NewInvalidRequestError("mcp server requires a dispatcher and a lifecycle context")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("mcp")
	}

	s := &Server{
		dispatcher: cfg.Dispatcher,
		lifecycle:  cfg.Lifecycle,
		logger:     cfg.Logger,
		server: server.NewMCPServer(
			ServerName,
			version.ServerInfoVersion(),
			server.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s, nil
}

// ToolName maps a command name to its MCP tool name ("dep-update" -> "buf_dep_update")
func ToolName(command string) string {
	return "buf_" + strings.ReplaceAll(command, "-", "_")
}

// ToolNames returns the registered tool names in registration order
func (s *Server) ToolNames() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) registerTools() {
	for _, cmd := range s.dispatcher.Commands() {
		tool := mcp.NewTool(ToolName(cmd.Name()),
			mcp.WithDescription(cmd.Description()),
		)
		s.addTool(tool, s.commandHandler(cmd.Name()))
	}

	statusTool := mcp.NewTool(StatusToolName,
		mcp.WithDescription("Report the buf language server status, busy flag and detected buf installation"),
	)
	s.addTool(statusTool, s.handleStatus)

	commandsTool := mcp.NewTool(CommandsToolName,
		mcp.WithDescription("List the buf commands and whether each is currently enabled"),
	)
	s.addTool(commandsTool, s.handleCommands)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.server.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// commandHandler runs the dispatcher command and maps its outcome to a tool result
func (s *Server) commandHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.dispatcher.Execute(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		s.logger.Debugw("MCP tool call finished",
			logger.FieldCommand, name,
			logger.FieldInvocationID, out.InvocationID,
			"outcome", out.Kind.String())

		if !out.OK() {
			return mcp.NewToolResultError(out.Message), nil
		}
		if out.Message == "" {
			return mcp.NewToolResultText(fmt.Sprintf("%s completed", name)), nil
		}
		return mcp.NewToolResultText(out.Message), nil
	}
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := status.Compute(s.lifecycle.Status(), s.lifecycle.Busy(), s.lifecycle.Tool())
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// commandInfo is one entry of the buf_commands result
type commandInfo struct {
	Name         string `json:"name"`
	Tool         string `json:"tool"`
	Description  string `json:"description"`
	Enabled      bool   `json:"enabled"`
	RequiresTool bool   `json:"requires_tool"`
}

func (s *Server) handleCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmds := s.dispatcher.Commands()
	infos := make([]commandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		infos = append(infos, commandInfo{
			Name:         cmd.Name(),
			Tool:         ToolName(cmd.Name()),
			Description:  cmd.Description(),
			Enabled:      s.dispatcher.Enabled(cmd.Name()),
			RequiresTool: cmd.RequiresTool(),
		})
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode commands: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// MCP returns the underlying mcp-go server
func (s *Server) MCP() *server.MCPServer {
	return s.server
}

// Serve starts the MCP server using stdio transport
func (s *Server) Serve() error {
	return server.ServeStdio(s.server)
}
