package langserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/version"
)

// Client speaks LSP over the stdio of one `buf lsp serve` process.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	output *zap.SugaredLogger

	nextID   atomic.Int64
	pending  map[int64]chan *rpcMessage
	mu       sync.Mutex
	writeMu  sync.Mutex
	shutdown bool

	done    chan struct{}
	waitErr error

	serverInfo *protocol.InitializeResultServerInfo
}

// clientSpec describes the process to launch.
type clientSpec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// startClient launches the server process. Everything it writes to stderr
// goes to output, one entry per line.
func startClient(spec clientSpec, output *zap.SugaredLogger) (*Client, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create buf lsp stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create buf lsp stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create buf lsp stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", spec.Path)
	}

	c := &Client{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		output:  output,
		pending: make(map[int64]chan *rpcMessage),
		done:    make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		c.readLoop()
	}()
	go func() {
		defer readers.Done()
		c.stderrLoop()
	}()
	// Wait only after both pipes are drained
	go func() {
		readers.Wait()
		c.waitErr = cmd.Wait()
		c.failPending()
		close(c.done)
	}()

	return c, nil
}

// PID of the server process.
func (c *Client) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Done is closed once the process has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ExitErr is the process exit error; valid after Done is closed.
func (c *Client) ExitErr() error {
	<-c.done
	return c.waitErr
}

// ServerInfo is what the server reported from initialize, if anything.
func (c *Client) ServerInfo() *protocol.InitializeResultServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Initialize performs the initialize / initialized handshake.
func (c *Client) Initialize(ctx context.Context, root string) error {
	rootURI := protocol.DocumentUri(pathToURI(root))
	clientVersion := version.ServerInfoVersion()
	params := protocol.InitializeParams{
		RootURI:      &rootURI,
		Capabilities: protocol.ClientCapabilities{},
	}
	// glsp declares clientInfo as an anonymous struct
	params.ClientInfo = &struct {
		Name    string  `json:"name"`
		Version *string `json:"version,omitempty"`
	}{
		Name:    "bufkit",
		Version: &clientVersion,
	}

	var result struct {
		Capabilities json.RawMessage                     `json:"capabilities"`
		ServerInfo   *protocol.InitializeResultServerInfo `json:"serverInfo,omitempty"`
	}
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return errors.Wrapf(err, "buf lsp initialize failed for workspace %s", root)
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.mu.Unlock()

	if err := c.notify("initialized", protocol.InitializedParams{}); err != nil {
		return errors.Wrap(err, "buf lsp initialized notification failed")
	}
	return nil
}

// DidOpen notifies the server that a document was opened.
func (c *Client) DidOpen(path, text string) error {
	return c.notify("textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentUri(pathToURI(path)),
			LanguageID: "protobuf",
			Version:    1,
			Text:       text,
		},
	})
}

// DidClose notifies the server that a document was closed.
func (c *Client) DidClose(path string) error {
	return c.notify("textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentUri(pathToURI(path))},
	})
}

// Shutdown sends shutdown and exit and waits for the process to go away.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.call(ctx, "shutdown", nil, nil); err != nil {
		return errors.Wrap(err, "buf lsp shutdown RPC failed")
	}

	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()

	if err := c.notify("exit", nil); err != nil {
		return errors.Wrap(err, "buf lsp exit notification failed")
	}
	c.closeStdin()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "timeout waiting for buf lsp to exit")
	}
}

// ForceKill terminates the process without the shutdown handshake.
func (c *Client) ForceKill() error {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()

	c.closeStdin()

	select {
	case <-c.done:
		return nil
	default:
	}
	if c.cmd.Process == nil {
		return errors.New("no buf lsp process to kill")
	}
	if err := c.cmd.Process.Kill(); err != nil {
		select {
		case <-c.done:
			return nil
		default:
		}
		return errors.Wrapf(err, "failed to kill buf lsp process (pid %d)", c.cmd.Process.Pid)
	}
	<-c.done
	return nil
}

func (c *Client) closeStdin() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.stdin != nil {
		_ = c.stdin.Close()
		c.stdin = nil
	}
}

// call sends a request and waits for its response.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return errors.New("buf lsp client is shut down")
	}
	id := c.nextID.Add(1)
	responseChan := make(chan *rpcMessage, 1)
	c.pending[id] = responseChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return errors.Wrapf(err, "failed to write JSON-RPC request for method %s", method)
	}

	select {
	case resp, ok := <-responseChan:
		if !ok || resp == nil {
			return errors.Newf("buf lsp exited before answering %s", method)
		}
		if resp.Error != nil {
			return errors.Newf("JSON-RPC error %d on method %s: %s", resp.Error.Code, method, resp.Error.Message)
		}
		if result != nil && resp.Result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return errors.Wrapf(err, "failed to unmarshal JSON-RPC response for method %s", method)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) notify(method string, params interface{}) error {
	return c.write(rpcRequest{Jsonrpc: "2.0", Method: method, Params: params})
}

func (c *Client) write(msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.stdin == nil {
		return errors.New("buf lsp stdin is closed")
	}
	return writeFrame(c.stdin, msg)
}

// failPending unblocks callers still waiting when the process exits.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) readLoop() {
	reader := bufio.NewReader(c.stdout)
	for {
		content, err := readFrame(reader)
		if err != nil {
			return
		}

		var msg rpcMessage
		if err := json.Unmarshal(content, &msg); err != nil {
			c.output.Warnw("Unparseable message from buf lsp", "error", err.Error())
			continue
		}

		switch {
		case msg.isResponse():
			id, ok := msg.numericID()
			if !ok {
				continue
			}
			c.mu.Lock()
			if ch, ok := c.pending[id]; ok {
				ch <- &msg
			}
			c.mu.Unlock()
		case len(msg.ID) > 0:
			// Server-to-client request: we have no client features, so answer null
			if err := c.write(rpcReply{Jsonrpc: "2.0", ID: msg.ID, Result: nil}); err != nil {
				return
			}
		default:
			c.handleNotification(&msg)
		}
	}
}

func (c *Client) handleNotification(msg *rpcMessage) {
	switch msg.Method {
	case "window/logMessage", "window/showMessage":
		c.handleLogMessage(msg)
	case "textDocument/publishDiagnostics":
		var params struct {
			URI         string            `json:"uri"`
			Diagnostics []json.RawMessage `json:"diagnostics"`
		}
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		c.output.Debugw("Diagnostics published", logger.FieldPath, uriToPath(params.URI), "count", len(params.Diagnostics))
	}
}

func (c *Client) handleLogMessage(msg *rpcMessage) {
	var params protocol.LogMessageParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	switch params.Type {
	case protocol.MessageTypeError:
		c.output.Error(params.Message)
	case protocol.MessageTypeWarning:
		c.output.Warn(params.Message)
	default:
		c.output.Info(params.Message)
	}
}

func (c *Client) stderrLoop() {
	scanner := bufio.NewScanner(c.stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			c.output.Info(line)
		}
	}
}
