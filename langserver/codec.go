package langserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/teranos/bufkit/errors"
)

// maxFrameSize bounds a single incoming payload.
const maxFrameSize = 64 << 20

// rpcRequest is an outgoing JSON-RPC 2.0 request or notification.
type rpcRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int64       `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcReply answers a request the server sent to us.
type rpcReply struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
}

// rpcMessage is anything read from the server: a response to one of our
// calls, a notification, or a server-to-client request.
type rpcMessage struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (m *rpcMessage) isResponse() bool {
	return m.Method == "" && len(m.ID) > 0
}

func (m *rpcMessage) numericID() (int64, bool) {
	var id int64
	if err := json.Unmarshal(m.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}

// writeFrame writes msg with an LSP Content-Length header.
func writeFrame(w io.Writer, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON-RPC message")
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(w, header); err != nil {
		return errors.Wrap(err, "failed to write LSP header")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write LSP message")
	}
	return nil
}

// readFrame reads one Content-Length framed payload. Frames without a
// Content-Length header are skipped.
func readFrame(reader *bufio.Reader) ([]byte, error) {
	for {
		var contentLength int
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil, err
			}
			line = strings.TrimSpace(line)
			if line == "" {
				break
			}
			if _, err := fmt.Sscanf(line, "Content-Length: %d", &contentLength); err == nil {
				continue
			}
		}

		if contentLength == 0 {
			continue
		}
		if contentLength < 0 || contentLength > maxFrameSize {
			return nil, errors.Newf("invalid Content-Length %d", contentLength)
		}

		content := make([]byte, contentLength)
		if _, err := io.ReadFull(reader, content); err != nil {
			return nil, err
		}
		return content, nil
	}
}
