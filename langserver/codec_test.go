package langserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, rpcRequest{Jsonrpc: "2.0", ID: 7, Method: "shutdown"}))
	assert.True(t, strings.HasPrefix(buf.String(), "Content-Length: "))

	content, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)

	var msg rpcMessage
	require.NoError(t, json.Unmarshal(content, &msg))
	assert.Equal(t, "shutdown", msg.Method)
	id, ok := msg.numericID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestReadFrameSkipsEmptyFrames(t *testing.T) {
	input := "X-Other: 1\r\n\r\nContent-Type: application/vscode-jsonrpc\r\nContent-Length: 2\r\n\r\n{}"
	content, err := readFrame(bufio.NewReader(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(content))
}

func TestReadFrameRejectsBadContentLength(t *testing.T) {
	for _, header := range []string{"Content-Length: -1", "Content-Length: 1073741824"} {
		t.Run(header, func(t *testing.T) {
			input := header + "\r\n\r\n{}"
			_, err := readFrame(bufio.NewReader(strings.NewReader(input)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid Content-Length")
		})
	}
}

func TestMessageClassification(t *testing.T) {
	var resp, req, note rpcMessage
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`), &resp))
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"a","method":"workspace/configuration"}`), &req))
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"window/logMessage"}`), &note))

	assert.True(t, resp.isResponse())
	assert.False(t, req.isResponse())
	_, ok := req.numericID()
	assert.False(t, ok)
	assert.False(t, note.isResponse())
	assert.Empty(t, note.ID)
}

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	path := filepath.Join("/tmp", "my protos", "a.proto")
	uri := pathToURI(path)
	assert.Equal(t, "file:///tmp/my%20protos/a.proto", uri)
	assert.Equal(t, path, uriToPath(uri))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
}
