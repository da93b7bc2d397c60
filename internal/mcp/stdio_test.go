// ABOUTME: Tests for the stdio transport: line framing and parse-error recovery.

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveLines(t *testing.T, input string) []rpcReply {
	t.Helper()

	var out bytes.Buffer
	s, err := NewStdioServer(StdioConfig{
		Table: testTable(t),
		In:    strings.NewReader(input),
		Out:   &out,
	})
	require.NoError(t, err)
	require.NoError(t, s.Serve(context.Background()))

	var replies []rpcReply
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var reply rpcReply
		require.NoError(t, json.Unmarshal(sc.Bytes(), &reply))
		replies = append(replies, reply)
	}
	return replies
}

func TestStdioInitializeAndCall(t *testing.T) {
	replies := serveLines(t, strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
	}, "\n") + "\n")

	// The notification gets no reply.
	require.Len(t, replies, 2)
	require.Nil(t, replies[0].Error)

	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(replies[1].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)
}

func TestStdioRecoversFromBadLines(t *testing.T) {
	replies := serveLines(t, strings.Join([]string{
		`this is not json`,
		``,
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n") + "\n")

	require.Len(t, replies, 3)
	require.NotNil(t, replies[0].Error)
	assert.Equal(t, JSONRPCParseError, replies[0].Error.Code)
	require.NotNil(t, replies[1].Error)
	assert.Equal(t, JSONRPCInvalidRequest, replies[1].Error.Code)
	assert.Nil(t, replies[2].Error)
}

func TestStdioStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewStdioServer(StdioConfig{
		Table: testTable(t),
		In:    strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"),
		Out:   &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Serve(ctx), context.Canceled)
}
