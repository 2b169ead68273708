package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/protocol"
)

func dialWebSocket(t *testing.T) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewWebSocketHandler(echoRouter(t), WithWebSocketLogger(logging.Nop())))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func wsRead(t *testing.T, ws *websocket.Conn) *protocol.Response {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp
}

func wsSend(t *testing.T, ws *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func TestWebSocketEndToEnd(t *testing.T) {
	ws := dialWebSocket(t)

	wsSend(t, ws, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"ws-test","version":"0"}}}`)
	resp := wsRead(t, ws)
	require.Nil(t, resp.Error)
	var init protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &init))
	assert.Equal(t, "echo-server", init.ServerInfo.Name)

	wsSend(t, ws, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)

	wsSend(t, ws, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"over socket"}}}`)
	resp = wsRead(t, ws)
	require.Nil(t, resp.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "over socket", result.Content[0].Text)
}

func TestWebSocketMalformedFrame(t *testing.T) {
	ws := dialWebSocket(t)

	wsSend(t, ws, `not json at all`)
	resp := wsRead(t, ws)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ParseError, resp.Error.Code)
	assert.Nil(t, resp.ID)

	// The socket stays open and the handshake still succeeds.
	wsSend(t, ws, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"ws-test","version":"0"}}}`)
	resp = wsRead(t, ws)
	assert.Nil(t, resp.Error)
}

func TestWebSocketRequestBeforeReady(t *testing.T) {
	ws := dialWebSocket(t)

	wsSend(t, ws, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := wsRead(t, ws)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
}
