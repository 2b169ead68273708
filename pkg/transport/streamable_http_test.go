package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpserve/mcpserve/pkg/logging"
	"github.com/mcpserve/mcpserve/pkg/protocol"
)

func newHTTPServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHTTPHandler(echoRouter(t), WithHTTPLogger(logging.Nop())))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, sessionID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, r io.Reader) *protocol.Response {
	t.Helper()
	var resp protocol.Response
	require.NoError(t, json.NewDecoder(r).Decode(&resp))
	return &resp
}

func TestHTTPSessionLifecycle(t *testing.T) {
	srv := newHTTPServer(t)

	// First POST without a session id creates the session.
	resp := post(t, srv.URL, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"http-test","version":"0"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := resp.Header.Get(SessionHeader)
	require.NotEmpty(t, sessionID)

	env := decodeEnvelope(t, resp.Body)
	require.Nil(t, env.Error)
	var init protocol.InitializeResult
	require.NoError(t, json.Unmarshal(env.Result, &init))
	assert.Equal(t, "echo-server", init.ServerInfo.Name)

	// Notifications come back as 202 with no body.
	resp = post(t, srv.URL, sessionID, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = post(t, srv.URL, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"via http"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env = decodeEnvelope(t, resp.Body)
	require.Nil(t, env.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "via http", result.Content[0].Text)

	// DELETE terminates the session; it is gone afterwards.
	req, err := http.NewRequest(http.MethodDelete, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, sessionID)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = post(t, srv.URL, sessionID, `{"jsonrpc":"2.0","id":3,"method":"ping"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPUnknownSessionRejected(t *testing.T) {
	srv := newHTTPServer(t)

	resp := post(t, srv.URL, "no-such-session", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, "no-such-session")
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestHTTPSessionsAreIsolated(t *testing.T) {
	srv := newHTTPServer(t)

	// Session A completes the handshake.
	resp := post(t, srv.URL, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"a","version":"0"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessA := resp.Header.Get(SessionHeader)
	resp = post(t, srv.URL, sessA, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// A fresh session B is still uninitialized even though A is ready.
	resp = post(t, srv.URL, "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, protocol.InvalidRequest, env.Error.Code)

	// A keeps working.
	resp = post(t, srv.URL, sessA, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env = decodeEnvelope(t, resp.Body)
	assert.Nil(t, env.Error)
}

func TestHTTPServerPushOrdering(t *testing.T) {
	handler := NewHTTPHandler(echoRouter(t), WithHTTPLogger(logging.Nop()))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp := post(t, srv.URL, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"push-test","version":"0"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := resp.Header.Get(SessionHeader)
	resp = post(t, srv.URL, sessionID, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	conn, ok := handler.Conn(sessionID)
	require.True(t, ok)

	// Queued before any stream is attached; must be held, not dropped.
	ctx := context.Background()
	require.NoError(t, conn.Notify(ctx, protocol.MethodToolsListChanged, nil))
	require.NoError(t, conn.Notify(ctx, protocol.MethodResourcesListChanged, nil))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, sessionID)
	req.Header.Set("Accept", "text/event-stream")
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { stream.Body.Close() })
	require.Equal(t, http.StatusOK, stream.StatusCode)

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(stream.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data: ") {
				events <- strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	readMethod := func() string {
		t.Helper()
		select {
		case data := <-events:
			var n protocol.Notification
			require.NoError(t, json.Unmarshal([]byte(data), &n))
			return n.Method
		case <-time.After(5 * time.Second):
			t.Fatal("no event on stream")
			return ""
		}
	}

	assert.Equal(t, protocol.MethodToolsListChanged, readMethod())
	assert.Equal(t, protocol.MethodResourcesListChanged, readMethod())

	// A notification pushed with the stream attached arrives as well.
	require.NoError(t, conn.Notify(ctx, protocol.MethodPromptsListChanged, nil))
	assert.Equal(t, protocol.MethodPromptsListChanged, readMethod())

	// Terminating the session shuts the push path down.
	delReq, err := http.NewRequest(http.MethodDelete, srv.URL, nil)
	require.NoError(t, err)
	delReq.Header.Set(SessionHeader, sessionID)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	assert.Error(t, conn.Notify(ctx, protocol.MethodToolsListChanged, nil))
	_, ok = handler.Conn(sessionID)
	assert.False(t, ok)
}

func TestHTTPMethodNotAllowed(t *testing.T) {
	srv := newHTTPServer(t)
	req, err := http.NewRequest(http.MethodPut, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPParseErrorEnvelope(t *testing.T) {
	srv := newHTTPServer(t)

	resp := post(t, srv.URL, "", `{"jsonrpc":"2.0", broken`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, protocol.ParseError, env.Error.Code)
	assert.Nil(t, env.ID)
}
