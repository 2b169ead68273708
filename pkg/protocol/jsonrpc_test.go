package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseMessageClassification(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"request with numeric id", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "request"},
		{"request with string id", `{"jsonrpc":"2.0","id":"a1","method":"tools/list","params":{}}`, "request"},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "notification"},
		{"notification with null id", `{"jsonrpc":"2.0","id":null,"method":"notifications/initialized"}`, "notification"},
		{"success response", `{"jsonrpc":"2.0","id":1,"result":{}}`, "response"},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`, "response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			var got string
			switch msg.(type) {
			case *Request:
				got = "request"
			case *Notification:
				got = "notification"
			case *Response:
				got = "response"
			}
			if got != tt.want {
				t.Errorf("classified as %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseMessageRejectsNonEnvelopes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`},
		{"missing version", `{"id":1,"method":"ping"}`},
		{"no method or result", `{"jsonrpc":"2.0","id":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if !errors.Is(err, ErrNotJSONRPC) {
				t.Fatalf("error = %v, want ErrNotJSONRPC", err)
			}
		})
	}
}

func TestParseMessageInvalidJSON(t *testing.T) {
	_, err := ParseMessage([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if errors.Is(err, ErrNotJSONRPC) {
		t.Fatal("broken JSON must not classify as a non-envelope")
	}
}

func TestNewErrorResponseNullID(t *testing.T) {
	resp := NewErrorResponse(nil, ParseError, "unparseable", nil)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"id":null`) {
		t.Errorf("wire form %s missing null id", data)
	}
	if !strings.Contains(string(data), `-32700`) {
		t.Errorf("wire form %s missing parse error code", data)
	}
}

func TestResponseExclusivity(t *testing.T) {
	resp, err := NewResponse(int64(3), PingResult{})
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}
	if resp.Error != nil {
		t.Error("success response carries an error object")
	}
	if resp.Result == nil {
		t.Error("success response missing result")
	}

	errResp := NewErrorResponse(int64(3), MethodNotFound, "nope", nil)
	if errResp.Result != nil {
		t.Error("error response carries a result")
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ParseError, "ParseError"},
		{ToolNotFound, "ToolNotFound"},
		{RateLimitExceeded, "RateLimitExceeded"},
		{ErrorCode(-1), "ErrorCode(-1)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.code), got, tt.want)
		}
	}
}

func TestNegotiateVersion(t *testing.T) {
	if got := NegotiateVersion("2024-11-05"); got != "2024-11-05" {
		t.Errorf("known version rewritten to %q", got)
	}
	if got := NegotiateVersion("1999-01-01"); got != LatestProtocolVersion {
		t.Errorf("unknown version negotiated to %q, want latest", got)
	}
	if got := NegotiateVersion(""); got != LatestProtocolVersion {
		t.Errorf("empty version negotiated to %q, want latest", got)
	}
}
