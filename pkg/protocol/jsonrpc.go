package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// JSONRPCVersion is the only supported JSON-RPC version.
	JSONRPCVersion = "2.0"
)

// ErrorCode represents a JSON-RPC 2.0 error code.
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification.
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// MCP-specific error codes.
const (
	// Unauthorized indicates the client is not authorized to make a request.
	Unauthorized ErrorCode = -32000
	// Forbidden indicates the client lacks permission for the operation.
	Forbidden ErrorCode = -32001
	// ResourceNotFound indicates a requested resource or prompt was not found.
	ResourceNotFound ErrorCode = -32002
	// ToolNotFound indicates a requested tool was not found.
	ToolNotFound ErrorCode = -32003
	// ValidationFailed indicates request content failed server-side validation.
	ValidationFailed ErrorCode = -32004
	// RateLimitExceeded indicates the client has been rate limited.
	RateLimitExceeded ErrorCode = -32005
)

// String returns the conventional name of an error code.
func (c ErrorCode) String() string {
	switch c {
	case ParseError:
		return "ParseError"
	case InvalidRequest:
		return "InvalidRequest"
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case InternalError:
		return "InternalError"
	case Unauthorized:
		return "Unauthorized"
	case Forbidden:
		return "Forbidden"
	case ResourceNotFound:
		return "ResourceNotFound"
	case ToolNotFound:
		return "ToolNotFound"
	case ValidationFailed:
		return "ValidationFailed"
	case RateLimitExceeded:
		return "RateLimitExceeded"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Request is a JSON-RPC 2.0 request. ID is a string or a number chosen by
// the caller and must be unique within the connection's in-flight set.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a JSON-RPC 2.0 notification. It carries no ID and never
// receives a response.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Error is
// set. An Error with a null ID reports a request that could not be parsed.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// Error implements the error interface so wire errors can travel through
// Go error chains on the client side.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRequest creates a request with marshalled params.
func NewRequest(id any, method string, params any) (*Request, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &Request{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: raw}, nil
}

// NewNotification creates a notification with marshalled params.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &Notification{JSONRPC: JSONRPCVersion, Method: method, Params: raw}, nil
}

// NewResponse creates a success response tied to the originating ID.
func NewResponse(id any, result any) (*Response, error) {
	raw, err := marshalOptional(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse creates an error response. A nil id is encoded as a JSON
// null, which is the required shape for parse failures.
func NewErrorResponse(id any, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// ErrNotJSONRPC reports input that parsed as JSON but is not a recognizable
// JSON-RPC 2.0 message.
var ErrNotJSONRPC = errors.New("not a JSON-RPC 2.0 message")

// ParseMessage classifies a raw wire message as *Request, *Notification or
// *Response. Invalid JSON is returned as a *json.SyntaxError (or similar
// decode error); structurally valid JSON that is not an envelope yields
// ErrNotJSONRPC.
func ParseMessage(data []byte) (any, error) {
	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Result  json.RawMessage `json:"result"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("%w: jsonrpc version %q", ErrNotJSONRPC, probe.JSONRPC)
	}

	hasID := len(probe.ID) > 0 && string(probe.ID) != "null"

	switch {
	case probe.Method != "" && hasID:
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return &req, nil
	case probe.Method != "":
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case len(probe.Result) > 0 || len(probe.Error) > 0:
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	default:
		return nil, fmt.Errorf("%w: no method, result or error", ErrNotJSONRPC)
	}
}
