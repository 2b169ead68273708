package errors

import (
	"fmt"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// Kind classifies a harmonized error. The set is closed: every backend
// failure mode collapses into exactly one of these before it can reach the
// wire.
type Kind int

const (
	// KindConfig reports invalid or missing configuration.
	KindConfig Kind = iota
	// KindConnection reports a failure to reach a dependency.
	KindConnection
	// KindAuth reports missing or invalid credentials.
	KindAuth
	// KindValidation reports input that failed validation.
	KindValidation
	// KindStorage reports a persistence-layer failure.
	KindStorage
	// KindNetwork reports a network-level failure.
	KindNetwork
	// KindTimeout reports an operation that exceeded its deadline.
	KindTimeout
	// KindNotFound reports a missing tool, resource or prompt.
	KindNotFound
	// KindPermissionDenied reports an authenticated but unauthorized caller.
	KindPermissionDenied
	// KindRateLimit reports a throttled caller.
	KindRateLimit
	// KindInternal reports an unexpected server-side failure.
	KindInternal
	// KindCustom wraps backend-defined errors with no closer match.
	KindCustom
)

var kindNames = map[Kind]string{
	KindConfig:           "config",
	KindConnection:       "connection",
	KindAuth:             "auth",
	KindValidation:       "validation",
	KindStorage:          "storage",
	KindNetwork:          "network",
	KindTimeout:          "timeout",
	KindNotFound:         "not_found",
	KindPermissionDenied: "permission_denied",
	KindRateLimit:        "rate_limit",
	KindInternal:         "internal",
	KindCustom:           "custom",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code returns the wire error code a kind maps to. The mapping is
// deterministic and one-directional; wire codes are never derived from
// backend-specific error types.
func (k Kind) Code() protocol.ErrorCode {
	switch k {
	case KindValidation:
		return protocol.InvalidParams
	case KindNotFound:
		return protocol.ResourceNotFound
	case KindAuth:
		return protocol.Unauthorized
	case KindPermissionDenied:
		return protocol.Forbidden
	case KindRateLimit:
		return protocol.RateLimitExceeded
	default:
		// Config, Connection, Network, Storage, Timeout, Internal, Custom.
		return protocol.InternalError
	}
}
