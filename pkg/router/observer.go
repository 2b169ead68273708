package router

import (
	"time"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// Observer receives request, response and error events from the router.
// Implementations must be fast and non-blocking; the router calls them on
// the request path and never waits on them. The zero observer is NopObserver.
type Observer interface {
	// OnRequest is called when a request enters dispatch.
	OnRequest(method string)

	// OnResponse is called when dispatch produced a response. Code is zero
	// for success and the wire error code otherwise.
	OnResponse(method string, code protocol.ErrorCode, elapsed time.Duration)

	// OnNotificationError is called when a notification handler failed.
	// Notification failures never produce wire traffic; this is the only
	// place they surface.
	OnNotificationError(method string, err error)

	// OnSessionOpened and OnSessionClosed track connection lifecycle.
	OnSessionOpened(sessionID string)
	OnSessionClosed(sessionID string)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnRequest(string)                                     {}
func (NopObserver) OnResponse(string, protocol.ErrorCode, time.Duration) {}
func (NopObserver) OnNotificationError(string, error)                    {}
func (NopObserver) OnSessionOpened(string)                               {}
func (NopObserver) OnSessionClosed(string)                               {}
