// Package protocol defines the wire-level message model for the Model
// Context Protocol: JSON-RPC 2.0 envelopes, method names, protocol version
// negotiation, and the payload types for tools, resources and prompts.
//
// The package has no dependencies on the rest of the framework; every other
// layer is built on top of it.
package protocol
