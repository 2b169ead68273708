// Package mcpserve is a server framework for the Model Context Protocol.
//
// The framework splits a server into three layers. A Backend supplies the
// domain behavior: tools, resources and prompts. The router owns everything
// protocol-shaped: the initialize handshake, method dispatch, pagination
// and error harmonization. Transports move bytes: the same router serves
// stdio pipes, streamable HTTP and websockets with identical semantics.
//
// A minimal server registers handlers on a static backend and runs it over
// stdio:
//
//	b := backend.NewStatic(backend.Info{Name: "echo-server", Version: "1.0.0"})
//	b.RegisterTool(protocol.Tool{Name: "echo"}, echoTool)
//	r := router.New(b)
//	transport.NewStdio(r).Run(ctx)
//
// See the examples directory for complete programs.
package mcpserve
