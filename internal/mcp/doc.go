// Package mcp implements the Model Context Protocol server for external tool access.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This package
// exposes the gateway's MATLAB tool surface to external AI clients over two
// transports sharing one method core:
//
//   - Streamable HTTP: POST /mcp carries JSON-RPC 2.0 requests; sessions are
//     tracked via the Mcp-Session-Id header and terminated with DELETE.
//   - Stdio: newline-delimited JSON-RPC on stdin/stdout, for clients that
//     spawn the gateway as a child process.
//
// # Tools and resources
//
// tools/list advertises one entry per tool name; multi-operation tools carry
// an "op" discriminator enumerating the operations whose group is currently
// enabled. tools/call validates parameters before touching the engine, and
// runtime failures come back as tool results with isError set so callers can
// read the message and recover.
//
// resources/list and resources/read expose static documentation plus live
// views of the engine environment, the active session, the workspace, and
// recent invocation history.
//
// # Authentication
//
// The HTTP transport optionally authenticates callers with bearer tokens,
// verified either as HS256 JWTs or against a static token set. Sessions are
// bound to the token that created them; a DELETE must present the same token.
package mcp
