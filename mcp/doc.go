// Package mcp connects agents to remote MCP tool servers. A Connector opens
// one connection per configured server, discovers the server's tools and
// exposes them as regular tools under collision-free scoped names.
package mcp
