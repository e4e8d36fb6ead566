// Package mcp provides a Model Context Protocol server for code-edit.
// It exposes the edit pipeline as MCP tools that any MCP-capable agent can use.
package mcp

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/code-edit/internal/edit"
)

// Deps are what the tools need to run an edit.
type Deps struct {
	Service      *edit.Service
	BackupSuffix string
	Timeout      time.Duration // per model call; zero means none
}

// NewServer creates an MCP server with all code-edit tools registered.
func NewServer(version string, deps Deps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "code-edit",
		Version: version,
	}, nil)
	registerTools(server, deps)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations marks tools that call the model but write nothing.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:  true,
		OpenWorldHint: boolPtr(true),
	}
}

// writeAnnotations marks tools that overwrite files.
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(true),
		OpenWorldHint:   boolPtr(true),
	}
}

// registerTools adds all code-edit tools to the server.
func registerTools(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "propose_edit",
		Description: "Ask the model to rewrite a file according to an instruction and return the unified diff and proposed content. Writes nothing.",
		Annotations: readOnlyAnnotations(),
	}, handleProposeEdit(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_edit",
		Description: "Ask the model to rewrite a file according to an instruction and write the result, in place or to output. Set backup=true to keep a copy of the original.",
		Annotations: writeAnnotations(),
	}, handleApplyEdit(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "providers",
		Description: "List supported model providers, their API key variables, whether each key is set, and model aliases.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true, OpenWorldHint: boolPtr(false)},
	}, handleProviders())
}
