package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	editmcp "github.com/gorewood/code-edit/internal/mcp"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd(a *app) *cobra.Command {
	var flags modelFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run code-edit as a Model Context Protocol (MCP) server over stdio.

This exposes the edit pipeline as MCP tools that any MCP-capable agent
environment can use. Model flags and config apply to every tool call.

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "code-edit": {
        "command": "code-edit",
        "args": ["serve", "--model", "flash"]
      }
    }
  }

Available tools: propose_edit, apply_edit, providers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, a, &flags)
		},
	}
	addModelFlags(cmd, &flags)
	return cmd
}

func runServe(cmd *cobra.Command, a *app, f *modelFlags) error {
	printer := newPrinter(cmd)

	s, err := a.resolveSettings(cmd, f)
	if err != nil {
		printer.Error(err)
		return err
	}

	svc, err := a.newService(cmd, s)
	if err != nil {
		printer.Error(err)
		return err
	}

	server := editmcp.NewServer(buildVersion(), editmcp.Deps{
		Service:      svc,
		BackupSuffix: s.BackupSuffix,
		Timeout:      s.Timeout,
	})
	a.logger().Info("serving MCP over stdio")
	return server.Run(cmd.Context(), &mcp.StdioTransport{})
}
