package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/bookpress/bookexport"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the export tools as an MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs stay on stderr.
			logger := ctx.logger()

			ex, err := bookexport.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer ex.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "bookpress", Version: version}, nil)
			ex.RegisterMCP(srv)
			logger.Info("mcp server starting", "transport", "stdio")
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
