package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/annotation-mcp/internal/config"
	"github.com/ironsheep/annotation-mcp/internal/server"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdin/stdout",
	Long: `Start the MCP server.

The server reads JSON-RPC requests from stdin, one per line, and writes
responses to stdout. Logs are written to stderr.

Examples:
  annotate-mcp serve
  annotate-mcp serve --log-level debug
  annotate-mcp serve --config ./annotate.yaml --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, logger, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		server.Version = Version
		srv, err := server.New(mgr.Get(), logger)
		if err != nil {
			return err
		}

		if serveWatch && mgr.ConfigFile() != "" {
			mgr.OnChange(func(c *config.Config) {
				if err := srv.Apply(c); err != nil {
					logger.Warn("config change not applied", "error", err)
				}
			})
			mgr.WatchConfig()
		}

		logger.Info("annotate-mcp starting", "version", Version, "commit", GitCommit, "config", mgr.ConfigFile())
		return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the config file when it changes")
}
