package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/texgen-mcp/internal/server"
)

func newServeCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over MCP (default)",
		Long: `Serve the texture pipeline to an MCP client over stdin/stdout.

Logs go to stderr. Configure the server in your MCP client, e.g.:

  {"command": "texgen-mcp", "args": ["serve", "--resources", "/path/to/assets",
   "--generators", "/path/to/defs/*.json"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, info)
		},
	}
}

func runServe(cmd *cobra.Command, info BuildInfo) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	srv := server.New(server.Options{
		Generator: a.gen,
		Disk:      a.disk,
		Logger:    a.logger,
		Version:   info.Version,
	})
	return srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
}
