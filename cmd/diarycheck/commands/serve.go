package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlcks7456/diaryCleaning/internal/app"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
)

type serveOptions struct {
	host    string
	port    int
	baseDir string
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API and websocket feed",
		Long: `Serve starts the HTTP API used by the review frontend. A workbook is
loaded with POST /api/workbook/load and stays in memory until the next
load. Progress and updates are pushed on /ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer infrastructure.CloseLogFile()

			application, err := app.New(cmd.Context(), cfg, opts.baseDir, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVar(&opts.baseDir, "dir", ".", "base directory for relative output paths")
	return cmd
}
