package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"argus/bootstrap"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and detection scheduler",
		Long: `Start the Argus server: the HTTP API for event ingestion and alert
management, plus the interval scheduler that triggers detection runs.
Blocks until SIGINT or SIGTERM, then shuts down gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve runs the full application until a shutdown signal arrives.
func serve(ctx context.Context) error {
	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()
	return nil
}
