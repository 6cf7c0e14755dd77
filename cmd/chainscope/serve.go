package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/chainscope/internal/dashboard"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses and recent reports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				app.Config.Server.Port = port
			}
			if app.Config.Server.AuthToken == "" {
				app.Logger.Warn("server.auth_token is empty, the API is unauthenticated")
			}

			server := dashboard.NewServer(dashboard.Config{
				AuthToken: app.Config.Server.AuthToken,
				Port:      app.Config.Server.Port,
			}, app.Scanner, app.Store, app.Logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			app.Logger.Info("Shutting down API server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides server.port")
	return cmd
}
