package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bookpress/bookexport"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the export HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()
			if addrFlag != "" {
				cfg.Server.Addr = addrFlag
			}

			ex, err := bookexport.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer ex.Close()

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: bookexport.NewHandler(ex, bookexport.HandlerOptions{
					MaxBody:    cfg.Server.MaxBody,
					APIKeyHash: cfg.Server.APIKeyHash,
				}),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      cfg.Export.Timeout.D() + 30*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", cfg.Server.Addr, "auth", cfg.Server.APIKeyHash != "", "store", cfg.Store.Adapter)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", "error", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
