package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rorical/wireui/internal/config"
	"github.com/Rorical/wireui/internal/devserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a development server speaking the client protocol",
	Long: `Run a development server that answers translation and markup lookups from a
YAML catalog and broadcasts flash and error pushes posted to /flash and /error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, _, err := setupLogging(true)
		if err != nil {
			return err
		}

		catalog := devserver.DefaultCatalog()
		if path := settings.GetString(config.KeyServeCatalog); path != "" {
			if catalog, err = devserver.LoadCatalog(path); err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr:              settings.GetString(config.KeyServeAddr),
			Handler:           devserver.NewServer(catalog, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("dev server listening", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-cmd.Context().Done():
			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("catalog", "", "YAML catalog of translations, fragments and static scripts")
	_ = settings.BindPFlag(config.KeyServeAddr, serveCmd.Flags().Lookup("addr"))
	_ = settings.BindPFlag(config.KeyServeCatalog, serveCmd.Flags().Lookup("catalog"))

	rootCmd.AddCommand(serveCmd)
}
