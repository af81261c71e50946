package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(o *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if port == "" {
				port = app.Config.Port
			}
			ctx, stop := SignalContext(ctx)
			defer stop()

			srv := apphttp.NewServer(":"+port, apphttp.Deps{
				Store:              app.Store,
				Reports:            app.Reports,
				Rates:              app.Rates,
				TaxRate:            app.Config.TaxRateDecimal(),
				RateLimitPerMinute: app.Config.RateLimitPerMinute,
				Logger:             app.Logger,
			})
			srv.ReadTimeout = 10 * time.Second
			srv.WriteTimeout = 30 * time.Second
			srv.IdleTimeout = 60 * time.Second
			srv.MaxHeaderBytes = 1 << 16

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("Starting fintrack server",
					"port", port,
					"backend", app.Config.StoreBackend,
					log.FieldLocation, app.Config.DataFile)
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
			case <-ctx.Done():
				app.Logger.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("Server shutdown error", log.FieldError, err)
				return err
			}
			app.Logger.Info("Server stopped gracefully")
			return nil
		}),
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return cmd
}
