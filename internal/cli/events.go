package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func newEventsCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Consume record change events from AMQP",
	}
	cmd.AddCommand(newEventsTailCommand(o), newEventsSyncCommand(o))
	return cmd
}

func requireEvents(app *App) error {
	if app.Events == nil {
		return &core.ValidationError{Field: "amqp_url", Err: errors.New("no reachable AMQP broker configured")}
	}
	return nil
}

func newEventsTailCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print record events as they arrive",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if err := requireEvents(app); err != nil {
				return err
			}
			ctx, stop := SignalContext(ctx)
			defer stop()

			out := cmd.OutOrStdout()
			err := app.Events.Consume(ctx, func(ev *amqp.RecordEvent) error {
				line := fmt.Sprintf("%s  %-8s %-9s %s", ev.Timestamp.Local().Format(time.DateTime), ev.Kind, ev.Op, ev.Key)
				if ev.Amount != "" {
					line += "  " + ev.Amount + " " + ev.Currency
				}
				if ev.Count > 0 {
					line += "  (" + strconv.Itoa(ev.Count) + " records)"
				}
				_, err := fmt.Fprintln(out, line)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

func newEventsSyncCommand(o *rootOptions) *cobra.Command {
	var (
		interval   time.Duration
		yearPrefix bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror collections to Google Sheets as events arrive",
		Long: `Export every collection to Google Sheets, then re-export a collection
whenever events report a change to it. Changes are batched per interval.`,
		Args: cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if err := requireEvents(app); err != nil {
				return err
			}
			if !app.Config.SheetsEnabled() {
				return &core.ValidationError{Field: "google_spreadsheet_id", Err: errors.New("no spreadsheet configured")}
			}
			ctx, stop := SignalContext(ctx)
			defer stop()

			exporter, err := google.NewExporter(ctx, sheetsConfig(app, "", false), app.Logger)
			if err != nil {
				return err
			}
			prefix := ""
			if yearPrefix {
				prefix = strconv.Itoa(time.Now().Year()) + " "
			}
			syncer := worker.NewSheetsSync(app.Store, exporter, worker.SyncConfig{
				SheetPrefix:   prefix,
				FlushInterval: interval,
			}, app.Logger)

			if err := syncer.SyncAll(ctx); err != nil {
				app.Logger.Error("Startup sync failed", log.FieldError, err)
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			consumeErr := make(chan error, 1)
			go func() {
				consumeErr <- app.Events.Consume(runCtx, syncer.HandleEvent)
				cancel()
			}()

			runErr := syncer.Run(runCtx)
			if err := <-consumeErr; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			return runErr
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "how often pending changes are written")
	cmd.Flags().BoolVar(&yearPrefix, "year-prefix", false, "prefix sheet names with the current year")
	return cmd
}
