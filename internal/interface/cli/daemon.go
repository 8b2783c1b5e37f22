package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDaemonCmd(a *commandEnv) *cobra.Command {
	var expr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Stay resident and run the daily clock-in on a cron schedule",
		Long: `Run in the foreground and trigger one daily run at every tick of the cron
expression (daemon_schedule in setting.json unless --schedule is given).
A tick that fires while the previous run is still going is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expr == "" {
				expr = a.settings.DaemonSchedule
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(a.out, "Scheduling clock-in at %q (%s)\n", expr, a.settings.Location())
			return runDaemon(ctx, expr, a.settings.Location(), a.log, func(ctx context.Context) {
				if err := a.runOnce(ctx); err != nil {
					a.log.WithError(err).Error("scheduled run failed")
				}
			})
		},
	}

	cmd.Flags().StringVar(&expr, "schedule", "", "cron expression overriding daemon_schedule")

	return cmd
}

// runDaemon fires job on expr until ctx is done, then waits for a running job to return
func runDaemon(ctx context.Context, expr string, loc *time.Location, log *logrus.Logger, job func(context.Context)) error {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)

	id, err := c.AddFunc(expr, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"schedule": expr,
		"next":     c.Entry(id).Next.Format(time.RFC3339),
	}).Info("daemon started")

	<-ctx.Done()
	log.Info("daemon stopping")
	<-c.Stop().Done()
	return nil
}
